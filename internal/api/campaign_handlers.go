package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/leadflow/internal/pkg/httputil"
)

// LaunchCampaign starts a campaign execution. Refused launches carry the
// executor's message with the status of the error kind.
//
//	POST /api/campaigns/{id}/launch
func (h *Handlers) LaunchCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.campaigns.LaunchCampaign(r.Context(), id)
	if err != nil {
		status := httputil.StatusFor(err)
		if status == http.StatusInternalServerError {
			httputil.InternalError(w, err)
			return
		}
		httputil.JSON(w, status, res)
		return
	}
	httputil.JSON(w, http.StatusAccepted, res)
}

// GetCampaignStatus returns the execution snapshot of one campaign.
//
//	GET /api/campaigns/{id}/status
func (h *Handlers) GetCampaignStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exec, ok := h.campaigns.GetCampaignStatus(id)
	if !ok {
		httputil.NotFound(w, "no execution for campaign "+id)
		return
	}
	httputil.OK(w, exec)
}

// StopCampaign pauses a running campaign.
//
//	POST /api/campaigns/{id}/stop
func (h *Handlers) StopCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.campaigns.StopCampaign(id) {
		httputil.Conflict(w, "campaign "+id+" is not running")
		return
	}
	httputil.OK(w, map[string]any{"success": true, "campaign_id": id})
}

// GetRunningCampaigns lists running executions.
//
//	GET /api/campaigns/running
func (h *Handlers) GetRunningCampaigns(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{"campaigns": h.campaigns.GetRunningCampaigns()})
}
