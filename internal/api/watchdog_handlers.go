package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/httputil"
	"github.com/ignite/leadflow/internal/pkg/logger"
)

// ValidateOutboundEmail runs an email through the block rules without
// sending it.
//
//	POST /api/watchdog/validate
func (h *Handlers) ValidateOutboundEmail(w http.ResponseWriter, r *http.Request) {
	var msg domain.OutboundMessage
	if !httputil.Decode(w, r, &msg) {
		return
	}
	if strings.TrimSpace(msg.To) == "" {
		httputil.BadRequest(w, "to is required")
		return
	}
	if msg.Channel == "" {
		msg.Channel = domain.ChannelEmail
	}
	httputil.OK(w, h.watchdog.ValidateOutboundEmail(r.Context(), msg))
}

// GetQuarantinedEmails lists quarantined emails.
//
//	GET /api/watchdog/quarantine
func (h *Handlers) GetQuarantinedEmails(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{"emails": h.watchdog.GetQuarantinedEmails()})
}

// GetPendingApprovalEmails lists emails awaiting approval.
//
//	GET /api/watchdog/approvals
func (h *Handlers) GetPendingApprovalEmails(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{"emails": h.watchdog.GetPendingApprovalEmails()})
}

// ApproveEmail releases a held email and dispatches it through the email
// sender. A failed dispatch is reported in the body; the email is no longer
// held either way.
//
//	POST /api/watchdog/emails/{id}/approve
func (h *Handlers) ApproveEmail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	held, ok := h.watchdog.ApproveEmail(id)
	if !ok {
		httputil.NotFound(w, "no held email "+id)
		return
	}

	resp := map[string]any{"email": held, "dispatched": false}
	if h.email == nil {
		resp["error"] = "no email sender configured"
		httputil.OK(w, resp)
		return
	}

	msg := held.Message
	res, err := h.email.Send(r.Context(), &msg)
	switch {
	case err != nil:
		h.log.Error("approved email dispatch failed", "id", id, "to", msg.To, "error", err)
		resp["error"] = err.Error()
	case res == nil || !res.Success:
		reason := "send failed"
		if res != nil && res.Error != "" {
			reason = res.Error
		}
		h.log.Warn("approved email rejected by vendor", "id", id, "to", msg.To, "error", reason)
		resp["error"] = reason
	default:
		resp["dispatched"] = true
		resp["send_result"] = res
		if err := h.watchdog.RecordSent(r.Context(), msg); err != nil {
			h.log.Warn("record approved send", "id", id, "error", err)
		}
		h.log.Info("approved email dispatched", "id", id, "to", logger.RedactEmail(msg.To))
	}
	httputil.OK(w, resp)
}

// BlockEmail discards a held email.
//
//	POST /api/watchdog/emails/{id}/block
func (h *Handlers) BlockEmail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	held, ok := h.watchdog.BlockEmail(id)
	if !ok {
		httputil.NotFound(w, "no held email "+id)
		return
	}
	httputil.OK(w, map[string]any{"email": held, "blocked": true})
}

// GetBlockRules lists all rules, highest priority first.
//
//	GET /api/watchdog/rules
func (h *Handlers) GetBlockRules(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{"rules": h.watchdog.GetBlockRules()})
}

// AddBlockRule creates a rule.
//
//	POST /api/watchdog/rules
func (h *Handlers) AddBlockRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.BlockRule
	if !httputil.Decode(w, r, &rule) {
		return
	}
	created, err := h.watchdog.AddBlockRule(rule)
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.Created(w, created)
}

// RemoveBlockRule deletes a rule.
//
//	DELETE /api/watchdog/rules/{id}
func (h *Handlers) RemoveBlockRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.watchdog.RemoveBlockRule(id) {
		httputil.NotFound(w, "no block rule "+id)
		return
	}
	httputil.NoContent(w)
}

type ruleToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetRuleEnabled enables or disables a rule.
//
//	PATCH /api/watchdog/rules/{id}
func (h *Handlers) SetRuleEnabled(w http.ResponseWriter, r *http.Request) {
	var req ruleToggleRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		httputil.BadRequest(w, "enabled is required")
		return
	}
	id := chi.URLParam(r, "id")
	if !h.watchdog.SetRuleEnabled(id, *req.Enabled) {
		httputil.NotFound(w, "no block rule "+id)
		return
	}
	httputil.OK(w, map[string]any{"id": id, "enabled": *req.Enabled})
}
