package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/httputil"
)

type evaluateRequest struct {
	Content string `json:"content"`
}

type handoverRequest struct {
	Reason string `json:"reason"`
}

type replyRequest struct {
	Content string `json:"content"`
}

// EvaluateHandover scores a conversation. An optional content field is
// treated as an unsaved lead message.
//
//	POST /api/conversations/{id}/evaluate
func (h *Handlers) EvaluateHandover(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	var msg *domain.Message
	if strings.TrimSpace(req.Content) != "" {
		msg = &domain.Message{Role: domain.RoleLead, Content: req.Content, Timestamp: h.now()}
	}

	eval, err := h.handover.EvaluateHandover(r.Context(), chi.URLParam(r, "id"), msg)
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, eval)
}

// ExecuteHandover hands a conversation to a human.
//
//	POST /api/conversations/{id}/handover
func (h *Handlers) ExecuteHandover(w http.ResponseWriter, r *http.Request) {
	var req handoverRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if !h.handover.ExecuteHandover(r.Context(), id, req.Reason) {
		httputil.JSON(w, http.StatusConflict, map[string]any{
			"success":         false,
			"conversation_id": id,
			"error":           "handover could not be completed",
		})
		return
	}
	httputil.OK(w, map[string]any{"success": true, "conversation_id": id})
}

// HandleInboundReply records a lead reply and hands over when warranted.
//
//	POST /api/conversations/{id}/replies
func (h *Handlers) HandleInboundReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	out, err := h.handover.HandleInboundReply(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, out)
}

// decodeOptional decodes a JSON body when one is present.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		httputil.BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
