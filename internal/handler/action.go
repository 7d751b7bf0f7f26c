package handler

import (
	"log/slog"
	"net/http"

	"github.com/kjarisk/athena/internal/service"
)

type ActionHandler struct {
	svc    *service.ActionService
	logger *slog.Logger
}

func NewActionHandler(svc *service.ActionService, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{svc: svc, logger: logger}
}

// HandleList serves GET /api/actions?status=&limit=&offset=.
func (h *ActionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	actions, err := h.svc.List(r.Context(), userID, r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

func (h *ActionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.NewAction
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// HandleComplete serves POST /api/actions/{id}/complete. The response
// carries the XP result and any achievements the completion unlocked.
func (h *ActionHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Complete(r.Context(), userID, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
