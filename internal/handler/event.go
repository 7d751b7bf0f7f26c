package handler

import (
	"log/slog"
	"net/http"

	"github.com/kjarisk/athena/internal/service"
)

type EventHandler struct {
	svc    *service.EventService
	logger *slog.Logger
}

func NewEventHandler(svc *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// HandleList serves GET /api/events?from=&to= (RFC 3339, both optional).
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	from, err := queryTime(r, "from")
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		writeError(w, err)
		return
	}

	events, err := h.svc.List(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	event, err := h.svc.Get(r.Context(), userID, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// HandleCreate serves POST /api/events for manual entries.
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.NewEvent
	if !decodeJSON(w, r, &req) {
		return
	}
	event, err := h.svc.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// HandleUpdate serves PATCH /api/events/{id}.
func (h *EventHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.EventPatch
	if !decodeJSON(w, r, &req) {
		return
	}
	event, err := h.svc.Update(r.Context(), userID, pathID(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), userID, pathID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
