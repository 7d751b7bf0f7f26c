package handler

import (
	"log/slog"
	"net/http"

	"github.com/kjarisk/athena/internal/service"
)

type WorkAreaHandler struct {
	svc    *service.WorkAreaService
	logger *slog.Logger
}

func NewWorkAreaHandler(svc *service.WorkAreaService, logger *slog.Logger) *WorkAreaHandler {
	return &WorkAreaHandler{svc: svc, logger: logger}
}

type setEmployeesRequest struct {
	EmployeeIDs []string `json:"employeeIds"`
}

func (h *WorkAreaHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	areas, err := h.svc.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, areas)
}

func (h *WorkAreaHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.WorkAreaInput
	if !decodeJSON(w, r, &req) {
		return
	}
	area, err := h.svc.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, area)
}

// HandleUpdate serves PATCH /api/work-areas/{id}.
func (h *WorkAreaHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.WorkAreaInput
	if !decodeJSON(w, r, &req) {
		return
	}
	area, err := h.svc.Update(r.Context(), userID, pathID(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, area)
}

func (h *WorkAreaHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

// HandleSetEmployees serves PUT /api/work-areas/{id}/employees.
func (h *WorkAreaHandler) HandleSetEmployees(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req setEmployeesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	area, err := h.svc.SetEmployees(r.Context(), userID, pathID(r), req.EmployeeIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, area)
}
