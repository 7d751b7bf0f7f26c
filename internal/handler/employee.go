package handler

import (
	"log/slog"
	"net/http"

	"github.com/kjarisk/athena/internal/service"
)

// EmployeeHandler serves employees, their one-on-ones and workshops.
type EmployeeHandler struct {
	svc    *service.EmployeeService
	logger *slog.Logger
}

func NewEmployeeHandler(svc *service.EmployeeService, logger *slog.Logger) *EmployeeHandler {
	return &EmployeeHandler{svc: svc, logger: logger}
}

func (h *EmployeeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	employees, err := h.svc.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

func (h *EmployeeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.NewEmployee
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.svc.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *EmployeeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

// HandleLogOneOnOne serves POST /api/employees/{id}/one-on-ones.
func (h *EmployeeHandler) HandleLogOneOnOne(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.NewOneOnOne
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.LogOneOnOne(r.Context(), userID, pathID(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *EmployeeHandler) HandleListOneOnOnes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListOneOnOnes(r.Context(), userID, pathID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *EmployeeHandler) HandleListWorkshops(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListWorkshops(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleCreateWorkshop serves POST /api/workshops.
func (h *EmployeeHandler) HandleCreateWorkshop(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.NewWorkshop
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.CreateWorkshop(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
