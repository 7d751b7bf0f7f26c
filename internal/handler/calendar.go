package handler

import (
	"log/slog"
	"net/http"

	"github.com/kjarisk/athena/internal/auth"
	"github.com/kjarisk/athena/internal/service"
)

// CalendarHandler serves sync, sync status and calendar connections.
type CalendarHandler struct {
	svc          *service.CalendarService
	secureCookie bool
	logger       *slog.Logger
}

func NewCalendarHandler(svc *service.CalendarService, secureCookie bool, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{svc: svc, secureCookie: secureCookie, logger: logger}
}

type eventKitRequest struct {
	CalendarName string `json:"calendarName"`
}

// HandleSync serves POST /api/calendar/sync. Individual source failures do
// not fail the request; they show up in the report.
func (h *CalendarHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	report, err := h.svc.Sync(r.Context(), userID)
	if err != nil {
		h.logger.Error("calendar sync failed", slog.String("userID", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleStatus serves GET /api/calendar/sync/status.
func (h *CalendarHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	status, err := h.svc.Status(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleGoogleConnect serves GET /api/calendar/google/connect. It stores a
// single-use state in a short-lived cookie and returns the consent URL.
func (h *CalendarHandler) HandleGoogleConnect(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	state := auth.NewState()
	url, err := h.svc.GoogleAuthURL(state)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// HandleGoogleCallback serves GET /auth/google/callback?code=&state=.
func (h *CalendarHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	stateCookie, err := r.Cookie(auth.StateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state mismatch", slog.String("userID", userID))
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: auth.StateCookieName, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: consent denied", slog.String("userID", userID), slog.String("error", errParam))
		http.Redirect(w, r, "/?calendar=denied", http.StatusSeeOther)
		return
	}

	if _, err := h.svc.ConnectGoogle(r.Context(), userID, r.URL.Query().Get("code")); err != nil {
		h.logger.Error("google callback: connect failed", slog.String("userID", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	http.Redirect(w, r, "/?calendar=connected", http.StatusSeeOther)
}

// HandleEventKitConnect serves POST /api/calendar/eventkit.
func (h *CalendarHandler) HandleEventKitConnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req eventKitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	conn, err := h.svc.ConnectEventKit(r.Context(), userID, req.CalendarName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

// HandleDeleteConnection serves DELETE /api/calendar/connections/{id}.
func (h *CalendarHandler) HandleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteConnection(r.Context(), userID, pathID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
