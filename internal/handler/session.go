package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/logger"
)

// SessionService is the part of the session reconciler the UI shell drives.
type SessionService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Acknowledge(ctx context.Context) error
	FullSync(ctx context.Context) error
	Status(now time.Time) domain.SessionStatus
}

// Lifecycle receives app foreground/background notifications.
type Lifecycle interface {
	OnAppForeground(ctx context.Context) error
	OnAppBackground(ctx context.Context) error
}

// SessionHandler serves the mining session endpoints.
type SessionHandler struct {
	sessions  SessionService
	lifecycle Lifecycle
	clock     domain.Clock
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionService, lifecycle Lifecycle, clock domain.Clock) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		lifecycle: lifecycle,
		clock:     clock,
	}
}

// SessionResponse wraps the local session status with an optional message.
type SessionResponse struct {
	Message string               `json:"message,omitempty"`
	Status  domain.SessionStatus `json:"status"`
}

// HandleStatus returns the locally projected session status. It never reads the remote store.
func (h *SessionHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, SessionResponse{Status: h.sessions.Status(h.clock.Now())})
}

// HandleStart starts a mining session on this device.
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "Start session", h.sessions.Start, http.StatusCreated, MsgSessionStarted)
}

// HandleStop stops the running session and credits what accrued so far.
func (h *SessionHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "Stop session", h.sessions.Stop, http.StatusOK, MsgSessionStopped)
}

// HandleAcknowledge accepts the remote session after a conflict.
func (h *SessionHandler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "Acknowledge conflict", h.sessions.Acknowledge, http.StatusOK, MsgConflictAcknowledged)
}

// HandleSync forces a full sync with the remote store.
func (h *SessionHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "Full sync", h.sessions.FullSync, http.StatusOK, MsgSyncCompleted)
}

// HandleForeground is called by the shell when the app comes to the foreground.
func (h *SessionHandler) HandleForeground(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "Foreground", h.lifecycle.OnAppForeground, http.StatusOK, MsgForeground)
}

// HandleBackground is called by the shell when the app goes to the background.
func (h *SessionHandler) HandleBackground(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "Background", h.lifecycle.OnAppBackground, http.StatusOK, MsgBackground)
}

func (h *SessionHandler) run(w http.ResponseWriter, r *http.Request, opName string, op func(context.Context) error, status int, msg string) {
	log := logger.FromContext(r.Context())
	log.Debug(opName + " requested")

	if err := op(r.Context()); err != nil {
		respondServiceError(w, r, opName, err)
		return
	}

	respondJSON(w, status, SessionResponse{
		Message: msg,
		Status:  h.sessions.Status(h.clock.Now()),
	})
}
