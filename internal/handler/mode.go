package handler

import (
	"log/slog"
	"net/http"

	"dressline/internal/appmode"
	"dressline/internal/domain"
	"dressline/internal/httputil"
)

// ModeHandler reads and switches the application mode
type ModeHandler struct {
	state  *appmode.State
	logger *slog.Logger
}

// NewModeHandler creates a new mode handler
func NewModeHandler(state *appmode.State, logger *slog.Logger) *ModeHandler {
	return &ModeHandler{state: state, logger: logger}
}

// ModeBody is the request and response body of the mode routes
type ModeBody struct {
	Mode appmode.Mode `json:"mode"`
}

// GetMode returns the current mode
// GET /api/mode
func (h *ModeHandler) GetMode(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, ModeBody{Mode: h.state.Get()})
}

// SetMode switches between admin and reader mode
// PUT /api/mode
func (h *ModeHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeBody
	if !parseBody(w, r, &req) {
		return
	}

	if err := h.state.Set(req.Mode); err != nil {
		handleError(w, &domain.ValidationError{Message: err.Error()})
		return
	}
	h.logger.Info("app mode changed", "mode", req.Mode, "user_id", httputil.GetUserID(r))
	httputil.RespondJSON(w, http.StatusOK, ModeBody{Mode: h.state.Get()})
}

// HealthCheck reports liveness
// GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
