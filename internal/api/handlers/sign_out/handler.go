package sign_out

import "net/http"

type Handler struct {
	session Session
	logger  Logger
}

func NewHandler(session Session, logger Logger) *Handler {
	return &Handler{
		session: session,
		logger:  logger,
	}
}

// Handle DELETE /api/v1/session
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	h.session.SignOut()

	h.logger.Info("DELETE /session - Signed out")
	w.WriteHeader(http.StatusNoContent)
}
