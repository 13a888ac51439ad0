package sign_in

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/m04kA/SMC-SaveSync/internal/api/handlers"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidIdentity    = "некорректный пользователь"
)

// drainReason причина прохода после входа
const drainReason = "sign-in"

type Handler struct {
	session  Session
	drainer  Drainer
	logger   Logger
	validate *validator.Validate
}

func NewHandler(session Session, drainer Drainer, logger Logger) *Handler {
	return &Handler{
		session:  session,
		drainer:  drainer,
		logger:   logger,
		validate: validator.New(),
	}
}

// Handle PUT /api/v1/session
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /session - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		h.logger.Warn("PUT /session - Validation failed: %v", err)
		handlers.RespondBadRequest(w, msgInvalidIdentity)
		return
	}

	identity := req.ToIdentity()
	if err := h.session.SignIn(identity); err != nil {
		h.logger.Warn("PUT /session - Sign in rejected: %v", err)
		handlers.RespondBadRequest(w, msgInvalidIdentity)
		return
	}

	h.logger.Info("PUT /session - Signed in: user_id=%s", identity.UserID)
	h.drainer.RequestDrain(drainReason)

	handlers.RespondJSON(w, http.StatusNoContent, nil)
}
