package retry_saves

import (
	"net/http"

	"github.com/m04kA/SMC-SaveSync/internal/api/handlers"
)

type Handler struct {
	manager SaveManager
	logger  Logger
}

func NewHandler(manager SaveManager, logger Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// Handle POST /api/v1/saves/retry
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	result := h.manager.RetryFailedSaves(r.Context())

	h.logger.Info("POST /saves/retry - attempted=%d, saved=%d, failed=%d, skipped=%t, remaining=%d",
		result.Attempted, result.Saved, result.Failed, result.Skipped, result.Remaining)
	handlers.RespondJSON(w, http.StatusOK, result)
}
