package clear_saves

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

// Handle DELETE /api/v1/saves
// Подтверждение у пользователя запрашивает дашборд
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	n := h.manager.ClearPendingSaves()

	h.logger.Warn("DELETE /saves - Discarded pending saves: count=%d", n)
	handlers.RespondJSON(w, http.StatusOK, ClearResponse{Cleared: n})
}
