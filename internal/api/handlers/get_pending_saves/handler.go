package get_pending_saves

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

// Handle GET /api/v1/saves
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	resp := FromDomainOperations(h.manager.GetPendingSaves())

	h.logger.Info("GET /saves - Pending saves: count=%d, failed=%d", resp.Count, resp.FailedCount)
	handlers.RespondJSON(w, http.StatusOK, resp)
}
