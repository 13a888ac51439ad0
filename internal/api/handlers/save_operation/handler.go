package save_operation

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SaveSync/internal/api/handlers"
	"github.com/m04kA/SMC-SaveSync/internal/domain"
)

const (
	msgUnknownType        = "неизвестный тип сохранения"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidOptions     = "некорректные параметры сохранения"
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

// Handle POST /api/v1/saves/{type}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	opType, err := domain.ParseOperationType(mux.Vars(r)["type"])
	if err != nil {
		h.logger.Warn("POST /saves/{type} - Unknown type: %v", err)
		handlers.RespondNotFound(w, msgUnknownType)
		return
	}

	opts, err := parseSaveOptions(r.URL.Query())
	if err != nil {
		h.logger.Warn("POST /saves/%s - Invalid options: %v", opType, err)
		handlers.RespondBadRequest(w, msgInvalidOptions)
		return
	}

	raw, err := handlers.ReadBody(r)
	if err != nil {
		h.logger.Warn("POST /saves/%s - Failed to read body: %v", opType, err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	payload, err := domain.DecodePayload(opType, raw)
	if err != nil {
		h.logger.Warn("POST /saves/%s - Invalid request body: %v", opType, err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result := h.manager.Save(r.Context(), payload, opts)

	switch {
	case result.Success:
		h.logger.Info("POST /saves/%s - Saved: operation_id=%s", opType, result.OperationID)
		handlers.RespondJSON(w, http.StatusCreated, result)

	case result.SavedOffline:
		h.logger.Info("POST /saves/%s - Queued: operation_id=%s, retry_count=%d, auth_required=%t",
			opType, result.OperationID, result.RetryCount, result.AuthRequired)
		handlers.RespondJSON(w, http.StatusAccepted, result)

	case result.Failed:
		h.logger.Error("POST /saves/%s - Failed after retries: operation_id=%s, error=%s",
			opType, result.OperationID, result.Error)
		handlers.RespondJSON(w, http.StatusOK, result)

	default:
		h.logger.Warn("POST /saves/%s - Rejected: %s", opType, result.Error)
		handlers.RespondJSON(w, http.StatusUnprocessableEntity, result)
	}
}
