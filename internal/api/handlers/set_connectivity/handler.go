package set_connectivity

import (
	"net/http"

	"github.com/m04kA/SMC-SaveSync/internal/api/handlers"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgOnlineRequired     = "поле online обязательно"
)

type Handler struct {
	sw     ConnectivitySwitch
	logger Logger
}

func NewHandler(sw ConnectivitySwitch, logger Logger) *Handler {
	return &Handler{
		sw:     sw,
		logger: logger,
	}
}

// Handle PUT /api/v1/connectivity
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req SetConnectivityRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /connectivity - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	if req.Online == nil {
		handlers.RespondBadRequest(w, msgOnlineRequired)
		return
	}

	changed := h.sw.SetOnline(*req.Online)
	if changed {
		h.logger.Info("PUT /connectivity - Connectivity changed: online=%t", *req.Online)
	}

	handlers.RespondJSON(w, http.StatusOK, SetConnectivityResponse{Online: *req.Online, Changed: changed})
}
