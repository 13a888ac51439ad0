package signal_visible

import "net/http"

type Handler struct {
	sw ConnectivitySwitch
}

func NewHandler(sw ConnectivitySwitch) *Handler {
	return &Handler{sw: sw}
}

// Handle POST /api/v1/connectivity/visible
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	h.sw.SignalVisible()
	w.WriteHeader(http.StatusNoContent)
}
