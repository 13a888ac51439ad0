package set_connectivity

// SetConnectivityRequest событие online/offline из дашборда
type SetConnectivityRequest struct {
	Online *bool `json:"online"`
}

// SetConnectivityResponse ответ
type SetConnectivityResponse struct {
	Online  bool `json:"online"`
	Changed bool `json:"changed"`
}
