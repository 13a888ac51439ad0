package clear_saves

// ClearResponse ответ DELETE /saves
type ClearResponse struct {
	Cleared int `json:"cleared"`
}
