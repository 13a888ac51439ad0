package domain

// SaveResult describes what happened to a save request.
// Exactly one of Success, SavedOffline or Failed is set when the
// operation was accepted; none of them is set when it was rejected
// before queueing (Error explains why).
type SaveResult struct {
	OperationID  string `json:"operationId,omitempty"`
	Success      bool   `json:"success"`
	SavedOffline bool   `json:"savedOffline"`
	Failed       bool   `json:"failed"`
	AuthRequired bool   `json:"authRequired,omitempty"`
	RetryCount   int    `json:"retryCount"`
	Error        string `json:"error,omitempty"`
}

// Accepted returns true if the operation was saved or queued
func (r SaveResult) Accepted() bool {
	return r.Success || r.SavedOffline || r.Failed
}

// RetryResult summarizes a manual retry (a forced drain pass)
type RetryResult struct {
	Attempted int  `json:"attempted"`
	Saved     int  `json:"saved"`
	Failed    int  `json:"failed"`
	Skipped   bool `json:"skipped"` // another drain pass was running
	Remaining int  `json:"remaining"`
}

// QueueSnapshot is the pending-sync summary pushed to subscribers
type QueueSnapshot struct {
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}
