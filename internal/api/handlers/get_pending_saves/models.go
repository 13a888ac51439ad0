package get_pending_saves

import (
	"time"

	"github.com/m04kA/SMC-SaveSync/internal/domain"
)

// PendingSave запись очереди в ответе
type PendingSave struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Payload       domain.Payload `json:"payload"`
	EnqueuedAt    time.Time      `json:"enqueuedAt"`
	RetryCount    int            `json:"retryCount"`
	MaxRetries    int            `json:"maxRetries"`
	Failed        bool           `json:"failed"`
	LastError     string         `json:"lastError,omitempty"`
	LastAttemptAt *time.Time     `json:"lastAttemptAt,omitempty"`
}

// PendingSavesResponse ответ GET /saves
type PendingSavesResponse struct {
	Count       int           `json:"count"`
	FailedCount int           `json:"failedCount"`
	Items       []PendingSave `json:"items"`
}

// FromDomainOperations конвертирует очередь в ответ
func FromDomainOperations(ops []domain.Operation) *PendingSavesResponse {
	resp := &PendingSavesResponse{
		Count: len(ops),
		Items: make([]PendingSave, 0, len(ops)),
	}

	for _, op := range ops {
		failed := op.IsExhausted()
		if failed {
			resp.FailedCount++
		}
		resp.Items = append(resp.Items, PendingSave{
			ID:            op.ID,
			Type:          string(op.Type),
			Payload:       op.Payload,
			EnqueuedAt:    op.EnqueuedAt,
			RetryCount:    op.RetryCount,
			MaxRetries:    op.MaxRetries,
			Failed:        failed,
			LastError:     op.LastError,
			LastAttemptAt: op.LastAttemptAt,
		})
	}

	return resp
}
