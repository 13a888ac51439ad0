package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OperationType identifies which remote document a save operation mutates
type OperationType string

const (
	OperationProfile      OperationType = "profile"
	OperationStatus       OperationType = "status"
	OperationAvailability OperationType = "availability"
	OperationPayment      OperationType = "payment"
	OperationSettings     OperationType = "settings"
)

// OperationTypes lists every supported operation type
var OperationTypes = []OperationType{
	OperationProfile,
	OperationStatus,
	OperationAvailability,
	OperationPayment,
	OperationSettings,
}

var (
	// ErrUnknownOperationType is returned for a type outside OperationTypes
	ErrUnknownOperationType = errors.New("domain: unknown operation type")

	// ErrNilPayload is returned when an operation is built without a payload
	ErrNilPayload = errors.New("domain: payload is nil")
)

// IsValid returns true if t is one of OperationTypes
func (t OperationType) IsValid() bool {
	for _, known := range OperationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseOperationType converts a raw string into an OperationType
func ParseOperationType(s string) (OperationType, error) {
	t := OperationType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperationType, s)
	}
	return t, nil
}

// Operation is a pending state mutation tracked by the save manager.
// Only the manager creates and mutates operations; everyone else reads copies.
type Operation struct {
	ID             string
	Type           OperationType
	Payload        Payload
	IdempotencyKey string // sent to the backend so a replayed mutation is applied once
	EnqueuedAt     time.Time
	RetryCount     int
	MaxRetries     int
	LastError      string
	LastAttemptAt  *time.Time
}

// NewOperation builds a fresh operation for payload.
// maxRetries <= 0 falls back to DefaultMaxRetries.
func NewOperation(payload Payload, maxRetries int, now time.Time) (*Operation, error) {
	if payload == nil {
		return nil, ErrNilPayload
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	return &Operation{
		ID:             NewOperationID(now),
		Type:           payload.OperationType(),
		Payload:        payload,
		IdempotencyKey: uuid.NewString(),
		EnqueuedAt:     now,
		MaxRetries:     maxRetries,
	}, nil
}

// NewOperationID returns "save_<unix millis>_<random suffix>"
func NewOperationID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:OperationIDSuffixLength]
	return fmt.Sprintf("%s%d_%s", OperationIDPrefix, now.UnixMilli(), suffix)
}

// IsExhausted returns true once the retry ceiling is reached (failed-terminal)
func (o *Operation) IsExhausted() bool {
	return o.RetryCount >= o.MaxRetries
}

// CanRetry returns true while automatic retries are still allowed
func (o *Operation) CanRetry() bool {
	return o.RetryCount < o.MaxRetries
}

// Clone returns a copy that shares no mutable state with o
func (o *Operation) Clone() Operation {
	c := *o
	if o.Payload != nil {
		c.Payload = o.Payload.clone()
	}
	if o.LastAttemptAt != nil {
		t := *o.LastAttemptAt
		c.LastAttemptAt = &t
	}
	return c
}
