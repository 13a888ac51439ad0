package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// operationEnvelope is the stored form of an Operation.
// The payload is kept raw until the type tells which struct to decode into.
type operationEnvelope struct {
	ID             string          `json:"id"`
	Type           OperationType   `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotencyKey"`
	EnqueuedAt     time.Time       `json:"enqueuedAt"`
	RetryCount     int             `json:"retryCount"`
	MaxRetries     int             `json:"maxRetries"`
	LastError      string          `json:"lastError,omitempty"`
	LastAttemptAt  *time.Time      `json:"lastAttemptAt,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (o Operation) MarshalJSON() ([]byte, error) {
	if o.Payload == nil {
		return nil, ErrNilPayload
	}

	raw, err := json.Marshal(o.Payload)
	if err != nil {
		return nil, fmt.Errorf("domain: marshal %s payload: %w", o.Type, err)
	}

	return json.Marshal(operationEnvelope{
		ID:             o.ID,
		Type:           o.Type,
		Payload:        raw,
		IdempotencyKey: o.IdempotencyKey,
		EnqueuedAt:     o.EnqueuedAt,
		RetryCount:     o.RetryCount,
		MaxRetries:     o.MaxRetries,
		LastError:      o.LastError,
		LastAttemptAt:  o.LastAttemptAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (o *Operation) UnmarshalJSON(data []byte) error {
	var env operationEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	payload, err := DecodePayload(env.Type, env.Payload)
	if err != nil {
		return err
	}

	*o = Operation{
		ID:             env.ID,
		Type:           env.Type,
		Payload:        payload,
		IdempotencyKey: env.IdempotencyKey,
		EnqueuedAt:     env.EnqueuedAt,
		RetryCount:     env.RetryCount,
		MaxRetries:     env.MaxRetries,
		LastError:      env.LastError,
		LastAttemptAt:  env.LastAttemptAt,
	}
	return nil
}

// DecodePayload decodes raw JSON into the payload type selected by t.
// Unknown fields are rejected.
func DecodePayload(t OperationType, raw []byte) (Payload, error) {
	payload, err := NewPayload(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrNilPayload
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(payload); err != nil {
		return nil, fmt.Errorf("domain: decode %s payload: %w", t, err)
	}
	return payload, nil
}
