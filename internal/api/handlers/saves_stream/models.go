package saves_stream

import "github.com/m04kA/SMC-SaveSync/internal/domain"

// EventQueueChanged тип сообщения со сводкой очереди
const EventQueueChanged = "saves.queue_changed"

// Envelope сообщение websocket
type Envelope struct {
	Type      string               `json:"type"`
	Data      domain.QueueSnapshot `json:"data"`
	Timestamp int64                `json:"timestamp"`
}
