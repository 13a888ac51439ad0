package saves_stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type Handler struct {
	manager  SaveManager
	logger   Logger
	upgrader websocket.Upgrader
}

// NewHandler checkOrigin nil - только тот же origin (поведение gorilla по умолчанию)
func NewHandler(manager SaveManager, logger Logger, checkOrigin func(r *http.Request) bool) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Handle GET /api/v1/saves/stream
// Шлёт сводку очереди (pending/failed) при каждом её изменении
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.Warn("GET /saves/stream - Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.manager.Subscribe()
	defer unsubscribe()

	h.logger.Info("GET /saves/stream - Client connected: %s", r.RemoteAddr)

	closed := make(chan struct{})
	go h.readLoop(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			h.logger.Info("GET /saves/stream - Client disconnected: %s", r.RemoteAddr)
			return

		case snapshot, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			msg := Envelope{Type: EventQueueChanged, Data: snapshot, Timestamp: time.Now().Unix()}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("GET /saves/stream - Write failed: %v", err)
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readLoop нужен для обработки pong и close от клиента
func (h *Handler) readLoop(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
