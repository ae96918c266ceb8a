package websocket

import (
	"sync"
	"time"

	"chatforge-backend/internal/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 4 * 1024
)

type WSClient struct {
	Conn     *websocket.Conn
	Message  chan *WSMessage
	ID       string
	RoomID   string
	done     chan struct{}
	mu       sync.Mutex
	isClosed bool
}

func newClient(conn *websocket.Conn, id, roomID string) *WSClient {
	return &WSClient{
		Conn:    conn,
		Message: make(chan *WSMessage, 16),
		ID:      id,
		RoomID:  roomID,
		done:    make(chan struct{}),
	}
}

func (cl *WSClient) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			cl.mu.Unlock()

			if err != nil {
				logger.Get().Debug("websocket ping failed", zap.String("clientId", cl.ID), zap.Error(err))
				return
			}
		}
	}
}

func (cl *WSClient) writeMessage() {
	defer func() {
		cl.mu.Lock()
		cl.isClosed = true
		cl.Conn.Close()
		cl.mu.Unlock()
	}()

	for {
		select {
		case <-cl.done:
			return
		case msg, ok := <-cl.Message:
			if !ok {
				cl.mu.Lock()
				_ = cl.Conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(writeWait),
				)
				cl.mu.Unlock()
				return
			}

			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			_ = cl.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := cl.Conn.WriteMessage(websocket.TextMessage, msg.Payload)
			cl.mu.Unlock()

			if err != nil {
				logger.Get().Warn("websocket write failed", zap.String("clientId", cl.ID), zap.Error(err))
				return
			}
		}
	}
}

// readMessage drains the connection so close frames and pongs are processed.
// The feed is one way; client payloads are discarded.
func (cl *WSClient) readMessage(hub *Hub) {
	defer func() {
		if r := recover(); r != nil {
			logger.Get().Error("recovered panic in websocket reader", zap.Any("panic", r))
		}
		close(cl.done)
		hub.Unregister(cl)
		logger.Get().Debug("websocket client disconnected", zap.String("clientId", cl.ID), zap.String("room", cl.RoomID))
	}()

	cl.Conn.SetReadLimit(readLimit)
	_ = cl.Conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.Conn.SetPongHandler(func(string) error {
		return cl.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := cl.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logger.Get().Warn("websocket read failed", zap.String("clientId", cl.ID), zap.Error(err))
			}
			return
		}
	}
}
