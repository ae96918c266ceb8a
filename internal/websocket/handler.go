package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"chatforge-backend/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// TokenVerifier resolves an access token to the tenant it was issued for.
type TokenVerifier func(token string) (tenantID string, err error)

type Handler struct {
	hub      *Hub
	verify   TokenVerifier
	upgrader websocket.Upgrader
}

func NewHandler(h *Hub, verify TokenVerifier) *Handler {
	return &Handler{
		hub:    h,
		verify: verify,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// JoinUsage upgrades an authenticated request and joins the tenant's usage room.
func (h *Handler) JoinUsage(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.verify(r.URL.Query().Get("token"))
	if err != nil || tenantID == "" {
		writeJSONError(w, http.StatusUnauthorized, "Invalid or missing token.")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.FromContext(r.Context()).Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := newClient(conn, uuid.NewString(), UsageChannel(tenantID))
	if !h.hub.Register(cl) {
		conn.Close()
		return
	}

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h.hub)
}

func (h *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h.hub.Rooms())
}

// Listen subscribes to every tenant usage channel and fans messages out to
// the matching rooms until ctx is cancelled.
func (h *Handler) Listen(ctx context.Context, client *redis.Client) error {
	sub := client.PSubscribe(ctx, usageChannelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	logger.Get().Info("subscribed to usage channels", zap.String("pattern", usageChannelPrefix+"*"))

	h.Forward(ctx, sub.Channel())
	return nil
}

// Forward relays Redis messages to the hub until ctx ends or ch closes.
func (h *Handler) Forward(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			countEvent("received")
			h.hub.Broadcast(&WSMessage{
				RoomID:  msg.Channel,
				Payload: []byte(msg.Payload),
			})
		}
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
