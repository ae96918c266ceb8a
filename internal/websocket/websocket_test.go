package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chatforge-backend/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

func verifyTokens(tokens map[string]string) TokenVerifier {
	return func(token string) (string, error) {
		tenantID, ok := tokens[token]
		if !ok {
			return "", errors.New("unknown token")
		}
		return tenantID, nil
	}
}

func waitForRooms(t *testing.T, hub *Hub, want int) []RoomRes {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		rooms := hub.Rooms()
		if len(rooms) == want {
			return rooms
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d rooms, got %+v", want, rooms)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func TestUsageFeedDeliversOnlyOwnTenantEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)
	handler := NewHandler(hub, verifyTokens(map[string]string{"tok-a": "tenant-a"}))
	srv := httptest.NewServer(http.HandlerFunc(handler.JoinUsage))
	defer srv.Close()

	conn := dial(t, srv, "tok-a")
	defer conn.Close()

	rooms := waitForRooms(t, hub, 1)
	if rooms[0].ID != "usage:tenant-a" || rooms[0].TenantID != "tenant-a" || rooms[0].Clients != 1 {
		t.Fatalf("unexpected room %+v", rooms[0])
	}

	ch := make(chan *redis.Message, 2)
	ch <- &redis.Message{Channel: "usage:tenant-b", Payload: `{"tenantId":"tenant-b"}`}
	ch <- &redis.Message{Channel: "usage:tenant-a", Payload: `{"tenantId":"tenant-a","messagesSent":3}`}
	close(ch)
	handler.Forward(ctx, ch)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event model.UsageEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if event.TenantID != "tenant-a" || event.MessagesSent != 3 {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestRoomIsDroppedWhenLastClientLeaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)
	handler := NewHandler(hub, verifyTokens(map[string]string{"tok-a": "tenant-a"}))
	srv := httptest.NewServer(http.HandlerFunc(handler.JoinUsage))
	defer srv.Close()

	first := dial(t, srv, "tok-a")
	second := dial(t, srv, "tok-a")
	rooms := waitForRooms(t, hub, 1)
	for rooms[0].Clients != 2 {
		time.Sleep(10 * time.Millisecond)
		rooms = waitForRooms(t, hub, 1)
	}

	first.Close()
	second.Close()
	waitForRooms(t, hub, 0)
}

func TestJoinUsageRejectsInvalidToken(t *testing.T) {
	hub := NewHub()
	handler := NewHandler(hub, verifyTokens(map[string]string{}))

	rec := httptest.NewRecorder()
	handler.JoinUsage(rec, httptest.NewRequest(http.MethodGet, "/usage?token=nope", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["message"] == "" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

type fakeRedis struct {
	mu       sync.Mutex
	channel  string
	message  string
	failWith error
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channel = channel
	f.message, _ = message.(string)
	return redis.NewIntResult(1, f.failWith)
}

func TestPublisherUsesTenantChannel(t *testing.T) {
	client := &fakeRedis{}
	pub := NewPublisher(client)

	err := pub.PublishUsage(context.Background(), model.UsageEvent{TenantID: "tenant-a", ChatbotID: "bot-1", MessagesSent: 7, MessageLimit: 10, Outcome: "admitted"})
	if err != nil {
		t.Fatalf("PublishUsage returned error: %v", err)
	}
	if client.channel != "usage:tenant-a" {
		t.Fatalf("unexpected channel %q", client.channel)
	}
	var event model.UsageEvent
	if err := json.Unmarshal([]byte(client.message), &event); err != nil || event.MessagesSent != 7 {
		t.Fatalf("unexpected payload %q", client.message)
	}

	if err := pub.PublishUsage(context.Background(), model.UsageEvent{}); err == nil {
		t.Fatalf("expected error for missing tenant")
	}

	client.failWith = errors.New("redis down")
	if err := pub.PublishUsage(context.Background(), model.UsageEvent{TenantID: "tenant-a"}); err == nil {
		t.Fatalf("expected publish error")
	}
}
