package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"chatforge-backend/internal/model"

	"github.com/go-redis/redis/v8"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publisher pushes usage events onto the tenant's Redis channel.
type Publisher struct {
	client redisPublisher
}

func NewPublisher(client redisPublisher) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) PublishUsage(ctx context.Context, event model.UsageEvent) error {
	if event.TenantID == "" {
		return fmt.Errorf("websocket publish: tenantId required")
	}
	if p == nil || p.client == nil {
		return fmt.Errorf("websocket publish: redis client not initialised")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("websocket publish: marshal payload: %w", err)
	}

	if err := p.client.Publish(ctx, UsageChannel(event.TenantID), string(payload)).Err(); err != nil {
		countEvent("publish_failed")
		return fmt.Errorf("websocket publish: redis publish: %w", err)
	}
	countEvent("published")
	return nil
}
