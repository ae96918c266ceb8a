package websocket

import "strings"

const usageChannelPrefix = "usage:"

// Room groups the live connections of one tenant. Its ID is the tenant's
// Redis usage channel.
type Room struct {
	ID      string
	Clients map[string]*WSClient
}

// WSMessage is a raw JSON payload addressed to a room.
type WSMessage struct {
	RoomID  string
	Payload []byte
}

type RoomRes struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Clients  int    `json:"clients"`
}

// UsageChannel is the Redis channel and room ID carrying a tenant's usage events.
func UsageChannel(tenantID string) string {
	return usageChannelPrefix + tenantID
}

func tenantFromChannel(channel string) string {
	return strings.TrimPrefix(channel, usageChannelPrefix)
}
