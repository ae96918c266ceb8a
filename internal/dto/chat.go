package dto

import "strings"

// HistoryTurn accepts both {role, text} and {role, content: [{text}]}.
type HistoryTurn struct {
	Role    string        `json:"role"`
	Text    string        `json:"text,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
}

type ContentPart struct {
	Text string `json:"text"`
}

// Message joins the turn's text parts.
func (t HistoryTurn) Message() string {
	if t.Text != "" || len(t.Content) == 0 {
		return t.Text
	}
	parts := make([]string, 0, len(t.Content))
	for _, p := range t.Content {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "")
}

type ChatRequest struct {
	Message string        `json:"message"`
	APIKey  string        `json:"apiKey"`
	History []HistoryTurn `json:"history"`
	Stream  bool          `json:"stream"`
}

type DemoChatRequest struct {
	Message string        `json:"message"`
	History []HistoryTurn `json:"history"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

// StreamChunk is the payload of each data event of a streamed reply.
type StreamChunk struct {
	Text string `json:"text"`
}

type StreamError struct {
	Message string `json:"message"`
}
