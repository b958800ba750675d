package entity

import (
	"time"

	"github.com/google/uuid"
)

// Chat is a persisted conversation thread owned by one user. Title is set
// once at creation and never changes; LastContext holds the usage snapshot
// of the most recent completed generation.
type Chat struct {
	Id          uuid.UUID
	UserId      uuid.UUID
	Title       string
	Visibility  string
	LastContext *UsageSnapshot
	CreatedAt   time.Time
}

// MessagePart is one typed content fragment of a message.
type MessagePart struct {
	Type string `json:"type"` // "text", "reasoning", "tool-call", "tool-result", "file"

	Text string `json:"text,omitempty"`

	ToolCallId string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	ToolInput  string `json:"tool_input,omitempty"`
	ToolOutput string `json:"tool_output,omitempty"`

	FileURL       string `json:"file_url,omitempty"`
	FileMediaType string `json:"file_media_type,omitempty"`
}

// Attachment is a file attached to a user message.
type Attachment struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
}

// Message is one append-only entry in a chat's log. The streaming pipeline
// never mutates or deletes messages.
type Message struct {
	Id          uuid.UUID
	ChatId      uuid.UUID
	Role        string
	Parts       []MessagePart
	Attachments []Attachment
	CreatedAt   time.Time
}

// Stream is a handle for one generation attempt, used by clients to discover
// in-flight generations after a reconnect.
type Stream struct {
	Id        uuid.UUID
	ChatId    uuid.UUID
	CreatedAt time.Time
}

// UsageSnapshot carries the provider's raw token counts plus an optional
// cost enrichment from the pricing catalog.
type UsageSnapshot struct {
	ModelId      string `json:"model_id"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	TotalTokens  int    `json:"total_tokens"`

	// Enrichment, absent when the catalog lookup failed or the model is
	// unknown.
	InputCostUSD  string `json:"input_cost_usd,omitempty"`
	OutputCostUSD string `json:"output_cost_usd,omitempty"`
	TotalCostUSD  string `json:"total_cost_usd,omitempty"`
}
