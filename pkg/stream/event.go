package stream

import "ai-chat-be/internal/entity"

// EventType enumerates the client-facing event kinds. The set mirrors the
// provider event union; `done` is the unique terminator.
type EventType string

const (
	EventTextDelta      EventType = "text-delta"
	EventReasoningDelta EventType = "reasoning-delta"
	EventToolCall       EventType = "tool-call"
	EventToolResult     EventType = "tool-result"
	EventUsage          EventType = "usage"
	EventError          EventType = "error"
	EventDone           EventType = "done"
)

// UIEvent is one frame of the client stream. Fields beyond Type are
// populated according to Type and omitted otherwise.
type UIEvent struct {
	Type EventType `json:"type"`

	// Delta carries text-delta and reasoning-delta payloads.
	Delta string `json:"delta,omitempty"`

	ToolCallId string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	ToolInput  string `json:"tool_input,omitempty"`
	ToolOutput string `json:"tool_output,omitempty"`

	Usage *entity.UsageSnapshot `json:"usage,omitempty"`

	// Error is a generic user-visible message; the cause is logged
	// server-side only.
	Error string `json:"error,omitempty"`
}
