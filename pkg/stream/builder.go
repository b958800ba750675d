package stream

import (
	"time"

	"ai-chat-be/internal/entity"

	"github.com/google/uuid"
)

// MessageBuilder accumulates streamed content parts into the assistant
// message that gets persisted after the stream completes. Consecutive deltas
// of the same kind collapse into one part.
type MessageBuilder struct {
	parts []entity.MessagePart
}

func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{}
}

func (b *MessageBuilder) AddText(delta string) {
	if n := len(b.parts); n > 0 && b.parts[n-1].Type == "text" {
		b.parts[n-1].Text += delta
		return
	}
	b.parts = append(b.parts, entity.MessagePart{Type: "text", Text: delta})
}

func (b *MessageBuilder) AddReasoning(delta string) {
	if n := len(b.parts); n > 0 && b.parts[n-1].Type == "reasoning" {
		b.parts[n-1].Text += delta
		return
	}
	b.parts = append(b.parts, entity.MessagePart{Type: "reasoning", Text: delta})
}

func (b *MessageBuilder) AddToolCall(callId, name, input string) {
	b.parts = append(b.parts, entity.MessagePart{
		Type:       "tool-call",
		ToolCallId: callId,
		ToolName:   name,
		ToolInput:  input,
	})
}

func (b *MessageBuilder) AddToolResult(callId, name, output string) {
	b.parts = append(b.parts, entity.MessagePart{
		Type:       "tool-result",
		ToolCallId: callId,
		ToolName:   name,
		ToolOutput: output,
	})
}

func (b *MessageBuilder) Empty() bool {
	return len(b.parts) == 0
}

// Messages materializes the accumulated parts as assistant messages ready
// for batch append.
func (b *MessageBuilder) Messages(chatId uuid.UUID, now time.Time) []*entity.Message {
	if b.Empty() {
		return nil
	}
	return []*entity.Message{{
		Id:          uuid.New(),
		ChatId:      chatId,
		Role:        "assistant",
		Parts:       b.parts,
		Attachments: []entity.Attachment{},
		CreatedAt:   now,
	}}
}
