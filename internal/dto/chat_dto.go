package dto

import (
	"time"

	"ai-chat-be/internal/entity"

	"github.com/google/uuid"
)

// SendMessageRequest is the POST /api/chat/v1 body. Id is the chat id chosen
// by the client; the chat row is created on first message.
type SendMessageRequest struct {
	Id      uuid.UUID      `json:"id" validate:"required"`
	Message InboundMessage `json:"message" validate:"required"`
}

type InboundMessage struct {
	Role        string               `json:"role" validate:"required,oneof=user assistant system"`
	Parts       []MessagePartDTO     `json:"parts" validate:"required,min=1,dive"`
	Attachments []entity.Attachment  `json:"attachments,omitempty" validate:"max=10"`
}

type MessagePartDTO struct {
	Type string `json:"type" validate:"required,oneof=text reasoning tool-call tool-result file"`
	Text string `json:"text,omitempty"`

	FileURL       string `json:"file_url,omitempty"`
	FileMediaType string `json:"file_media_type,omitempty"`
}

type ChatSummaryResponse struct {
	Id          uuid.UUID             `json:"id"`
	Title       string                `json:"title"`
	Visibility  string                `json:"visibility"`
	CreatedAt   time.Time             `json:"created_at"`
	LastContext *entity.UsageSnapshot `json:"last_context,omitempty"`
}

// GetHistoryResponse is the cursor-paginated chat list.
type GetHistoryResponse struct {
	Chats   []ChatSummaryResponse `json:"chats"`
	HasMore bool                  `json:"has_more"`
}

type GetMessagesResponse struct {
	Id          uuid.UUID            `json:"id"`
	Role        string               `json:"role"`
	Parts       []entity.MessagePart `json:"parts"`
	Attachments []entity.Attachment  `json:"attachments,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

type GetStreamIdsResponse struct {
	StreamIds []uuid.UUID `json:"stream_ids"`
}

// PublishGenerationFinishedMessage is the event payload published after a
// completed generation; the usage consumer applies it to chat.last_context.
type PublishGenerationFinishedMessage struct {
	ChatId uuid.UUID            `json:"chat_id"`
	Usage  entity.UsageSnapshot `json:"usage"`
}
