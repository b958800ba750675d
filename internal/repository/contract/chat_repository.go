package contract

import (
	"context"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatRepository interface {
	// CreateIfAbsent inserts the chat unless a row with the same id already
	// exists. Returns the row that ended up in the store, so a racing loser
	// adopts the winner's title.
	CreateIfAbsent(ctx context.Context, chat *entity.Chat) (*entity.Chat, error)
	UpdateLastContext(ctx context.Context, chatId uuid.UUID, usage *entity.UsageSnapshot) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chat, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chat, error)
}
