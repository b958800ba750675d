package contract

import (
	"context"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	CreateBulk(ctx context.Context, messages []*entity.Message) error
	DeleteByChatId(ctx context.Context, chatId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	// CountUserMessagesSince counts user-authored messages across all of the
	// user's chats created at or after the given instant.
	CountUserMessagesSince(ctx context.Context, userId uuid.UUID, since time.Time) (int64, error)
}
