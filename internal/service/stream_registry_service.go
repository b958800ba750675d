package service

import (
	"context"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// IStreamRegistry records one handle per generation attempt so a
// reconnecting client can discover in-flight streams for a chat.
type IStreamRegistry interface {
	Register(ctx context.Context, chatId uuid.UUID) (uuid.UUID, error)
	ListByChat(ctx context.Context, chatId uuid.UUID) ([]uuid.UUID, error)
	MarkFinished(ctx context.Context, chatId uuid.UUID)
}

type streamRegistry struct {
	uowFactory unitofwork.RepositoryFactory
	rdb        *redis.Client // optional, nil when Redis is unavailable
	logger     logger.ILogger
}

func NewStreamRegistry(uowFactory unitofwork.RepositoryFactory, rdb *redis.Client, log logger.ILogger) IStreamRegistry {
	return &streamRegistry{
		uowFactory: uowFactory,
		rdb:        rdb,
		logger:     log,
	}
}

func activeStreamKey(chatId uuid.UUID) string {
	return "chat:stream:active:" + chatId.String()
}

// Register persists the handle, then marks the chat as having an in-flight
// generation in Redis. The DB row is authoritative; the Redis marker only
// accelerates cross-instance "is something running" checks and expires on
// its own if the finish path never runs.
func (r *streamRegistry) Register(ctx context.Context, chatId uuid.UUID) (uuid.UUID, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)

	stream := entity.Stream{
		Id:        uuid.New(),
		ChatId:    chatId,
		CreatedAt: time.Now(),
	}
	if err := uow.StreamRepository().Create(ctx, &stream); err != nil {
		return uuid.Nil, err
	}

	if r.rdb != nil {
		ttl := constant.RequestTimeout + 5*time.Second
		if err := r.rdb.Set(ctx, activeStreamKey(chatId), stream.Id.String(), ttl).Err(); err != nil {
			r.logger.Warn("STREAM_REGISTRY", "Failed to set active stream marker", map[string]interface{}{
				"chat_id": chatId,
				"error":   err.Error(),
			})
		}
	}

	return stream.Id, nil
}

func (r *streamRegistry) ListByChat(ctx context.Context, chatId uuid.UUID) ([]uuid.UUID, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)

	streams, err := uow.StreamRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chatId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(streams))
	for i, s := range streams {
		ids[i] = s.Id
	}
	return ids, nil
}

func (r *streamRegistry) MarkFinished(ctx context.Context, chatId uuid.UUID) {
	if r.rdb == nil {
		return
	}
	if err := r.rdb.Del(ctx, activeStreamKey(chatId)).Err(); err != nil {
		r.logger.Warn("STREAM_REGISTRY", "Failed to clear active stream marker", map[string]interface{}{
			"chat_id": chatId,
			"error":   err.Error(),
		})
	}
}
