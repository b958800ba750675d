package service

import (
	"context"
	"encoding/json"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// usageConsumerService applies post-generation usage snapshots to
// chat.last_context. Failures here never surface to the chat request; the
// snapshot is advisory bookkeeping.
type usageConsumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewUsageConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
) IConsumerService {
	return &usageConsumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
		logger:     log,
	}
}

func (cs *usageConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *usageConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishGenerationFinishedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Warn("USAGE_CONSUMER", "Failed to unmarshal message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatRepository().UpdateLastContext(ctx, payload.ChatId, &payload.Usage); err != nil {
		// Last-context is best-effort; do not retry against a chat that may
		// already be deleted.
		cs.logger.Warn("USAGE_CONSUMER", "Failed to update last context", map[string]interface{}{
			"chat_id": payload.ChatId,
			"error":   err.Error(),
		})
		msg.Ack()
		return
	}

	cs.logger.Debug("USAGE_CONSUMER", "Applied usage snapshot", map[string]interface{}{
		"chat_id": payload.ChatId,
		"model":   payload.Usage.ModelId,
	})
	msg.Ack()
}
