package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/cherr"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/pricing"
	"ai-chat-be/pkg/stream"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatStream is a live generation handed to the transport layer. Draining
// Events to completion guarantees the assistant message has been persisted
// (or discarded, on failure) before the last receive returns.
type ChatStream struct {
	StreamId uuid.UUID
	Events   <-chan stream.UIEvent

	// Disconnect marks the consumer as gone. Undelivered events are
	// discarded from then on while the generation runs to completion and
	// persists. Idempotent.
	Disconnect func()
}

type IChatService interface {
	SendMessage(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest) (*ChatStream, error)
	GetHistory(ctx context.Context, userId uuid.UUID, limit int, startingAfter, endingBefore *uuid.UUID) (*dto.GetHistoryResponse, error)
	GetMessages(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) ([]dto.GetMessagesResponse, error)
	GetStreamIds(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.GetStreamIdsResponse, error)
	DeleteChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) error
}

type chatService struct {
	uowFactory     unitofwork.RepositoryFactory
	provider       llm.StreamProvider
	catalog        *pricing.Catalog
	streamRegistry IStreamRegistry
	publisher      IPublisherService
	logger         logger.ILogger

	// messageLimit caps user messages per trailing 24h window. Zero means
	// the quota is observational only: counted and logged, never enforced.
	messageLimit int
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	provider llm.StreamProvider,
	catalog *pricing.Catalog,
	streamRegistry IStreamRegistry,
	publisher IPublisherService,
	log logger.ILogger,
	messageLimit int,
) IChatService {
	return &chatService{
		uowFactory:     uowFactory,
		provider:       provider,
		catalog:        catalog,
		streamRegistry: streamRegistry,
		publisher:      publisher,
		logger:         log,
		messageLimit:   messageLimit,
	}
}

// SendMessage runs the full pipeline for one inbound message: rate gate,
// chat ensure, history load, user append, stream registration, then the
// model invocation whose events are returned as a live ChatStream. The
// assistant message is batch-appended only after the stream completes.
func (s *chatService) SendMessage(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest) (*ChatStream, error) {
	if err := s.checkQuota(ctx, userId); err != nil {
		return nil, err
	}

	chat, err := s.ensureChat(ctx, userId, request)
	if err != nil {
		return nil, err
	}
	if chat.UserId != userId {
		return nil, cherr.New(cherr.ForbiddenChat, "You do not have access to this chat")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	priorMessages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chat.Id},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, cherr.Wrap(cherr.BadRequestDatabase, "Failed to load chat history", err)
	}

	inbound := inboundToEntity(chat.Id, &request.Message)

	// Only user-authored turns are persisted on receipt; assistant turns
	// arriving inbound are treated as transient context.
	if inbound.Role == constant.MessageRoleUser {
		if err := uow.MessageRepository().Create(ctx, inbound); err != nil {
			return nil, cherr.Wrap(cherr.BadRequestDatabase, "Failed to save message", err)
		}
	}

	streamId, err := s.streamRegistry.Register(ctx, chat.Id)
	if err != nil {
		return nil, cherr.Wrap(cherr.BadRequestDatabase, "Failed to register stream", err)
	}

	history := buildProviderHistory(priorMessages, inbound)

	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constant.RequestTimeout)

	events, err := s.provider.StreamChat(genCtx, history,
		llm.WithMaxSteps(constant.MaxGenerationSteps),
		llm.WithWordSmoothing(),
	)
	if err != nil {
		cancel()
		s.logger.Error("CHAT", "Provider refused stream", map[string]interface{}{
			"chat_id": chat.Id,
			"error":   err.Error(),
		})
		return nil, cherr.Wrap(cherr.BadRequestDatabase, "Failed to start generation", err)
	}

	disconnected := make(chan struct{})
	var disconnectOnce sync.Once

	transcoder := &stream.Transcoder{
		Catalog:      s.catalog,
		Logger:       s.logger,
		ModelId:      s.provider.ModelId(),
		Buffer:       constant.StreamBufferSize,
		Disconnected: disconnected,
		OnFinish: func(finish stream.Finish) {
			defer cancel()
			s.finishGeneration(chat.Id, finish)
		},
	}

	return &ChatStream{
		StreamId: streamId,
		Events:   transcoder.Run(genCtx, chat.Id, events),
		Disconnect: func() {
			disconnectOnce.Do(func() { close(disconnected) })
		},
	}, nil
}

// checkQuota counts the user's messages in the trailing window. With a zero
// limit the count is only logged.
func (s *chatService) checkQuota(ctx context.Context, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	since := time.Now().Add(-constant.QuotaWindowHours * time.Hour)

	count, err := uow.MessageRepository().CountUserMessagesSince(ctx, userId, since)
	if err != nil {
		return cherr.Wrap(cherr.BadRequestDatabase, "Failed to check message quota", err)
	}

	if s.messageLimit <= 0 {
		s.logger.Debug("CHAT", "Quota check (observational)", map[string]interface{}{
			"user_id": userId,
			"count":   count,
		})
		return nil
	}
	if count >= int64(s.messageLimit) {
		return cherr.New(cherr.RateLimitChat, "You have exceeded your maximum number of messages for the day! Please try again later.")
	}
	return nil
}

// ensureChat loads the chat or creates it with a generated title. Concurrent
// first messages race on the insert; the conditional create makes the loser
// adopt the winner's row.
func (s *chatService) ensureChat(ctx context.Context, userId uuid.UUID, request *dto.SendMessageRequest) (*entity.Chat, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := uow.ChatRepository().FindOne(ctx, specification.ByID{ID: request.Id})
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cherr.Wrap(cherr.BadRequestDatabase, "Failed to load chat", err)
	}

	title, err := s.generateTitle(ctx, &request.Message)
	if err != nil {
		return nil, cherr.Wrap(cherr.BadRequestDatabase, "Failed to generate chat title", err)
	}

	created, err := uow.ChatRepository().CreateIfAbsent(ctx, &entity.Chat{
		Id:         request.Id,
		UserId:     userId,
		Title:      title,
		Visibility: constant.ChatVisibilityPrivate,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return nil, cherr.Wrap(cherr.BadRequestDatabase, "Failed to create chat", err)
	}
	return created, nil
}

// generateTitle asks the model for a short summary of the first message.
func (s *chatService) generateTitle(ctx context.Context, message *dto.InboundMessage) (string, error) {
	var sb strings.Builder
	for _, part := range message.Parts {
		if part.Type == "text" {
			sb.WriteString(part.Text)
			sb.WriteString("\n")
		}
	}

	prompt := "Generate a short title based on the first message a user begins a conversation with. " +
		"Keep it under 80 characters, summarize the message, do not use quotes or colons. " +
		"Respond with the title only.\n\nMessage:\n" + sb.String()

	title, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"`))
	if title == "" {
		title = "New Chat"
	}
	if len(title) > constant.TitleMaxLength {
		title = title[:constant.TitleMaxLength]
	}
	return title, nil
}

// finishGeneration is the post-stream persistence path. It runs detached
// from the request context so a client disconnect cannot abort the flush.
func (s *chatService) finishGeneration(chatId uuid.UUID, finish stream.Finish) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	defer s.streamRegistry.MarkFinished(ctx, chatId)

	if finish.Failed {
		s.logger.Warn("CHAT", "Generation failed, discarding assistant output", map[string]interface{}{
			"chat_id": chatId,
		})
		return
	}

	if len(finish.Messages) > 0 {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		if err := uow.MessageRepository().CreateBulk(ctx, finish.Messages); err != nil {
			s.logger.Error("CHAT", "Failed to persist assistant message", map[string]interface{}{
				"chat_id": chatId,
				"error":   err.Error(),
			})
			return
		}
	}

	if finish.Usage != nil {
		payload, err := json.Marshal(dto.PublishGenerationFinishedMessage{
			ChatId: chatId,
			Usage:  *finish.Usage,
		})
		if err == nil {
			err = s.publisher.Publish(ctx, payload)
		}
		if err != nil {
			// Usage bookkeeping is best-effort; the chat itself is intact.
			s.logger.Warn("CHAT", "Failed to publish usage snapshot", map[string]interface{}{
				"chat_id": chatId,
				"error":   err.Error(),
			})
		}
	}
}

// GetHistory pages the user's chats newest-first. Exactly one cursor may be
// given: starting_after keeps chats created after the cursor, ending_before
// keeps chats created before it.
func (s *chatService) GetHistory(ctx context.Context, userId uuid.UUID, limit int, startingAfter, endingBefore *uuid.UUID) (*dto.GetHistoryResponse, error) {
	if startingAfter != nil && endingBefore != nil {
		return nil, cherr.New(cherr.BadRequestAPI, "Only one of starting_after or ending_before can be provided")
	}
	if limit <= 0 {
		limit = constant.HistoryPageSize
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Limit{N: limit + 1},
	}

	if cursorId := startingAfter; cursorId != nil || endingBefore != nil {
		which := "starting_after"
		if cursorId == nil {
			cursorId = endingBefore
			which = "ending_before"
		}
		cursor, err := uow.ChatRepository().FindOne(ctx, specification.ByID{ID: *cursorId})
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, cherr.New(cherr.NotFoundDatabase, "Chat "+which+" cursor not found")
			}
			return nil, cherr.Wrap(cherr.BadRequestDatabase, "Failed to resolve cursor", err)
		}
		if which == "starting_after" {
			specs = append(specs, specification.CreatedAfter{At: cursor.CreatedAt})
		} else {
			specs = append(specs, specification.CreatedBefore{At: cursor.CreatedAt})
		}
	}

	chats, err := uow.ChatRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, cherr.Wrap(cherr.BadRequestDatabase, "Failed to load chats", err)
	}

	hasMore := len(chats) > limit
	if hasMore {
		chats = chats[:limit]
	}

	response := &dto.GetHistoryResponse{
		Chats:   make([]dto.ChatSummaryResponse, len(chats)),
		HasMore: hasMore,
	}
	for i, chat := range chats {
		response.Chats[i] = dto.ChatSummaryResponse{
			Id:          chat.Id,
			Title:       chat.Title,
			Visibility:  chat.Visibility,
			CreatedAt:   chat.CreatedAt,
			LastContext: chat.LastContext,
		}
	}
	return response, nil
}

func (s *chatService) GetMessages(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) ([]dto.GetMessagesResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.ownedChat(ctx, uow, userId, chatId); err != nil {
		return nil, err
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chatId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, cherr.Wrap(cherr.BadRequestDatabase, "Failed to load messages", err)
	}

	response := make([]dto.GetMessagesResponse, len(messages))
	for i, m := range messages {
		response[i] = dto.GetMessagesResponse{
			Id:          m.Id,
			Role:        m.Role,
			Parts:       m.Parts,
			Attachments: m.Attachments,
			CreatedAt:   m.CreatedAt,
		}
	}
	return response, nil
}

// GetStreamIds lists generation handles for a chat, most recent first.
func (s *chatService) GetStreamIds(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.GetStreamIdsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.ownedChat(ctx, uow, userId, chatId); err != nil {
		return nil, err
	}

	ids, err := s.streamRegistry.ListByChat(ctx, chatId)
	if err != nil {
		return nil, cherr.Wrap(cherr.BadRequestDatabase, "Failed to load streams", err)
	}
	return &dto.GetStreamIdsResponse{StreamIds: ids}, nil
}

func (s *chatService) DeleteChat(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.ownedChat(ctx, uow, userId, chatId); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return cherr.Wrap(cherr.BadRequestDatabase, "Failed to start transaction", err)
	}
	defer uow.Rollback()

	if err := uow.MessageRepository().DeleteByChatId(ctx, chatId); err != nil {
		return cherr.Wrap(cherr.BadRequestDatabase, "Failed to delete messages", err)
	}
	if err := uow.StreamRepository().DeleteByChatId(ctx, chatId); err != nil {
		return cherr.Wrap(cherr.BadRequestDatabase, "Failed to delete streams", err)
	}
	if err := uow.ChatRepository().Delete(ctx, chatId); err != nil {
		return cherr.Wrap(cherr.BadRequestDatabase, "Failed to delete chat", err)
	}

	if err := uow.Commit(); err != nil {
		return cherr.Wrap(cherr.BadRequestDatabase, "Failed to commit deletion", err)
	}
	return nil
}

func (s *chatService) ownedChat(ctx context.Context, uow unitofwork.UnitOfWork, userId, chatId uuid.UUID) (*entity.Chat, error) {
	chat, err := uow.ChatRepository().FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cherr.New(cherr.NotFoundDatabase, "Chat not found")
		}
		return nil, cherr.Wrap(cherr.BadRequestDatabase, "Failed to load chat", err)
	}
	if chat.UserId != userId {
		return nil, cherr.New(cherr.ForbiddenChat, "You do not have access to this chat")
	}
	return chat, nil
}

func inboundToEntity(chatId uuid.UUID, message *dto.InboundMessage) *entity.Message {
	parts := make([]entity.MessagePart, len(message.Parts))
	for i, p := range message.Parts {
		parts[i] = entity.MessagePart{
			Type:          p.Type,
			Text:          p.Text,
			FileURL:       p.FileURL,
			FileMediaType: p.FileMediaType,
		}
	}
	attachments := message.Attachments
	if attachments == nil {
		attachments = []entity.Attachment{}
	}
	return &entity.Message{
		Id:          uuid.New(),
		ChatId:      chatId,
		Role:        message.Role,
		Parts:       parts,
		Attachments: attachments,
		CreatedAt:   time.Now(),
	}
}

// buildProviderHistory flattens stored messages plus the inbound turn into
// the provider's role/content format. Non-text parts contribute nothing.
func buildProviderHistory(prior []*entity.Message, inbound *entity.Message) []llm.Message {
	history := make([]llm.Message, 0, len(prior)+1)
	for _, m := range prior {
		if text := textOf(m); text != "" {
			history = append(history, llm.Message{Role: m.Role, Content: text})
		}
	}
	if text := textOf(inbound); text != "" {
		history = append(history, llm.Message{Role: inbound.Role, Content: text})
	}
	return history
}

func textOf(m *entity.Message) string {
	var sb strings.Builder
	for _, part := range m.Parts {
		if part.Type == "text" {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
