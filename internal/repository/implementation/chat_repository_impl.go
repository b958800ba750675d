package implementation

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/mapper"
	"ai-chat-be/internal/model"
	"ai-chat-be/internal/repository/contract"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatRepository(db *gorm.DB) contract.ChatRepository {
	return &ChatRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// CreateIfAbsent relies on the primary-key uniqueness constraint as the sole
// source of truth for "already exists": ON CONFLICT DO NOTHING, then re-read.
// Two requests racing to create the same chat both end up with the winning
// row, title included.
func (r *ChatRepositoryImpl) CreateIfAbsent(ctx context.Context, chat *entity.Chat) (*entity.Chat, error) {
	m := r.mapper.ChatToModel(chat)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(m).Error; err != nil {
		return nil, err
	}

	var stored model.Chat
	if err := r.db.WithContext(ctx).First(&stored, "id = ?", chat.Id).Error; err != nil {
		return nil, err
	}
	return r.mapper.ChatToEntity(&stored), nil
}

func (r *ChatRepositoryImpl) UpdateLastContext(ctx context.Context, chatId uuid.UUID, usage *entity.UsageSnapshot) error {
	raw, err := json.Marshal(usage)
	if err != nil {
		return fmt.Errorf("marshal usage snapshot: %w", err)
	}
	return r.db.WithContext(ctx).
		Model(&model.Chat{}).
		Where("id = ?", chatId).
		Update("last_context", datatypes.JSON(raw)).Error
}

func (r *ChatRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Chat{}, id).Error
}

func (r *ChatRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chat, error) {
	var m model.Chat
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		return nil, err
	}
	return r.mapper.ChatToEntity(&m), nil
}

func (r *ChatRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chat, error) {
	var models []*model.Chat
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Chat, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatToEntity(m)
	}
	return entities, nil
}
