package implementation

import (
	"context"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/mapper"
	"ai-chat-be/internal/model"
	"ai-chat-be/internal/repository/contract"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StreamRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewStreamRepository(db *gorm.DB) contract.StreamRepository {
	return &StreamRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *StreamRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *StreamRepositoryImpl) Create(ctx context.Context, stream *entity.Stream) error {
	m := r.mapper.StreamToModel(stream)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*stream = *r.mapper.StreamToEntity(m)
	return nil
}

func (r *StreamRepositoryImpl) DeleteByChatId(ctx context.Context, chatId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("chat_id = ?", chatId).Delete(&model.Stream{}).Error
}

func (r *StreamRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Stream, error) {
	var models []*model.Stream
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Stream, len(models))
	for i, m := range models {
		entities[i] = r.mapper.StreamToEntity(m)
	}
	return entities, nil
}
