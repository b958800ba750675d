package mapper

import (
	"encoding/json"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/model"

	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Chat Mappers

func (m *ChatMapper) ChatToEntity(c *model.Chat) *entity.Chat {
	if c == nil {
		return nil
	}

	var lastContext *entity.UsageSnapshot
	if len(c.LastContext) > 0 {
		var snap entity.UsageSnapshot
		if err := json.Unmarshal(c.LastContext, &snap); err == nil {
			lastContext = &snap
		}
	}

	return &entity.Chat{
		Id:          c.Id,
		UserId:      c.UserId,
		Title:       c.Title,
		Visibility:  c.Visibility,
		LastContext: lastContext,
		CreatedAt:   c.CreatedAt,
	}
}

func (m *ChatMapper) ChatToModel(c *entity.Chat) *model.Chat {
	if c == nil {
		return nil
	}

	var lastContext datatypes.JSON
	if c.LastContext != nil {
		if raw, err := json.Marshal(c.LastContext); err == nil {
			lastContext = raw
		}
	}

	return &model.Chat{
		Id:          c.Id,
		UserId:      c.UserId,
		Title:       c.Title,
		Visibility:  c.Visibility,
		LastContext: lastContext,
		CreatedAt:   c.CreatedAt,
	}
}

// Message Mappers

func (m *ChatMapper) MessageToEntity(msg *model.Message) *entity.Message {
	if msg == nil {
		return nil
	}

	var parts []entity.MessagePart
	if len(msg.Parts) > 0 {
		_ = json.Unmarshal(msg.Parts, &parts)
	}

	var attachments []entity.Attachment
	if len(msg.Attachments) > 0 {
		_ = json.Unmarshal(msg.Attachments, &attachments)
	}

	return &entity.Message{
		Id:          msg.Id,
		ChatId:      msg.ChatId,
		Role:        msg.Role,
		Parts:       parts,
		Attachments: attachments,
		CreatedAt:   msg.CreatedAt,
	}
}

func (m *ChatMapper) MessageToModel(msg *entity.Message) *model.Message {
	if msg == nil {
		return nil
	}

	parts, err := json.Marshal(msg.Parts)
	if err != nil || msg.Parts == nil {
		parts = []byte("[]")
	}

	attachments, err := json.Marshal(msg.Attachments)
	if err != nil || msg.Attachments == nil {
		attachments = []byte("[]")
	}

	return &model.Message{
		Id:          msg.Id,
		ChatId:      msg.ChatId,
		Role:        msg.Role,
		Parts:       parts,
		Attachments: attachments,
		CreatedAt:   msg.CreatedAt,
	}
}

func (m *ChatMapper) MessagesToEntities(models []*model.Message) []*entity.Message {
	entities := make([]*entity.Message, len(models))
	for i, msg := range models {
		entities[i] = m.MessageToEntity(msg)
	}
	return entities
}

// Stream Mappers

func (m *ChatMapper) StreamToEntity(s *model.Stream) *entity.Stream {
	if s == nil {
		return nil
	}
	return &entity.Stream{
		Id:        s.Id,
		ChatId:    s.ChatId,
		CreatedAt: s.CreatedAt,
	}
}

func (m *ChatMapper) StreamToModel(s *entity.Stream) *model.Stream {
	if s == nil {
		return nil
	}
	return &model.Stream{
		Id:        s.Id,
		ChatId:    s.ChatId,
		CreatedAt: s.CreatedAt,
	}
}
