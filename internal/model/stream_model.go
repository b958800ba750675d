package model

import (
	"time"

	"github.com/google/uuid"
)

type Stream struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatId    uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (Stream) TableName() string {
	return "streams"
}
