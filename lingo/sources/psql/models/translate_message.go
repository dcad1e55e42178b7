package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPending   = "pending"
	StatusStreaming = "streaming"
	StatusComplete  = "complete"

	MessageTypeText = "text"
)

// Column names accepted by TranslateMessageDAO.Update.
const (
	ColumnStatus   = "status"
	ColumnTContent = "t_content"
)

type TranslateMessage struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID      int       `json:"user_id" gorm:"not null;index"`
	RoomID      string    `json:"room_id" gorm:"type:varchar(255);not null;index"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	TContent    string    `json:"t_content" gorm:"type:text;not null;default:''"`
	MessageType string    `json:"message_type" gorm:"type:varchar(32);not null"`
	Status      string    `json:"status" gorm:"type:varchar(16);not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (TranslateMessage) TableName() string {
	return "translate_messages"
}

// BeforeCreate assigns the id, so callers never choose one.
func (m *TranslateMessage) BeforeCreate(tx *gorm.DB) error {
	m.ID = uuid.NewString()
	return nil
}
