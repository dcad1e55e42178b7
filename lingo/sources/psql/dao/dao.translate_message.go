package dao

import (
	"context"
	"fmt"

	lerrors "lingo/lingo/errors"
	"lingo/lingo/sources/psql/models"
	"lingo/lingo/utils/logging"

	"gorm.io/gorm"
)

type TranslateMessageDAO struct {
	DB *gorm.DB
}

func NewTranslateMessageDAO(db *gorm.DB) *TranslateMessageDAO {
	return &TranslateMessageDAO{DB: db}
}

// Create inserts msg and returns the id the store assigned to it.
func (dao *TranslateMessageDAO) Create(ctx context.Context, msg *models.TranslateMessage) (string, error) {
	defer logging.LogDuration(ctx, "dao_translate_message_create")()
	if err := dao.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return "", fmt.Errorf("%w: create: %v", lerrors.ErrPersistence, err)
	}
	return msg.ID, nil
}

// Update applies a partial update keyed by column name.
func (dao *TranslateMessageDAO) Update(ctx context.Context, id string, fields map[string]any) error {
	defer logging.LogDuration(ctx, "dao_translate_message_update")()
	res := dao.DB.WithContext(ctx).
		Model(&models.TranslateMessage{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("%w: update %s: %v", lerrors.ErrPersistence, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: update %s: %v", lerrors.ErrPersistence, id, gorm.ErrRecordNotFound)
	}
	return nil
}

func (dao *TranslateMessageDAO) GetByID(ctx context.Context, id string) (*models.TranslateMessage, error) {
	var msg models.TranslateMessage
	err := dao.DB.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListRecent returns up to limit messages of a room, oldest first.
func (dao *TranslateMessageDAO) ListRecent(ctx context.Context, roomID string, limit int) ([]models.TranslateMessage, error) {
	var msgs []models.TranslateMessage
	err := dao.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
