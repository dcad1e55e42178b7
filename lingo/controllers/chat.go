// lingo/controllers/chat.go
package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	lerrors "lingo/lingo/errors"
	"lingo/lingo/services/hub"
	"lingo/lingo/services/translate"
	"lingo/lingo/sources/psql/models"
	"lingo/lingo/utils/logging"
	"lingo/lingo/utils/types"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// MessageStore is where translate messages live.
type MessageStore interface {
	Create(ctx context.Context, msg *models.TranslateMessage) (string, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

// Translations starts a translation session for a stored message.
type Translations interface {
	Start(ctx context.Context, job translate.Job) error
}

// ChatController relays group messages: store, echo to the room, then
// hand the message to the translator.
type ChatController struct {
	registry   *hub.Registry
	store      MessageStore
	translator Translations
	now        func() time.Time
}

func NewChatController(registry *hub.Registry, store MessageStore, translator Translations) *ChatController {
	return &ChatController{
		registry:   registry,
		store:      store,
		translator: translator,
		now:        time.Now,
	}
}

// Submit handles groupTranslateEnMessage. The echo is broadcast before the
// translation starts, so it reaches every member ahead of any update.
func (c *ChatController) Submit(ctx context.Context, connID string, req types.TranslateRequest) (map[string]any, error) {
	user, err := c.registry.Authenticated(connID)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: content must be a non-empty string", lerrors.ErrValidation)
	}

	roomID := c.registry.DefaultRoom()
	id, err := c.store.Create(ctx, &models.TranslateMessage{
		UserID:      user.ID,
		RoomID:      roomID,
		Content:     req.Content,
		MessageType: models.MessageTypeText,
		Status:      models.StatusPending,
	})
	if err != nil {
		if !errors.Is(err, lerrors.ErrPersistence) {
			err = fmt.Errorf("%w: %v", lerrors.ErrPersistence, err)
		}
		return nil, err
	}

	echo := make(map[string]any, len(req.Fields)+5)
	for k, v := range req.Fields {
		echo[k] = v
	}
	echo["content"] = req.Content
	echo["userId"] = user.ID
	echo["username"] = user.Username
	echo["id"] = id
	echo["createTime"] = c.now().UnixMilli()
	c.registry.Broadcast(roomID, types.Event{
		Name:    types.EventGroupTranslateMessage,
		Payload: types.OK("", echo),
	})

	if err := c.store.Update(ctx, id, map[string]any{models.ColumnStatus: models.StatusStreaming}); err != nil {
		logging.ErrorLogger.Error("message not marked streaming", zap.String("message_id", id), zap.Error(err))
	}
	if err := c.translator.Start(ctx, translate.Job{MessageID: id, RoomID: roomID, Content: req.Content}); err != nil {
		logging.ErrorLogger.Error("translation not started", zap.String("message_id", id), zap.Error(err))
	}
	return echo, nil
}
