// lingo/controllers/user.go
package controllers

import (
	"context"

	"lingo/lingo/sources/psql/models"
	"lingo/lingo/utils/types"
)

type UserController struct {
	users    UserReader
	messages MessageReader
}

type UserReader interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

type MessageReader interface {
	ListRecent(ctx context.Context, roomID string, limit int) ([]models.TranslateMessage, error)
}

func NewUserController(users UserReader, messages MessageReader) *UserController {
	return &UserController{users: users, messages: messages}
}

func (c *UserController) GetUser(ctx context.Context, id int) (*models.User, error) {
	return c.users.GetUserByID(ctx, id)
}

// History returns the latest messages of a room with their translations.
func (c *UserController) History(ctx context.Context, roomID string, limit int) ([]types.MessageView, error) {
	msgs, err := c.messages.ListRecent(ctx, roomID, limit)
	if err != nil {
		return nil, err
	}
	views := make([]types.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, types.MessageView{
			ID:          m.ID,
			UserID:      m.UserID,
			RoomID:      m.RoomID,
			Content:     m.Content,
			TContent:    m.TContent,
			MessageType: m.MessageType,
			Status:      m.Status,
			CreateTime:  m.CreatedAt.UnixMilli(),
		})
	}
	return views, nil
}
