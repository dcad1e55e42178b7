// lingo/controllers/auth.go
package controllers

import (
	"context"
	"fmt"
	"time"

	lerrors "lingo/lingo/errors"
	"lingo/lingo/middlewares"
	"lingo/lingo/sources/psql/models"
	"lingo/lingo/utils/types"
)

const tokenTTL = 24 * time.Hour

type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, username string, avatar *string) (*models.User, error)
}

type AuthController struct {
	users     UserStore
	jwtSecret string
}

func NewAuthController(users UserStore, jwtSecret string) *AuthController {
	return &AuthController{
		users:     users,
		jwtSecret: jwtSecret,
	}
}

// Login issues a token for username, creating the user on first sight.
func (c *AuthController) Login(ctx context.Context, req types.LoginRequest) (types.LoginResponse, error) {
	if err := validate.Struct(req); err != nil {
		return types.LoginResponse{}, fmt.Errorf("%w: username is required", lerrors.ErrValidation)
	}
	user, err := c.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return types.LoginResponse{}, err
	}
	if user == nil {
		user, err = c.users.CreateUser(ctx, req.Username, nil)
		if err != nil {
			return types.LoginResponse{}, err
		}
	}
	token, err := middlewares.IssueToken(c.jwtSecret, user.ID, tokenTTL)
	if err != nil {
		return types.LoginResponse{}, err
	}
	return types.LoginResponse{Token: token, UserID: user.ID}, nil
}
