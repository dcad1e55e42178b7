// lingo/utils/types/user.go
package types

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
}

type LoginResponse struct {
	Token  string `json:"token"`
	UserID int    `json:"userId"`
}
