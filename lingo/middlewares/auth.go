// lingo/middlewares/auth.go
package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	lerrors "lingo/lingo/errors"
	"lingo/lingo/services/hub"
	"lingo/lingo/sources/psql/models"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserKey contextKey = "user"

// UserLookup resolves the user id carried by a token.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

// JWTVerifier checks HS256 tokens carrying a numeric user_id claim.
type JWTVerifier struct {
	secret []byte
	users  UserLookup
}

func NewJWTVerifier(secret string, users UserLookup) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), users: users}
}

func (v *JWTVerifier) Verify(ctx context.Context, tokenStr string) (hub.User, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return hub.User{}, fmt.Errorf("%w: invalid token", lerrors.ErrAuth)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return hub.User{}, fmt.Errorf("%w: invalid claims", lerrors.ErrAuth)
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return hub.User{}, fmt.Errorf("%w: invalid user_id", lerrors.ErrAuth)
	}
	user, err := v.users.GetUserByID(ctx, int(userID))
	if err != nil {
		return hub.User{}, err
	}
	if user == nil {
		return hub.User{}, fmt.Errorf("%w: unknown user %d", lerrors.ErrAuth, int(userID))
	}
	return hub.User{ID: user.ID, Username: user.Username}, nil
}

// IssueToken signs a token that Verify accepts until ttl elapses.
func IssueToken(secret string, userID int, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func AuthMiddleware(verifier hub.AuthVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Split(r.Header.Get("Authorization"), " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			user, err := verifier.Verify(r.Context(), parts[1])
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserFromContext(ctx context.Context) (hub.User, bool) {
	user, ok := ctx.Value(UserKey).(hub.User)
	return user, ok
}
