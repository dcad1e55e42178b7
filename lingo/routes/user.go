package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"lingo/lingo/controllers"
	"lingo/lingo/middlewares"
	"lingo/lingo/services/hub"

	"github.com/go-chi/chi/v5"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// generic wrapper to reduce boilerplate
func handleJSON(handler func(r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(r)
		if err != nil {
			http.Error(w, err.Error(), status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(res)
	}
}

func UserRoutes(ctrl *controllers.UserController, verifier hub.AuthVerifier, defaultRoom string) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares.AuthMiddleware(verifier))

	r.Get("/users/me", handleJSON(func(r *http.Request) (any, int, error) {
		me, ok := middlewares.UserFromContext(r.Context())
		if !ok {
			return nil, http.StatusUnauthorized, errors.New("unauthorized")
		}
		user, err := ctrl.GetUser(r.Context(), me.ID)
		if err != nil {
			return nil, http.StatusInternalServerError, err
		}
		if user == nil {
			return nil, http.StatusNotFound, errors.New("user not found")
		}
		return user, http.StatusOK, nil
	}))

	// GET /messages?room=1&limit=50 : recent messages with their translations
	r.Get("/messages", handleJSON(func(r *http.Request) (any, int, error) {
		room := r.URL.Query().Get("room")
		if room == "" {
			room = defaultRoom
		}
		limit := defaultHistoryLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return nil, http.StatusBadRequest, errors.New("limit must be a positive integer")
			}
			limit = min(n, maxHistoryLimit)
		}
		msgs, err := ctrl.History(r.Context(), room, limit)
		if err != nil {
			return nil, http.StatusInternalServerError, err
		}
		return msgs, http.StatusOK, nil
	}))
	return r
}
