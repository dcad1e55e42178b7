package controllers

import (
	"encoding/json"
	"net/http"
)

// ConnectionCounter reports how many websocket clients are attached.
type ConnectionCounter interface {
	ConnectionCount() int
}

type HealthController struct {
	conns ConnectionCounter
}

func NewHealthController(conns ConnectionCounter) *HealthController {
	return &HealthController{conns: conns}
}

func (h *HealthController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": h.conns.ConnectionCount(),
	})
}
