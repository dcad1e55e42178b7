package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type fixedCount int

func (f fixedCount) ConnectionCount() int { return int(f) }

func TestHealthCheck(t *testing.T) {
	hc := NewHealthController(fixedCount(3))
	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()

	hc.HealthCheck(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	expectedBody := `{"connections":3,"status":"ok"}` + "\n"
	if rr.Body.String() != expectedBody {
		t.Errorf("expected body %q, got %q", expectedBody, rr.Body.String())
	}

	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected Content-Type application/json, got %v", rr.Header().Get("Content-Type"))
	}
}
