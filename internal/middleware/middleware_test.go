// internal/middleware/middleware_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"label-service/internal/config"
)

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestRequestIDMiddlewareGenerates(t *testing.T) {
	router := newTestEngine()
	router.Use(RequestIDMiddleware())

	var seen string
	router.GET("/", func(c *gin.Context) {
		seen = c.GetString("request_id")
		c.Status(http.StatusOK)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	header := resp.Header().Get("X-Request-ID")
	if header == "" {
		t.Fatal("expected X-Request-ID header to be set")
	}
	if header != seen {
		t.Errorf("context request_id %q does not match header %q", seen, header)
	}
	if _, err := uuid.Parse(header); err != nil {
		t.Errorf("generated request ID %q is not a UUID: %v", header, err)
	}
}

func TestRequestIDMiddlewareHonorsCaller(t *testing.T) {
	router := newTestEngine()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "caller-supplied-id")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if got := resp.Header().Get("X-Request-ID"); got != "caller-supplied-id" {
		t.Errorf("expected caller-supplied request ID to be echoed, got %q", got)
	}
}

func TestCORSMiddlewareAllowedOrigin(t *testing.T) {
	router := newTestEngine()
	router.Use(CORSMiddleware(&config.SecurityConfig{
		AllowedOrigins: []string{"http://pos.example.com"},
	}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://pos.example.com")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "http://pos.example.com" {
		t.Errorf("expected allowed origin header, got %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	router := newTestEngine()
	router.Use(RecoveryMiddleware(zap.NewNop()))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", resp.Code)
	}
}

func TestRecoveryMiddlewareLogsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)

	router := newTestEngine()
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("X-Request-ID", "panic-req-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	entries := logs.FilterMessage("Panic recovered").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 panic log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "panic-req-1" {
		t.Errorf("expected request_id on panic log, got %v", got)
	}
}
