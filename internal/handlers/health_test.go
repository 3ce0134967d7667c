package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakePinger stands in for the database in readiness checks.
type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(ctx context.Context) error {
	return p.err
}

func TestHealthHandler_Health(t *testing.T) {
	handler := NewHealthHandler(nil, "NEC 2023", "test")
	router := gin.New()
	router.GET("/health", handler.Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name           string
		db             *fakePinger
		expectedStatus int
		expectedBody   ReadyResponse
	}{
		{
			name:           "history disabled",
			db:             nil,
			expectedStatus: http.StatusOK,
			expectedBody:   ReadyResponse{Status: "ready", Database: "disabled"},
		},
		{
			name:           "database reachable",
			db:             &fakePinger{},
			expectedStatus: http.StatusOK,
			expectedBody:   ReadyResponse{Status: "ready", Database: "connected"},
		},
		{
			name:           "database down",
			db:             &fakePinger{err: errors.New("connection refused")},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   ReadyResponse{Status: "not_ready", Database: "disconnected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(nil, "NEC 2023", "test")
			if tt.db != nil {
				handler = NewHealthHandler(tt.db, "NEC 2023", "test")
			}
			router := gin.New()
			router.GET("/health/ready", handler.Ready)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			var body ReadyResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedBody, body)
		})
	}
}

func TestHealthHandler_Info(t *testing.T) {
	handler := NewHealthHandler(&fakePinger{}, "NEC 2023", "production")
	handler.startTime = time.Now().Add(-90 * time.Minute)
	router := gin.New()
	router.GET("/api/v1/info", handler.Info)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/info", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body InfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, APIVersion, body.Version)
	assert.Equal(t, "production", body.Environment)
	assert.Equal(t, "NEC 2023", body.TableEdition)
	assert.True(t, body.History)
	assert.Contains(t, body.Uptime, "1h 30m")
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"seconds only", 45 * time.Second, "0h 0m 45s"},
		{"minutes and seconds", 5*time.Minute + 30*time.Second, "0h 5m 30s"},
		{"hours minutes seconds", 2*time.Hour + 15*time.Minute + 10*time.Second, "2h 15m 10s"},
		{"days", 50*time.Hour + 3*time.Minute, "2d 2h 3m 0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatUptime(tt.duration))
		})
	}
}
