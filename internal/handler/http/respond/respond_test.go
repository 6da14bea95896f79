package respond

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newssense/internal/observability/logging"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name         string
		code         int
		data         any
		expectedBody string
	}{
		{
			name:         "success with map",
			code:         http.StatusOK,
			data:         map[string]string{"message": "success"},
			expectedBody: `{"message":"success"}`,
		},
		{
			name:         "success with struct",
			code:         http.StatusCreated,
			data:         struct{ ID int }{ID: 123},
			expectedBody: `{"ID":123}`,
		},
		{
			name:         "nil body",
			code:         http.StatusNoContent,
			data:         nil,
			expectedBody: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JSON(w, tt.code, tt.data)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.expectedBody, strings.TrimSpace(w.Body.String()))
		})
	}
}

func TestJSON_EncodingError(t *testing.T) {
	w := httptest.NewRecorder()
	// チャネルは JSON にできない
	JSON(w, http.StatusOK, map[string]any{"ch": make(chan int)})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMessage(t *testing.T) {
	w := httptest.NewRecorder()
	Message(w, http.StatusOK, "Article saved successfully")

	var body MessageBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Article saved successfully", body.Message)
}

func TestSafeError(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		err     error
		wantMsg string
	}{
		{
			name:    "client error passes through",
			code:    http.StatusBadRequest,
			err:     errors.New("invalid article id"),
			wantMsg: "invalid article id",
		},
		{
			name:    "unauthorized passes through",
			code:    http.StatusUnauthorized,
			err:     errors.New("invalid credentials"),
			wantMsg: "invalid credentials",
		},
		{
			name:    "server error is hidden",
			code:    http.StatusInternalServerError,
			err:     fmt.Errorf("feed articles: %w", errors.New("pq: relation does not exist")),
			wantMsg: InternalMessage,
		},
		{
			name:    "unavailable is hidden",
			code:    http.StatusServiceUnavailable,
			err:     errors.New("circuit breaker is open"),
			wantMsg: InternalMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			SafeError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.code, tt.err)

			assert.Equal(t, tt.code, w.Code)
			var body MessageBody
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestSafeError_NilError(t *testing.T) {
	w := httptest.NewRecorder()
	SafeError(w, nil, http.StatusInternalServerError, nil)
	assert.Empty(t, w.Body.String())
}

func TestSafeError_LogsSanitizedDetail(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, "info")
	req := httptest.NewRequest(http.MethodGet, "/api/news", nil)
	req = req.WithContext(logging.WithLogger(req.Context(), logger))

	w := httptest.NewRecorder()
	SafeError(w, req, http.StatusInternalServerError,
		errors.New("connect postgres://app:hunter2@db:5432/newssense failed"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, slog.LevelError.String(), entry["level"])
	assert.Equal(t, "connect postgres://app:****@db:5432/newssense failed", entry["error"])
	assert.NotContains(t, w.Body.String(), "hunter2")
}
