package httptransport_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tokens "github.com/oggyb/vivah/internal/auth"
	"github.com/oggyb/vivah/internal/db"
	"github.com/oggyb/vivah/internal/logger"
	httptransport "github.com/oggyb/vivah/internal/transport/http"
)

func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		out = append(out, rec)
	}
	return out
}

func TestAccessLog_StoresRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	jwt := tokens.NewJWTService("test-secret", "vivah-test", time.Hour)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context(), nil).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	})
	h := middleware.RequestID(httptransport.AccessLog(base)(httptransport.RequireAuth(jwt, base)(inner)))

	tok, _, err := jwt.GenerateAccessToken("u1", db.RoleUser)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	logs := records(t, &buf)
	require.Len(t, logs, 2)
	assert.Equal(t, "inside handler", logs[0]["msg"])
	assert.Equal(t, "u1", logs[0]["user_id"])
	assert.NotEmpty(t, logs[0]["request_id"])

	assert.Equal(t, "http request", logs[1]["msg"])
	assert.Equal(t, logs[0]["request_id"], logs[1]["request_id"])
	assert.NotContains(t, logs[1], "user_id")
	assert.EqualValues(t, http.StatusNoContent, logs[1]["status"])
}

func TestRequireAuth_InvalidTokenLogsWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	jwt := tokens.NewJWTService("test-secret", "vivah-test", time.Hour)

	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("handler must not run")
	})
	h := middleware.RequestID(httptransport.AccessLog(base)(httptransport.RequireAuth(jwt, base)(inner)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	logs := records(t, &buf)
	require.Len(t, logs, 2)
	assert.Equal(t, "WARN", logs[0]["level"])
	assert.NotEmpty(t, logs[0]["request_id"])
	assert.Equal(t, logs[0]["request_id"], logs[1]["request_id"])
}
