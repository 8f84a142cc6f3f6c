package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	message string
	err     error
}

func (p stubPinger) Ping(ctx context.Context) (string, error) {
	return p.message, p.err
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name    string
		pinger  Pinger
		status  string
		backend interface{}
	}{
		{"no backend configured", nil, "ok", nil},
		{"backend reachable", stubPinger{message: "Welcome"}, "ok", "ok"},
		{"backend down", stubPinger{err: errors.New("connection refused")}, "degraded", "unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("1.2.3", tt.pinger)
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)

			require.NoError(t, h.HandleHealth(c))
			assert.Equal(t, http.StatusOK, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body["status"])
			assert.Equal(t, "1.2.3", body["version"])
			assert.Equal(t, tt.backend, body["backend"])
		})
	}
}
