package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/legal-agent/src/webclient"
)

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("poll: %w", context.DeadlineExceeded), "timeout"},
		{context.Canceled, "canceled"},
		{&webclient.APIError{Status: http.StatusTooManyRequests}, "rate_limit"},
		{fmt.Errorf("get agent: %w", &webclient.APIError{Status: http.StatusNotFound}), "not_found"},
		{&webclient.APIError{Status: http.StatusUnauthorized}, "auth"},
		{errors.New("boom"), "remote"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Kind(tc.err), fmt.Sprint(tc.err))
	}
}

func TestGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug", "json", "legal-agent")

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(RequestIDKey, "rid-1"); c.Next() })
	r.Use(GinLogger(logger))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "legal-agent", line["service"])
	assert.Equal(t, "rid-1", line["request_id"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, "warn", line["level"])
}

func TestNewDefaultsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "nonsense", "", "svc")
	logger.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	logger.Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}
