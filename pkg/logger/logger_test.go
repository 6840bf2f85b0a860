package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/or-scheduler-api/pkg/config"
	"github.com/noah-isme/or-scheduler-api/pkg/middleware/requestid"
)

type fakeClaims struct{ id string }

func (f fakeClaims) Principal() string { return f.id }

func TestGinMiddlewareLevelsByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	router := gin.New()
	router.Use(requestid.Middleware(), GinMiddleware(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) {
		c.Set(ContextUserKey, fakeClaims{id: "u-1"})
		c.Status(http.StatusOK)
	})
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/bad", "/boom"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "u-1", fields["user_id"])
	assert.Equal(t, "/ok", fields["route"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestNewHonoursLevel(t *testing.T) {
	l, err := New(&config.Config{Env: config.EnvProduction, Log: config.LogConfig{Level: "warn", Format: "json"}})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	cli, err := NewCLI(true)
	require.NoError(t, err)
	assert.True(t, cli.Core().Enabled(zapcore.DebugLevel))
}
