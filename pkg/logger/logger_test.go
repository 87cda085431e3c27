package logger

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetach_SurvivesCancellationAndKeepsLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, cancel := context.WithCancel(With(context.Background(), l))
	detached := Detach(ctx, "component", "webhook")
	cancel()

	assert.Error(t, ctx.Err())
	assert.NoError(t, detached.Err())

	From(detached).Info("hello")
	assert.Contains(t, buf.String(), "component=webhook")
}

func TestMiddleware_PropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/x", func(c *gin.Context) {
		From(c.Request.Context()).Info("inside")
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "rid-1", w.Header().Get(headerRequestID))
	assert.Contains(t, buf.String(), "msg=inside request_id=rid-1")
}

func TestMiddleware_LevelFollowsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	levels := map[string]string{"/healthz": "level=DEBUG", "/missing": "level=WARN", "/boom": "level=ERROR"}
	for path, want := range levels {
		buf.Reset()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		assert.Contains(t, buf.String(), want, path)
		assert.Contains(t, buf.String(), "route="+path, path)
	}
}

func TestNew_FormatAndLevelByEnv(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "local").Debug("hi")
	assert.Contains(t, buf.String(), "level=DEBUG msg=hi")

	buf.Reset()
	l := newLogger(&buf, "production")
	l.Debug("hidden")
	l.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"service":"crm-telephony"`)
}
