package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	mu     sync.Mutex
	bodies []string
	ctxErr error
	err    error
}

func (p *recordingProcessor) HandleWebhook(ctx context.Context, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodies = append(p.bodies, string(body))
	p.ctxErr = ctx.Err()
	return p.err
}

func newWebhookRouter(h CDRWebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/pbx/cdr", h.Handle)
	return r
}

func TestCDRWebhookHandler_AcknowledgesBeforeProcessing(t *testing.T) {
	p := &recordingProcessor{err: errors.New("boom")}
	var pending []func()
	h := CDRWebhookHandler{
		Processor: p,
		Spawn:     func(f func()) { pending = append(pending, f) },
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/pbx/cdr", strings.NewReader(`{"phone":"101"}`))
	newWebhookRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"received"}`, w.Body.String())
	assert.Empty(t, p.bodies, "processing must not run on the response path")

	require.Len(t, pending, 1)
	pending[0]()
	assert.Equal(t, []string{`{"phone":"101"}`}, p.bodies)
	assert.NoError(t, p.ctxErr, "background context is detached from the request")
}

func TestCDRWebhookHandler_DefaultSpawnRunsInBackground(t *testing.T) {
	p := &recordingProcessor{}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/pbx/cdr", strings.NewReader(`[]`))
	newWebhookRouter(CDRWebhookHandler{Processor: p}).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.bodies) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCDRWebhookHandler_Secret(t *testing.T) {
	p := &recordingProcessor{}
	h := CDRWebhookHandler{Processor: p, Secret: "s3cret", Spawn: func(f func()) { f() }}
	r := newWebhookRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/pbx/cdr", strings.NewReader(`[]`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pbx/cdr", strings.NewReader(`[]`))
	req.Header.Set(headerWebhookSecret, "s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, p.bodies, 1)
}

func TestCDRWebhookHandler_NoProcessor(t *testing.T) {
	w := httptest.NewRecorder()
	newWebhookRouter(CDRWebhookHandler{}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/pbx/cdr", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
