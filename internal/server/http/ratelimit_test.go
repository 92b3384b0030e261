package httpserver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant-service/internal/domain"
)

func newTestLimiter(t *testing.T, max int) (*rateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	l := newRateLimiter(rdb, max, time.Second, nil, zerolog.Nop())
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }
	return l, mr
}

func serveThrough(h http.Handler, remoteAddr string, user *domain.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = remoteAddr
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), ctxKeyUser, user))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// failCommandHook fails every command with the given name.
type failCommandHook struct {
	name string
}

func (h failCommandHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h failCommandHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == h.name {
			err := errors.New(h.name + " refused")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (h failCommandHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRateLimiter(t *testing.T) {
	t.Run("rejects requests over the limit per ip", func(t *testing.T) {
		l, mr := newTestLimiter(t, 2)
		h := l.Handler(okHandler())

		assert.Equal(t, http.StatusOK, serveThrough(h, "10.0.0.1:5000", nil).Code)
		assert.Equal(t, http.StatusOK, serveThrough(h, "10.0.0.1:5001", nil).Code)

		rec := serveThrough(h, "10.0.0.1:5002", nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
		assert.JSONEq(t, `{"error":"rate limited"}`, rec.Body.String())

		// Another client has its own counter.
		assert.Equal(t, http.StatusOK, serveThrough(h, "10.0.0.2:5000", nil).Code)

		keys := mr.Keys()
		require.Len(t, keys, 2)
		assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))
	})

	t.Run("authenticated requests are not counted", func(t *testing.T) {
		l, mr := newTestLimiter(t, 1)
		h := l.Handler(okHandler())
		user := &domain.User{ID: uuid.New(), Role: domain.RoleStudent}

		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, serveThrough(h, "10.0.0.1:5000", user).Code)
		}
		assert.Empty(t, mr.Keys())
	})

	t.Run("a new window resets the count", func(t *testing.T) {
		l, _ := newTestLimiter(t, 1)
		h := l.Handler(okHandler())

		assert.Equal(t, http.StatusOK, serveThrough(h, "10.0.0.1:5000", nil).Code)
		assert.Equal(t, http.StatusTooManyRequests, serveThrough(h, "10.0.0.1:5000", nil).Code)

		next := l.now().Add(time.Second)
		l.now = func() time.Time { return next }
		assert.Equal(t, http.StatusOK, serveThrough(h, "10.0.0.1:5000", nil).Code)
	})

	t.Run("logs a failed expiry and still serves the request", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		t.Cleanup(func() { _ = rdb.Close() })
		rdb.AddHook(failCommandHook{name: "pexpire"})

		var logs bytes.Buffer
		l := newRateLimiter(rdb, 5, time.Second, nil, zerolog.New(&logs))
		h := l.Handler(okHandler())

		assert.Equal(t, http.StatusOK, serveThrough(h, "10.0.0.1:5000", nil).Code)
		assert.Contains(t, logs.String(), "failed to set rate limit expiry")
		assert.Contains(t, logs.String(), "pexpire refused")
	})

	t.Run("fails open when redis is down", func(t *testing.T) {
		l, mr := newTestLimiter(t, 1)
		h := l.Handler(okHandler())
		mr.Close()

		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, serveThrough(h, "10.0.0.1:5000", nil).Code)
		}
	})
}

func TestRateLimiterInRouter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newTestEnv(t, func(c *Config, d *Deps) {
		c.RateLimit = 1
		c.RateWindow = time.Hour
		d.Redis = rdb
	})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", "", nil).Code)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRateLimited))

	// A valid token bypasses the limiter.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", studentToken, nil).Code)
}
