package httpserver

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
)

const (
	defaultRateLimit  = 50
	defaultRateWindow = time.Second
	rateLimitPrefix   = "research:rate_limit"
)

// rateLimiter counts unauthenticated requests per client IP in fixed windows
// stored in Redis. Redis errors let the request through.
type rateLimiter struct {
	rdb     *redis.Client
	max     int64
	window  time.Duration
	metrics *observability.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func newRateLimiter(rdb *redis.Client, max int, window time.Duration, metrics *observability.Metrics, logger zerolog.Logger) *rateLimiter {
	if max <= 0 {
		max = defaultRateLimit
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	return &rateLimiter{
		rdb:     rdb,
		max:     int64(max),
		window:  window,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Handler must run after identify so authenticated requests can skip it.
func (l *rateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if ip == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		bucket := l.now().UnixNano() / int64(l.window)
		key := fmt.Sprintf("%s:%s:%d", rateLimitPrefix, ip, bucket)

		count, err := l.rdb.Incr(ctx, key).Result()
		if err != nil {
			l.logger.Warn().Err(err).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			if err := l.rdb.PExpire(ctx, key, l.window+time.Second).Err(); err != nil {
				l.logger.Warn().Err(err).Str("key", key).Msg("failed to set rate limit expiry")
			}
		}

		if count > l.max {
			l.metrics.RecordRateLimited()
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSeconds(l.window)))
			writeDomainError(w, domain.ErrRateLimited)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(window time.Duration) int {
	secs := int(window / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// clientIP strips the port chi's RealIP leaves on RemoteAddr when no proxy
// header was present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
