package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
)

type contextKey string

const (
	ctxKeyUser    contextKey = "user"
	ctxKeyAuthErr contextKey = "auth_error"
)

// requestContextMiddleware copies the chi request ID into the observability
// context and echoes it back to the client.
func requestContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}
		ctx := observability.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs one line per request with its status and latency.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger := observability.LoggerFromContext(r.Context(), s.logger)
		evt := logger.Info()
		if ww.Status() >= http.StatusInternalServerError {
			evt = logger.Error()
		}
		evt.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Str("remote_ip", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// metricsMiddleware records request counts and latency by route pattern.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	if s.deps.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.deps.Metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(status), time.Since(start).Seconds())
	})
}

// identify resolves an optional bearer token. Valid tokens attach the user to
// the request context; failures are kept for requireUser to report.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		user, err := s.deps.Auth.Authenticate(ctx, token)
		if err != nil {
			if !errors.Is(err, domain.ErrUnauthorized) {
				s.logger.Error().Err(err).Msg("token authentication failed")
			}
			ctx = context.WithValue(ctx, ctxKeyAuthErr, err)
		} else {
			ctx = context.WithValue(ctx, ctxKeyUser, user)
			ctx = observability.WithUserID(ctx, user.ID.String())
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireUser rejects requests without an authenticated user.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		if err, ok := r.Context().Value(ctxKeyAuthErr).(error); ok && !errors.Is(err, domain.ErrUnauthorized) {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "not authenticated")
	})
}

// requireResearcher restricts the authoring features to researcher-like roles.
func requireResearcher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromContext(r.Context())
		if !ok || !user.Role.IsResearcherLike() {
			writeError(w, http.StatusForbidden, "forbidden for your role")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// userFromContext returns the authenticated user of the request.
func userFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(ctxKeyUser).(*domain.User)
	return user, ok && user != nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
