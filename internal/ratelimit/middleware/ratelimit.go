// Package middleware enforces per-class sliding window limits on HTTP routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"arisan/internal/ratelimit/metrics"
	"arisan/internal/ratelimit/models"
	"arisan/pkg/platform/httputil"
	"arisan/pkg/platform/middleware/metadata"
	"arisan/pkg/requestcontext"
)

//go:generate mockgen -source=ratelimit.go -destination=mocks/mocks.go -package=mocks Store

// Store admits or rejects one hit against a keyed window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

type Middleware struct {
	store    Store
	policies map[models.Class]models.Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *Middleware) {
		mw.metrics = m
	}
}

// WithDisabled turns every limit into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(mw *Middleware) {
		mw.disabled = disabled
	}
}

func New(store Store, policies map[models.Class]models.Policy, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{store: store, policies: policies, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit applies the policy of class. Authenticated requests are keyed by
// caller, anonymous ones by client IP. A failing store lets the request
// through.
func (m *Middleware) Limit(class models.Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		policy, ok := m.policies[class]
		if m.disabled || !ok || policy.Limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := subjectKey(ctx, class)

			result, err := m.store.Allow(ctx, key, policy.Limit, policy.Window)
			if err != nil {
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"request_id", requestcontext.RequestID(ctx),
					"class", class,
					"error", err,
				)
				if m.metrics != nil {
					m.metrics.IncrementStoreErrors()
				}
				next.ServeHTTP(w, r)
				return
			}

			for k, v := range result.Headers() {
				w.Header().Set(k, v)
			}
			if !result.Allowed {
				if m.metrics != nil {
					m.metrics.IncrementRejection(class)
				}
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
					"class", class,
					"key", key,
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteJSON(w, http.StatusTooManyRequests, models.ExceededResponse{
					Error:      "rate_limit_exceeded",
					Class:      class,
					Message:    "too many requests, try again later",
					RetryAfter: result.RetryAfter,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func subjectKey(ctx context.Context, class models.Class) string {
	if caller := requestcontext.Caller(ctx); caller != "" {
		return models.Key(class, "caller", caller.String())
	}
	return models.Key(class, "ip", metadata.GetClientIP(ctx))
}
