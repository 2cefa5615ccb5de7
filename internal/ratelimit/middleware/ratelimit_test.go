package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"arisan/internal/ratelimit/metrics"
	"arisan/internal/ratelimit/middleware/mocks"
	"arisan/internal/ratelimit/models"
	"arisan/pkg/platform/middleware/metadata"
	"arisan/pkg/requestcontext"
)

// =============================================================================
// Rate Limit Middleware Test Suite
// =============================================================================
// Justification for unit tests: key selection and the fail-open path depend on
// store errors that a real backend does not produce on demand.

type MiddlewareSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	metrics *metrics.Metrics
	mw      *Middleware
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.mw = New(s.store, map[models.Class]models.Policy{
		models.ClassWrite:  {Limit: 5, Window: time.Minute},
		models.ClassFaucet: {Limit: 1, Window: time.Hour},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), WithMetrics(s.metrics))
}

func (s *MiddlewareSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *MiddlewareSuite) serve(ctx context.Context, class models.Class) *httptest.ResponseRecorder {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	req := httptest.NewRequest(http.MethodPost, "/token/faucet", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.mw.Limit(class)(ok).ServeHTTP(rec, req)
	return rec
}

func (s *MiddlewareSuite) TestKeysByCaller() {
	ctx := requestcontext.WithCaller(context.Background(), "0xalice")
	s.store.EXPECT().Allow(gomock.Any(), "rl:faucet:caller:0xalice", 1, time.Hour).
		Return(&models.Result{Allowed: true, Limit: 1, ResetAt: time.Unix(100, 0)}, nil)

	rec := s.serve(ctx, models.ClassFaucet)

	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal("1", rec.Header().Get("X-RateLimit-Limit"))
	s.Equal("0", rec.Header().Get("X-RateLimit-Remaining"))
	s.Equal("100", rec.Header().Get("X-RateLimit-Reset"))
}

func (s *MiddlewareSuite) TestKeysAnonymousByIP() {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	var ctx context.Context
	metadata.ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	})).ServeHTTP(httptest.NewRecorder(), req)

	s.store.EXPECT().Allow(gomock.Any(), "rl:write:ip:203.0.113.7", 5, time.Minute).
		Return(&models.Result{Allowed: true, Limit: 5, Remaining: 4}, nil)

	rec := s.serve(ctx, models.ClassWrite)
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *MiddlewareSuite) TestRejectsOverLimit() {
	ctx := requestcontext.WithCaller(context.Background(), "0xalice")
	s.store.EXPECT().Allow(gomock.Any(), gomock.Any(), 1, time.Hour).
		Return(&models.Result{Allowed: false, Limit: 1, RetryAfter: 42}, nil)

	rec := s.serve(ctx, models.ClassFaucet)

	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("42", rec.Header().Get("Retry-After"))
	s.Contains(rec.Body.String(), `"rate_limit_exceeded"`)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Rejections.WithLabelValues("faucet")))
}

func (s *MiddlewareSuite) TestFailsOpenOnStoreError() {
	s.store.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("redis down"))

	rec := s.serve(context.Background(), models.ClassWrite)

	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.StoreErrors))
}

func (s *MiddlewareSuite) TestUnconfiguredClassPassesThrough() {
	rec := s.serve(context.Background(), models.ClassRead)
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *MiddlewareSuite) TestDisabled() {
	mw := New(s.store, map[models.Class]models.Policy{
		models.ClassWrite: {Limit: 1, Window: time.Minute},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), WithDisabled(true))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	rec := httptest.NewRecorder()

	mw.Limit(models.ClassWrite)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	s.Equal(http.StatusNoContent, rec.Code)
}
