package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"arisan/internal/token"
	id "arisan/pkg/domain"
	"arisan/pkg/platform/tx"
	"arisan/pkg/requestcontext"
)

// HandlerSuite exercises the token endpoints over real in-memory components.
type HandlerSuite struct {
	suite.Suite
	router http.Handler
	ledger *token.InMemory
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

// withCaller stands in for the auth middleware.
func withCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c := r.Header.Get("X-Test-Caller"); c != "" {
			r = r.WithContext(requestcontext.WithCaller(r.Context(), id.Address(c)))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HandlerSuite) SetupTest() {
	s.ledger = token.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := token.NewService(s.ledger, tx.NewSerial(), token.WithLogger(logger), token.WithFaucet(true, 700))
	s.Require().NoError(err)

	h := New(svc, logger)
	r := chi.NewRouter()
	r.Use(withCaller)
	h.Register(r)
	h.RegisterPublic(r)
	s.router = r
}

func (s *HandlerSuite) do(method, path, caller string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != "" {
		req.Header.Set("X-Test-Caller", caller)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestFaucetThenBalance() {
	rec := s.do(http.MethodPost, "/token/faucet", "alice", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/token/balances/alice", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var bal token.Balance
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&bal))
	s.Equal(uint64(700), bal.Balance)
}

func (s *HandlerSuite) TestApprove() {
	s.Run("requires caller", func() {
		rec := s.do(http.MethodPost, "/token/approve", "", map[string]any{"spender": "pool:x", "amount": 5})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("rejects blank spender", func() {
		rec := s.do(http.MethodPost, "/token/approve", "alice", map[string]any{"spender": " ", "amount": 5})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("records allowance", func() {
		rec := s.do(http.MethodPost, "/token/approve", "alice", map[string]any{"spender": "pool:x", "amount": 5})
		s.Require().Equal(http.StatusOK, rec.Code)

		v, err := s.ledger.Allowance(context.Background(), "alice", "pool:x")
		s.Require().NoError(err)
		s.Equal(uint64(5), v)

		rec = s.do(http.MethodGet, "/token/allowances/alice/pool:x", "", nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		var resp AllowanceResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
		s.Equal(uint64(5), resp.Allowance)
	})
}
