package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	poolmodels "arisan/internal/pool/models"
	poolstore "arisan/internal/pool/store"
	"arisan/internal/registry/models"
	"arisan/internal/registry/service"
	"arisan/internal/registry/store/settings"
	"arisan/internal/token"
	"arisan/pkg/platform/tx"
	"arisan/pkg/testutil"
)

// HandlerSuite drives the registry endpoints over in-memory components.
type HandlerSuite struct {
	suite.Suite
	router http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(
		poolstore.NewInMemory(),
		settings.NewInMemory(models.Settings{Owner: "0xowner", Treasury: "0xtreasury"}),
		token.NewInMemory(),
		tx.NewSerial(),
		"0xregistry",
		service.WithLogger(logger),
	)
	s.Require().NoError(err)

	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterPublic(r)
	s.router = r
}

func validPool(name string) map[string]any {
	return map[string]any{
		"name":                   name,
		"contribution_amount":    1000,
		"max_members":            5,
		"cycle_duration_seconds": 2592000,
		"ujrah_rate_bps":         50,
	}
}

func (s *HandlerSuite) create(caller string, body map[string]any) *CreatePoolResponse {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/pools", body)
	rr := testutil.DoRequest(s.router, testutil.WithCaller(req, caller))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalResponse[CreatePoolResponse](s.T(), rr)
}

// =============================================================================
// CreatePool
// =============================================================================

func (s *HandlerSuite) TestCreatePool() {
	s.Run("requires caller", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/pools", validPool("x"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("creates", func() {
		resp := s.create("0xa11ce", validPool("RT 05"))
		s.Equal("pool:"+resp.PoolID.String(), resp.CustodyAddress.String())

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/pools/"+resp.PoolID.String()))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		meta := testutil.UnmarshalResponse[poolmodels.Metadata](s.T(), rr)
		s.Equal("RT 05", meta.Name)
		s.Equal(poolmodels.Recruiting, meta.State)
	})

	s.Run("fee too high", func() {
		body := validPool("greedy")
		body["ujrah_rate_bps"] = 501
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/pools", body)
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, "0xa11ce"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
		testutil.AssertReason(s.T(), rr, "fee_too_high")
	})

	s.Run("zero duration", func() {
		body := validPool("instant")
		body["cycle_duration_seconds"] = 0
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/pools", body)
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, "0xa11ce"))
		testutil.AssertReason(s.T(), rr, "invalid_cycle_duration")
	})

	s.Run("unknown field", func() {
		body := validPool("typo")
		body["max_member"] = 5
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/pools", body)
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, "0xa11ce"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

// =============================================================================
// Listings
// =============================================================================

func (s *HandlerSuite) TestListings() {
	s.create("0xa11ce", validPool("a1"))
	s.create("0xb0b", validPool("b1"))

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/pools"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	all := testutil.UnmarshalResponse[PoolListResponse](s.T(), rr)
	s.Equal(2, all.Total)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/creators/0xB0B/pools"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	mine := testutil.UnmarshalResponse[PoolListResponse](s.T(), rr)
	s.Require().Len(mine.Pools, 1)
	s.Equal("b1", mine.Pools[0].Name)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/pools/count"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal(2, testutil.UnmarshalResponse[PoolCountResponse](s.T(), rr).Total)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/pools/not-a-uuid"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

// =============================================================================
// Admin
// =============================================================================

func (s *HandlerSuite) TestAdmin() {
	s.Run("non owner is forbidden", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/registry/deployment-fee", map[string]any{"deployment_fee": 9})
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, "0xa11ce"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
		testutil.AssertReason(s.T(), rr, "unauthorized")
	})

	s.Run("owner sets fee", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/registry/deployment-fee", map[string]any{"deployment_fee": 9})
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, "0xowner"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		view := testutil.UnmarshalResponse[service.SettingsView](s.T(), rr)
		s.Equal(uint64(9), view.DeploymentFee)
	})

	s.Run("owner sets treasury", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/registry/treasury", map[string]any{"treasury": "0xT2"})
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, "0xowner"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		view := testutil.UnmarshalResponse[service.SettingsView](s.T(), rr)
		s.Equal("0xt2", view.Treasury.String())
	})

	s.Run("blank treasury", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/registry/treasury", map[string]any{"treasury": " "})
		rr := testutil.DoRequest(s.router, testutil.WithCaller(req, "0xowner"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("settings are public", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/registry/settings"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		view := testutil.UnmarshalResponse[service.SettingsView](s.T(), rr)
		s.Equal("0xregistry", view.RegistryAddress.String())
		s.Equal(models.DefaultParams(), view.Params)
	})
}
