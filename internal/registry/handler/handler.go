package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	poolmodels "arisan/internal/pool/models"
	"arisan/internal/registry/service"
	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
	"arisan/pkg/platform/httputil"
	"arisan/pkg/requestcontext"
)

// Service defines the registry operations the handler needs.
type Service interface {
	CreatePool(ctx context.Context, caller id.Address, cfg poolmodels.Config) (id.PoolID, error)
	SetDeploymentFee(ctx context.Context, caller id.Address, fee uint64) error
	SetTreasury(ctx context.Context, caller, treasury id.Address) error
	Settings(ctx context.Context) (*service.SettingsView, error)
	GetAllPools(ctx context.Context) ([]poolmodels.Metadata, error)
	GetPoolsByCreator(ctx context.Context, creator id.Address) ([]poolmodels.Metadata, error)
	GetPoolMetadata(ctx context.Context, poolID id.PoolID) (*poolmodels.Metadata, error)
	GetTotalPools(ctx context.Context) (int, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the endpoints that act for the authenticated caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/pools", h.HandleCreatePool)
	r.Put("/registry/deployment-fee", h.HandleSetDeploymentFee)
	r.Put("/registry/treasury", h.HandleSetTreasury)
}

// RegisterPublic mounts the read endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/pools", h.HandleListPools)
	r.Get("/pools/count", h.HandleCountPools)
	r.Get("/pools/{poolID}", h.HandlePoolMetadata)
	r.Get("/creators/{address}/pools", h.HandlePoolsByCreator)
	r.Get("/registry/settings", h.HandleSettings)
}

// CreatePoolRequest carries the cycle duration in whole seconds.
type CreatePoolRequest struct {
	Name                 string `json:"name"`
	ContributionAmount   uint64 `json:"contribution_amount"`
	MaxMembers           int    `json:"max_members"`
	CycleDurationSeconds int64  `json:"cycle_duration_seconds"`
	UjrahRateBps         uint32 `json:"ujrah_rate_bps"`
	RequiresVouching     bool   `json:"requires_vouching"`
	MinVouchScore        uint64 `json:"min_vouch_score"`
}

// Validate only rejects durations that would overflow; range checks belong
// to the registry so their order stays fixed.
func (r *CreatePoolRequest) Validate() error {
	if r.CycleDurationSeconds > int64(time.Duration(1<<63-1)/time.Second) {
		return dErrors.New(dErrors.CodeBadRequest, "cycle duration is too long")
	}
	return nil
}

func (r *CreatePoolRequest) config() poolmodels.Config {
	return poolmodels.Config{
		Name:               strings.TrimSpace(r.Name),
		ContributionAmount: r.ContributionAmount,
		MaxMembers:         r.MaxMembers,
		CycleDuration:      time.Duration(r.CycleDurationSeconds) * time.Second,
		UjrahRateBps:       r.UjrahRateBps,
		RequiresVouching:   r.RequiresVouching,
		MinVouchScore:      r.MinVouchScore,
	}
}

type CreatePoolResponse struct {
	PoolID         id.PoolID  `json:"pool_id"`
	CustodyAddress id.Address `json:"custody_address"`
}

type SetDeploymentFeeRequest struct {
	DeploymentFee uint64 `json:"deployment_fee"`
}

type SetTreasuryRequest struct {
	Treasury string `json:"treasury"`

	parsed id.Address
}

func (r *SetTreasuryRequest) Validate() error {
	addr, err := id.ParseAddress(r.Treasury)
	if err != nil {
		return err
	}
	r.parsed = addr
	return nil
}

type PoolListResponse struct {
	Pools []poolmodels.Metadata `json:"pools"`
	Total int                   `json:"total"`
}

type PoolCountResponse struct {
	Total int `json:"total"`
}

func (h *Handler) HandleCreatePool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreatePoolRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	poolID, err := h.service.CreatePool(ctx, caller, req.config())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CreatePoolResponse{PoolID: poolID, CustodyAddress: id.PoolAddress(poolID)})
}

func (h *Handler) HandleSetDeploymentFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetDeploymentFeeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.SetDeploymentFee(ctx, caller, req.DeploymentFee); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.writeSettings(w, r)
}

func (h *Handler) HandleSetTreasury(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetTreasuryRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.SetTreasury(ctx, caller, req.parsed); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.writeSettings(w, r)
}

func (h *Handler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	h.writeSettings(w, r)
}

func (h *Handler) HandleListPools(w http.ResponseWriter, r *http.Request) {
	pools, err := h.service.GetAllPools(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PoolListResponse{Pools: pools, Total: len(pools)})
}

func (h *Handler) HandleCountPools(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.GetTotalPools(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PoolCountResponse{Total: n})
}

func (h *Handler) HandlePoolMetadata(w http.ResponseWriter, r *http.Request) {
	poolID, err := id.ParsePoolID(chi.URLParam(r, "poolID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	meta, err := h.service.GetPoolMetadata(r.Context(), poolID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, meta)
}

func (h *Handler) HandlePoolsByCreator(w http.ResponseWriter, r *http.Request) {
	creator, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	pools, err := h.service.GetPoolsByCreator(r.Context(), creator)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PoolListResponse{Pools: pools, Total: len(pools)})
}

func (h *Handler) writeSettings(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Settings(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func requireCaller(w http.ResponseWriter, r *http.Request) (id.Address, bool) {
	caller := requestcontext.Caller(r.Context())
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return caller, true
}
