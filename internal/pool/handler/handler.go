package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"arisan/internal/pool/models"
	"arisan/internal/pool/service"
	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
	"arisan/pkg/platform/httputil"
	"arisan/pkg/requestcontext"
)

// Service defines the pool operations the handler needs.
type Service interface {
	JoinPool(ctx context.Context, poolID id.PoolID, caller id.Address) (*models.Member, error)
	Contribute(ctx context.Context, poolID id.PoolID, caller id.Address) (*service.ContributionResult, error)
	GetPoolInfo(ctx context.Context, poolID id.PoolID) (*service.Info, error)
	GetAllMembers(ctx context.Context, poolID id.PoolID) ([]id.Address, error)
	GetMemberInfo(ctx context.Context, poolID id.PoolID, addr id.Address) (*models.Member, error)
	GetMemberCount(ctx context.Context, poolID id.PoolID) (int, error)
	GetSettlements(ctx context.Context, poolID id.PoolID) ([]models.Settlement, error)
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
	r.Post("/pools/{poolID}/join", h.HandleJoin)
	r.Post("/pools/{poolID}/contributions", h.HandleContribute)
}

// RegisterPublic mounts the read endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/pools/{poolID}/info", h.HandleInfo)
	r.Get("/pools/{poolID}/members", h.HandleMembers)
	r.Get("/pools/{poolID}/members/count", h.HandleMemberCount)
	r.Get("/pools/{poolID}/members/{address}", h.HandleMember)
	r.Get("/pools/{poolID}/settlements", h.HandleSettlements)
}

type MembersResponse struct {
	PoolID  id.PoolID    `json:"pool_id"`
	Members []id.Address `json:"members"`
}

type MemberCountResponse struct {
	PoolID id.PoolID `json:"pool_id"`
	Count  int       `json:"count"`
}

type SettlementsResponse struct {
	PoolID      id.PoolID           `json:"pool_id"`
	Settlements []models.Settlement `json:"settlements"`
}

func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	caller, poolID, ok := h.callerAndPool(w, r)
	if !ok {
		return
	}
	m, err := h.service.JoinPool(r.Context(), poolID, caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) HandleContribute(w http.ResponseWriter, r *http.Request) {
	caller, poolID, ok := h.callerAndPool(w, r)
	if !ok {
		return
	}
	res, err := h.service.Contribute(r.Context(), poolID, caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	poolID, ok := poolFromPath(w, r)
	if !ok {
		return
	}
	info, err := h.service.GetPoolInfo(r.Context(), poolID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	poolID, ok := poolFromPath(w, r)
	if !ok {
		return
	}
	members, err := h.service.GetAllMembers(r.Context(), poolID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MembersResponse{PoolID: poolID, Members: members})
}

func (h *Handler) HandleMemberCount(w http.ResponseWriter, r *http.Request) {
	poolID, ok := poolFromPath(w, r)
	if !ok {
		return
	}
	n, err := h.service.GetMemberCount(r.Context(), poolID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MemberCountResponse{PoolID: poolID, Count: n})
}

func (h *Handler) HandleMember(w http.ResponseWriter, r *http.Request) {
	poolID, ok := poolFromPath(w, r)
	if !ok {
		return
	}
	addr, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	m, err := h.service.GetMemberInfo(r.Context(), poolID, addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) HandleSettlements(w http.ResponseWriter, r *http.Request) {
	poolID, ok := poolFromPath(w, r)
	if !ok {
		return
	}
	settlements, err := h.service.GetSettlements(r.Context(), poolID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SettlementsResponse{PoolID: poolID, Settlements: settlements})
}

func (h *Handler) callerAndPool(w http.ResponseWriter, r *http.Request) (id.Address, id.PoolID, bool) {
	caller := requestcontext.Caller(r.Context())
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", id.PoolID{}, false
	}
	poolID, ok := poolFromPath(w, r)
	return caller, poolID, ok
}

func poolFromPath(w http.ResponseWriter, r *http.Request) (id.PoolID, bool) {
	poolID, err := id.ParsePoolID(chi.URLParam(r, "poolID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.PoolID{}, false
	}
	return poolID, true
}
