package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"arisan/internal/token"
	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
	"arisan/pkg/platform/httputil"
	"arisan/pkg/requestcontext"
)

// Service defines the token operations the handler needs.
type Service interface {
	Approve(ctx context.Context, owner, spender id.Address, amount uint64) error
	Faucet(ctx context.Context, to id.Address) (uint64, error)
	Balance(ctx context.Context, addr id.Address) (*token.Balance, error)
	Allowance(ctx context.Context, owner, spender id.Address) (uint64, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the endpoints that act for the authenticated caller.
// faucetLimits wrap only the faucet route.
func (h *Handler) Register(r chi.Router, faucetLimits ...func(http.Handler) http.Handler) {
	r.Post("/token/approve", h.HandleApprove)
	r.With(faucetLimits...).Post("/token/faucet", h.HandleFaucet)
}

// RegisterPublic mounts the read endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/token/balances/{address}", h.HandleBalance)
	r.Get("/token/allowances/{owner}/{spender}", h.HandleAllowance)
}

type ApproveRequest struct {
	Spender string `json:"spender"`
	Amount  uint64 `json:"amount"`

	parsedSpender id.Address
}

func (r *ApproveRequest) Validate() error {
	spender, err := id.ParseAddress(r.Spender)
	if err != nil {
		return err
	}
	r.parsedSpender = spender
	return nil
}

type AllowanceResponse struct {
	Owner     id.Address `json:"owner"`
	Spender   id.Address `json:"spender"`
	Allowance uint64     `json:"allowance"`
}

type FaucetResponse struct {
	Address id.Address `json:"address"`
	Minted  uint64     `json:"minted"`
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[ApproveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.Approve(ctx, caller, req.parsedSpender, req.Amount); err != nil {
		h.logger.WarnContext(ctx, "approve failed",
			"request_id", requestID,
			"caller", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AllowanceResponse{Owner: caller, Spender: req.parsedSpender, Allowance: req.Amount})
}

func (h *Handler) HandleFaucet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	minted, err := h.service.Faucet(ctx, caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FaucetResponse{Address: caller, Minted: minted})
}

func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	bal, err := h.service.Balance(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bal)
}

func (h *Handler) HandleAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := id.ParseAddress(chi.URLParam(r, "owner"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	spender, err := id.ParseAddress(chi.URLParam(r, "spender"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.service.Allowance(r.Context(), owner, spender)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AllowanceResponse{Owner: owner, Spender: spender, Allowance: v})
}
