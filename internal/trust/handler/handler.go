package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"arisan/internal/trust/models"
	id "arisan/pkg/domain"
	dErrors "arisan/pkg/domain-errors"
	"arisan/pkg/platform/httputil"
	"arisan/pkg/requestcontext"
)

// Service defines the trust graph operations the handler needs.
type Service interface {
	VouchFor(ctx context.Context, voucher, vouchee id.Address, weight uint32, note string) (*models.Vouch, error)
	RevokeVouch(ctx context.Context, voucher, vouchee id.Address) error
	UpdateVouchWeight(ctx context.Context, voucher, vouchee id.Address, weight uint32) (*models.Vouch, error)
	GetVouch(ctx context.Context, voucher, vouchee id.Address) (*models.Vouch, error)
	VouchersOf(ctx context.Context, addr id.Address) ([]id.Address, error)
	VoucheesOf(ctx context.Context, addr id.Address) ([]id.Address, error)
	Profile(ctx context.Context, addr id.Address) (*models.Profile, error)
	Params() models.Params
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
	r.Post("/vouches", h.HandleVouch)
	r.Patch("/vouches/{vouchee}", h.HandleUpdateWeight)
	r.Delete("/vouches/{vouchee}", h.HandleRevoke)
}

// RegisterPublic mounts the read endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/vouches/{voucher}/{vouchee}", h.HandleGetVouch)
	r.Get("/trust/params", h.HandleParams)
	r.Get("/trust/{address}", h.HandleProfile)
	r.Get("/trust/{address}/vouchers", h.HandleVouchers)
	r.Get("/trust/{address}/vouchees", h.HandleVouchees)
}

type VouchRequest struct {
	Vouchee string `json:"vouchee"`
	Weight  uint32 `json:"weight"`
	Note    string `json:"note"`

	parsedVouchee id.Address
}

func (r *VouchRequest) Validate() error {
	vouchee, err := id.ParseAddress(r.Vouchee)
	if err != nil {
		return err
	}
	r.parsedVouchee = vouchee
	return nil
}

type UpdateWeightRequest struct {
	Weight uint32 `json:"weight"`
}

type AddressListResponse struct {
	Address   id.Address   `json:"address"`
	Addresses []id.Address `json:"addresses"`
}

func (h *Handler) HandleVouch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[VouchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	v, err := h.service.VouchFor(ctx, caller, req.parsedVouchee, req.Weight, req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, v)
}

func (h *Handler) HandleUpdateWeight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	vouchee, err := id.ParseAddress(chi.URLParam(r, "vouchee"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateWeightRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	v, err := h.service.UpdateVouchWeight(ctx, caller, vouchee, req.Weight)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(w, r)
	if !ok {
		return
	}
	vouchee, err := id.ParseAddress(chi.URLParam(r, "vouchee"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.RevokeVouch(r.Context(), caller, vouchee); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGetVouch(w http.ResponseWriter, r *http.Request) {
	voucher, err := id.ParseAddress(chi.URLParam(r, "voucher"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	vouchee, err := id.ParseAddress(chi.URLParam(r, "vouchee"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.service.GetVouch(r.Context(), voucher, vouchee)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	addr, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.Profile(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleVouchers(w http.ResponseWriter, r *http.Request) {
	h.listAddresses(w, r, h.service.VouchersOf)
}

func (h *Handler) HandleVouchees(w http.ResponseWriter, r *http.Request) {
	h.listAddresses(w, r, h.service.VoucheesOf)
}

func (h *Handler) HandleParams(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Params())
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request, list func(context.Context, id.Address) ([]id.Address, error)) {
	addr, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out, err := list(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if out == nil {
		out = []id.Address{}
	}
	httputil.WriteJSON(w, http.StatusOK, AddressListResponse{Address: addr, Addresses: out})
}

func (h *Handler) requireCaller(w http.ResponseWriter, r *http.Request) (id.Address, bool) {
	caller := requestcontext.Caller(r.Context())
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return caller, true
}
