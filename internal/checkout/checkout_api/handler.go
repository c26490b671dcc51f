package checkout_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"flyerxpress/internal/auth"
	"flyerxpress/internal/checkout"
	"flyerxpress/internal/logger"
	"flyerxpress/internal/models"
	"flyerxpress/internal/utils"

	"github.com/go-chi/chi/v5"
)

type CheckoutService interface {
	Start(ctx context.Context, session models.Session, listingID string, quantity int) (*checkout.View, error)
	Get(ctx context.Context, session models.Session, id string) (*checkout.View, error)
	SetQuantity(ctx context.Context, session models.Session, id string, quantity int) (*checkout.View, error)
	SelectMethod(ctx context.Context, session models.Session, id string, m checkout.Method) (*checkout.View, error)
	UpdateDetails(ctx context.Context, session models.Session, id string, d checkout.Details) (*checkout.View, error)
	Submit(ctx context.Context, session models.Session, id string) (*checkout.View, error)
	Verify(ctx context.Context, session models.Session, id, code string) (*checkout.View, error)
	Back(ctx context.Context, session models.Session, id string) (*checkout.View, error)
	Retry(ctx context.Context, session models.Session, id string) (*checkout.View, error)
	Cancel(ctx context.Context, session models.Session, id string) (*checkout.View, error)
}

type StartRequest struct {
	ListingID string `json:"listing_id"`
	Quantity  int    `json:"quantity"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

type MethodRequest struct {
	Method checkout.Method `json:"method"`
}

type VerifyRequest struct {
	Code string `json:"code"`
}

type Handler struct {
	Service CheckoutService
	Logger  *logger.Logger
}

func NewHandler(service CheckoutService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/checkout", func(r chi.Router) {
		r.Get("/methods", h.Methods)
		r.Post("/", h.Start)
		r.Get("/{id}", h.Get)
		r.Put("/{id}/quantity", h.SetQuantity)
		r.Post("/{id}/method", h.SelectMethod)
		r.Put("/{id}/details", h.UpdateDetails)
		r.Post("/{id}/submit", h.action("Submitted", h.Service.Submit))
		r.Post("/{id}/verify", h.Verify)
		r.Post("/{id}/back", h.action("Went back", h.Service.Back))
		r.Post("/{id}/retry", h.action("Ready to retry", h.Service.Retry))
		r.Post("/{id}/cancel", h.action("Checkout cancelled", h.Service.Cancel))
	})
}

func (h *Handler) Methods(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, "Payment methods", checkout.Methods())
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrUnauthorized)
		return
	}
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	view, err := h.Service.Start(r.Context(), session, req.ListingID, req.Quantity)
	if err != nil {
		h.writeFailure(w, view, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Checkout started", view)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrUnauthorized)
		return
	}
	view, err := h.Service.Get(r.Context(), session, chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, view, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Checkout retrieved", view)
}

func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req QuantityRequest
	h.withBody(w, r, &req, "Quantity updated", func(ctx context.Context, s models.Session, id string) (*checkout.View, error) {
		return h.Service.SetQuantity(ctx, s, id, req.Quantity)
	})
}

func (h *Handler) SelectMethod(w http.ResponseWriter, r *http.Request) {
	var req MethodRequest
	h.withBody(w, r, &req, "Payment method selected", func(ctx context.Context, s models.Session, id string) (*checkout.View, error) {
		return h.Service.SelectMethod(ctx, s, id, req.Method)
	})
}

func (h *Handler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	var req checkout.Details
	h.withBody(w, r, &req, "Details updated", func(ctx context.Context, s models.Session, id string) (*checkout.View, error) {
		return h.Service.UpdateDetails(ctx, s, id, req)
	})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	h.withBody(w, r, &req, "Verified", func(ctx context.Context, s models.Session, id string) (*checkout.View, error) {
		return h.Service.Verify(ctx, s, id, req.Code)
	})
}

func (h *Handler) withBody(w http.ResponseWriter, r *http.Request, body interface{}, message string,
	op func(ctx context.Context, s models.Session, id string) (*checkout.View, error)) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrUnauthorized)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	view, err := op(r.Context(), session, chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, view, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, message, view)
}

func (h *Handler) action(message string, op func(ctx context.Context, s models.Session, id string) (*checkout.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := auth.SessionFrom(r.Context())
		if !ok {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrUnauthorized)
			return
		}
		view, err := op(r.Context(), session, chi.URLParam(r, "id"))
		if err != nil {
			h.writeFailure(w, view, err)
			return
		}
		utils.WriteSuccess(w, http.StatusOK, message, view)
	}
}

// writeFailure maps checkout errors to statuses. The current view, when there
// is one, rides along so the client can redraw the step it is on.
func (h *Handler) writeFailure(w http.ResponseWriter, view *checkout.View, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("CHECKOUT", fmt.Sprintf("%s: %v", message, err))
	}
	resp := utils.ErrorResponse(message, err.Error())
	if view != nil {
		resp.Data = view
	}
	utils.WriteJSON(w, status, resp)
}

func statusFor(err error) (int, string) {
	var decline *checkout.DeclineError
	switch {
	case errors.Is(err, checkout.ErrBuyerOnly):
		return http.StatusForbidden, "Buyer role required"
	case errors.Is(err, checkout.ErrSessionNotFound):
		return http.StatusNotFound, "Checkout not found"
	case errors.Is(err, checkout.ErrListingNotFound):
		return http.StatusNotFound, "Listing not found"
	case errors.Is(err, checkout.ErrCheckoutBusy):
		return http.StatusConflict, "Checkout is busy"
	case errors.Is(err, checkout.ErrInvalidTransition):
		return http.StatusConflict, "Action not allowed now"
	case errors.Is(err, checkout.ErrValidation),
		errors.Is(err, checkout.ErrInvalidVerificationCode),
		errors.Is(err, checkout.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrUnknownMethod):
		return http.StatusBadRequest, "Invalid input"
	case errors.As(err, &decline):
		return http.StatusPaymentRequired, "Payment declined"
	case errors.Is(err, checkout.ErrListingsDown):
		return http.StatusServiceUnavailable, "Listings unavailable"
	case errors.Is(err, checkout.ErrProcessorUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Payment could not be processed"
	default:
		return http.StatusInternalServerError, "Checkout failed"
	}
}
