package listing_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"flyerxpress/internal/analytics"
	"flyerxpress/internal/auth"
	"flyerxpress/internal/listings"
	"flyerxpress/internal/logger"
	"flyerxpress/internal/models"
	"flyerxpress/internal/utils"

	"github.com/go-chi/chi/v5"
)

type ListingService interface {
	Search(ctx context.Context, query string) ([]models.Listing, error)
	ListBySeller(ctx context.Context, session models.Session) ([]models.Listing, error)
	Get(ctx context.Context, id string) (*models.Listing, error)
	Create(ctx context.Context, session models.Session, draft models.ListingDraft) (*models.Listing, error)
}

type PriceSuggester interface {
	SuggestPrice(ctx context.Context, session models.Session, draft models.ListingDraft) (analytics.PriceSuggestion, error)
}

type SalesSubscriber interface {
	Subscribe(ctx context.Context, listingID string) <-chan models.SaleEvent
}

type Handler struct {
	Listings ListingService
	Pricing  PriceSuggester
	Sales    SalesSubscriber
	Logger   *logger.Logger
}

func NewHandler(listings ListingService, pricing PriceSuggester, sales SalesSubscriber, log *logger.Logger) *Handler {
	return &Handler{Listings: listings, Pricing: pricing, Sales: sales, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/listings", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/mine", h.ListMine)
		r.Post("/price-suggestion", h.SuggestPrice)
		r.Get("/{id}", h.Get)
		r.Get("/{id}/sales/stream", h.StreamSales)
	})
}

// writeListFailure keeps the envelope's data an empty list so clients can render nothing.
func writeListFailure(w http.ResponseWriter, listings []models.Listing) {
	if listings == nil {
		listings = []models.Listing{}
	}
	resp := utils.ErrorResponse("Failed to load listings", "")
	resp.Data = listings
	utils.WriteJSON(w, http.StatusServiceUnavailable, resp)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	found, err := h.Listings.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeListFailure(w, found)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Listings retrieved", found)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrUnauthorized)
		return
	}

	mine, err := h.Listings.ListBySeller(r.Context(), session)
	if errors.Is(err, listings.ErrSellerOnly) {
		utils.WriteError(w, http.StatusForbidden, "Seller role required", err)
		return
	}
	if err != nil {
		writeListFailure(w, mine)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Listings retrieved", mine)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	listing, err := h.Listings.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, listings.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, "Listing not found", nil)
		return
	}
	if err != nil {
		h.Logger.Error("LISTING", fmt.Sprintf("Failed to load listing: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load listing", nil)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Listing retrieved", listing)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrUnauthorized)
		return
	}

	var draft models.ListingDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	listing, err := h.Listings.Create(r.Context(), session, draft)
	switch {
	case errors.Is(err, listings.ErrSellerOnly):
		utils.WriteError(w, http.StatusForbidden, "Seller role required", err)
	case errors.Is(err, listings.ErrInvalidDraft):
		utils.WriteError(w, http.StatusBadRequest, "Invalid listing", err)
	case err != nil:
		utils.WriteError(w, http.StatusInternalServerError, "Failed to create listing", nil)
	default:
		utils.WriteSuccess(w, http.StatusCreated, "Listing created", listing)
	}
}

func (h *Handler) SuggestPrice(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrUnauthorized)
		return
	}

	var draft models.ListingDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	suggestion, err := h.Pricing.SuggestPrice(r.Context(), session, draft)
	if err != nil {
		utils.WriteError(w, http.StatusServiceUnavailable, "Price suggestion unavailable", nil)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Price suggestion", suggestion)
}

// StreamSales pushes sale events for a listing to its seller as server-sent events.
func (h *Handler) StreamSales(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrUnauthorized)
		return
	}

	listingID := chi.URLParam(r, "id")
	listing, err := h.Listings.Get(r.Context(), listingID)
	if errors.Is(err, listings.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, "Listing not found", nil)
		return
	}
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load listing", nil)
		return
	}
	if !session.IsSeller() || listing.CreatedBy != session.UserID {
		h.Logger.LogSecurity("FORBIDDEN", fmt.Sprintf("user %s tried to watch sales of %s", session.UserID, listingID))
		utils.WriteError(w, http.StatusForbidden, "Not the seller of this listing", nil)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, http.StatusInternalServerError, "Streaming unsupported", nil)
		return
	}

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	setupSSEHeaders(w)
	ctx := r.Context()
	events := h.Sales.Subscribe(ctx, listingID)

	fmt.Fprintf(w, "event: connected\ndata: {\"listing_id\":%q}\n\n", listingID)
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Seller %s watching sales of %s", session.UserID, listingID))

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize sale event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: sale\ndata: %s\n\n", data)
			flusher.Flush()
		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Seller %s stopped watching %s", session.UserID, listingID))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
