package ticket_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"flyerxpress/internal/auth"
	"flyerxpress/internal/logger"
	"flyerxpress/internal/models"
	"flyerxpress/internal/tickets"
	"flyerxpress/internal/utils"

	"github.com/go-chi/chi/v5"
)

type TicketService interface {
	ListForBuyer(ctx context.Context, session models.Session) ([]models.Ticket, error)
	PDF(ctx context.Context, session models.Session, ticketID string) ([]byte, error)
}

type Handler struct {
	TicketService TicketService
	Logger        *logger.Logger
}

func NewHandler(ticketService TicketService, log *logger.Logger) *Handler {
	return &Handler{TicketService: ticketService, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", h.ListTickets)
		r.Get("/{id}/pdf", h.DownloadPDF)
	})
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrUnauthorized)
		return
	}
	list, err := h.TicketService.ListForBuyer(r.Context(), session)
	if err != nil {
		resp := utils.ErrorResponse("Failed to load tickets", "")
		resp.Data = []models.Ticket{}
		utils.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Tickets retrieved", list)
}

func (h *Handler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrUnauthorized)
		return
	}
	ticketID := chi.URLParam(r, "id")
	pdf, err := h.TicketService.PDF(r.Context(), session, ticketID)
	if errors.Is(err, tickets.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, "Ticket not found", nil)
		return
	}
	if err != nil {
		h.Logger.Error("TICKETS", fmt.Sprintf("Failed to render ticket %s: %v", ticketID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Failed to generate PDF", nil)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ticket-%s.pdf", ticketID))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
