package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flyerxpress/internal/logger"
	"flyerxpress/internal/models"
	"flyerxpress/internal/tickets/db"
	qr "flyerxpress/internal/tickets/qr_generator"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = db.ErrNotFound
	ErrInvalidOrder = errors.New("order has nothing to issue")
)

type TicketDBLayer interface {
	InsertTickets(ctx context.Context, tickets []models.Ticket) error
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	GetTicketsByBuyer(ctx context.Context, buyerID string) ([]models.Ticket, error)
}

type QREncoder interface {
	GenerateEncryptedQR(p qr.Payload) ([]byte, error)
}

type PDFGenerator interface {
	Generate(ticket models.Ticket, qrCode []byte) ([]byte, error)
}

type TicketService struct {
	DB       TicketDBLayer
	QR       QREncoder
	Renderer PDFGenerator
	Logger   *logger.Logger
	Now      func() time.Time
}

func NewTicketService(store TicketDBLayer, qrGen QREncoder, pdf PDFGenerator, log *logger.Logger) *TicketService {
	return &TicketService{DB: store, QR: qrGen, Renderer: pdf, Logger: log, Now: time.Now}
}

// Issue creates one ticket per unit of a paid order.
func (s *TicketService) Issue(ctx context.Context, order models.CompletedOrder) ([]models.Ticket, error) {
	if order.Quantity < 1 || order.TransactionID == "" {
		return nil, ErrInvalidOrder
	}

	issuedAt := s.Now().UTC()
	issued := make([]models.Ticket, 0, order.Quantity)
	for i := 0; i < order.Quantity; i++ {
		ticket := models.Ticket{
			TicketID:      uuid.New().String(),
			OrderID:       order.OrderID,
			ListingID:     order.ListingID,
			ListingTitle:  order.ListingTitle,
			BuyerID:       order.BuyerID,
			TransactionID: order.TransactionID,
			PricePaid:     order.UnitPrice,
			IssuedAt:      issuedAt,
		}
		code, err := s.QR.GenerateEncryptedQR(qr.Payload{
			TicketID:      ticket.TicketID,
			OrderID:       ticket.OrderID,
			ListingID:     ticket.ListingID,
			BuyerID:       ticket.BuyerID,
			TransactionID: ticket.TransactionID,
			IssuedAt:      issuedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate QR: %w", err)
		}
		ticket.QRCode = code
		issued = append(issued, ticket)
	}

	if err := s.DB.InsertTickets(ctx, issued); err != nil {
		s.Logger.LogDatabase("INSERT", "tickets", fmt.Sprintf("order %s failed: %v", order.OrderID, err))
		return nil, err
	}
	s.Logger.Info("TICKETS", fmt.Sprintf("Issued %d tickets for order %s", len(issued), order.OrderID))
	return issued, nil
}

func (s *TicketService) ListForBuyer(ctx context.Context, session models.Session) ([]models.Ticket, error) {
	tickets, err := s.DB.GetTicketsByBuyer(ctx, session.UserID)
	if err != nil {
		s.Logger.Error("TICKETS", fmt.Sprintf("Failed to list tickets for %s: %v", session.UserID, err))
		return []models.Ticket{}, err
	}
	return tickets, nil
}

// Get returns a ticket owned by the caller. Other buyers' tickets look missing.
func (s *TicketService) Get(ctx context.Context, session models.Session, ticketID string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.BuyerID != session.UserID {
		s.Logger.LogSecurity("TICKET_ACCESS", fmt.Sprintf("user %s requested ticket %s", session.UserID, ticketID))
		return nil, ErrNotFound
	}
	return ticket, nil
}

func (s *TicketService) PDF(ctx context.Context, session models.Session, ticketID string) ([]byte, error) {
	ticket, err := s.Get(ctx, session, ticketID)
	if err != nil {
		return nil, err
	}
	return s.Renderer.Generate(*ticket, ticket.QRCode)
}
