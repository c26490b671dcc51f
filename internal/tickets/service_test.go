package tickets

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"flyerxpress/internal/logger"
	"flyerxpress/internal/models"
	qr "flyerxpress/internal/tickets/qr_generator"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTicketDB struct {
	mock.Mock
}

func (m *MockTicketDB) InsertTickets(ctx context.Context, tickets []models.Ticket) error {
	args := m.Called(ctx, tickets)
	return args.Error(0)
}

func (m *MockTicketDB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	args := m.Called(ctx, id)
	ticket, _ := args.Get(0).(*models.Ticket)
	return ticket, args.Error(1)
}

func (m *MockTicketDB) GetTicketsByBuyer(ctx context.Context, buyerID string) ([]models.Ticket, error) {
	args := m.Called(ctx, buyerID)
	tickets, _ := args.Get(0).([]models.Ticket)
	return tickets, args.Error(1)
}

type MockPDF struct {
	mock.Mock
}

func (m *MockPDF) Generate(ticket models.Ticket, qrCode []byte) ([]byte, error) {
	args := m.Called(ticket, qrCode)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

var (
	buyer = models.Session{UserID: "buyer-1", Role: models.RoleBuyer}
	fixed = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newService(store *MockTicketDB, pdf *MockPDF) (*TicketService, *qr.QRGenerator) {
	gen := qr.NewQRGenerator("secret")
	svc := NewTicketService(store, gen, pdf, logger.NewLoggerWithWriter(io.Discard))
	svc.Now = func() time.Time { return fixed }
	return svc, gen
}

func paidOrder(qty int) models.CompletedOrder {
	return models.CompletedOrder{
		OrderID:       "chk-1",
		ListingID:     "listing-1",
		ListingTitle:  "Jazz Night",
		BuyerID:       "buyer-1",
		TransactionID: "TXN-ABC",
		UnitPrice:     decimal.RequireFromString("25.00"),
		Quantity:      qty,
	}
}

func TestIssue_OneTicketPerUnit(t *testing.T) {
	store := new(MockTicketDB)
	store.On("InsertTickets", mock.Anything, mock.MatchedBy(func(ts []models.Ticket) bool { return len(ts) == 3 })).Return(nil)
	svc, _ := newService(store, new(MockPDF))

	issued, err := svc.Issue(context.Background(), paidOrder(3))
	require.NoError(t, err)
	require.Len(t, issued, 3)

	seen := map[string]bool{}
	for _, ticket := range issued {
		assert.False(t, seen[ticket.TicketID], "ticket ids are unique")
		seen[ticket.TicketID] = true
		assert.Equal(t, "TXN-ABC", ticket.TransactionID)
		assert.Equal(t, "Jazz Night", ticket.ListingTitle)
		assert.True(t, ticket.PricePaid.Equal(decimal.RequireFromString("25.00")))
		assert.Equal(t, fixed, ticket.IssuedAt)
		assert.NotEmpty(t, ticket.QRCode)
	}
	store.AssertExpectations(t)
}

func TestIssue_RejectsEmptyOrders(t *testing.T) {
	store := new(MockTicketDB)
	svc, _ := newService(store, new(MockPDF))

	_, err := svc.Issue(context.Background(), paidOrder(0))
	assert.ErrorIs(t, err, ErrInvalidOrder)

	unpaid := paidOrder(1)
	unpaid.TransactionID = ""
	_, err = svc.Issue(context.Background(), unpaid)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	store.AssertNotCalled(t, "InsertTickets", mock.Anything, mock.Anything)
}

func TestIssue_StoreFailure(t *testing.T) {
	store := new(MockTicketDB)
	store.On("InsertTickets", mock.Anything, mock.Anything).Return(errors.New("db down"))
	svc, _ := newService(store, new(MockPDF))

	issued, err := svc.Issue(context.Background(), paidOrder(2))
	assert.Error(t, err)
	assert.Nil(t, issued)
}

func TestGet_HidesOtherBuyersTickets(t *testing.T) {
	store := new(MockTicketDB)
	store.On("GetTicketByID", mock.Anything, "t1").Return(&models.Ticket{TicketID: "t1", BuyerID: "someone-else"}, nil)
	svc, _ := newService(store, new(MockPDF))

	_, err := svc.Get(context.Background(), buyer, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPDF(t *testing.T) {
	store := new(MockTicketDB)
	ticket := &models.Ticket{TicketID: "t1", BuyerID: "buyer-1", QRCode: []byte("png")}
	store.On("GetTicketByID", mock.Anything, "t1").Return(ticket, nil)
	pdf := new(MockPDF)
	pdf.On("Generate", *ticket, []byte("png")).Return([]byte("%PDF-1.4"), nil)
	svc, _ := newService(store, pdf)

	data, err := svc.PDF(context.Background(), buyer, "t1")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
	pdf.AssertExpectations(t)
}

func TestListForBuyer_Failure(t *testing.T) {
	store := new(MockTicketDB)
	store.On("GetTicketsByBuyer", mock.Anything, "buyer-1").Return(nil, errors.New("db down"))
	svc, _ := newService(store, new(MockPDF))

	tickets, err := svc.ListForBuyer(context.Background(), buyer)
	assert.Error(t, err)
	assert.NotNil(t, tickets)
	assert.Empty(t, tickets)
}
