package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ListingCreatedEvent struct {
	ListingID string          `json:"listing_id"`
	SellerID  string          `json:"seller_id"`
	Title     string          `json:"title"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

type PaymentEventType string

const (
	PaymentCompleted PaymentEventType = "payment.completed"
	PaymentFailed    PaymentEventType = "payment.failed"
)

type PaymentEvent struct {
	Type          PaymentEventType `json:"type"`
	SessionID     string           `json:"session_id"`
	ListingID     string           `json:"listing_id"`
	BuyerID       string           `json:"buyer_id"`
	Method        string           `json:"method"`
	Quantity      int              `json:"quantity"`
	GrandTotal    decimal.Decimal  `json:"grand_total"`
	Currency      string           `json:"currency"`
	TransactionID string           `json:"transaction_id,omitempty"`
	TicketIDs     []string         `json:"ticket_ids,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// SaleEvent is pushed to sellers watching a listing's sales stream.
type SaleEvent struct {
	ListingID     string          `json:"listing_id"`
	Quantity      int             `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	TicketIDs     []string        `json:"ticket_ids"`
	Timestamp     time.Time       `json:"timestamp"`
}
