package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TicketID      string          `bun:"ticket_id,pk" json:"ticket_id"`
	OrderID       string          `bun:"order_id,notnull" json:"order_id"`
	ListingID     string          `bun:"listing_id,notnull" json:"listing_id"`
	ListingTitle  string          `bun:"listing_title" json:"listing_title"`
	BuyerID       string          `bun:"buyer_id,notnull" json:"buyer_id"`
	TransactionID string          `bun:"transaction_id,notnull" json:"transaction_id"`
	PricePaid     decimal.Decimal `bun:"price_paid,type:numeric(12,2)" json:"price_paid"`
	QRCode        []byte          `bun:"qr_code" json:"-"`
	IssuedAt      time.Time       `bun:"issued_at,notnull" json:"issued_at"`
}

// CompletedOrder is what checkout hands to ticket issuing after a successful charge.
type CompletedOrder struct {
	OrderID       string
	ListingID     string
	ListingTitle  string
	BuyerID       string
	TransactionID string
	UnitPrice     decimal.Decimal
	Quantity      int
}
