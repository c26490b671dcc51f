package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const DefaultCategory = "Uncategorized"

// Listing is one event offered for sale. Rows live in the flyers table.
type Listing struct {
	bun.BaseModel `bun:"table:flyers"`

	ID          string              `bun:"id,pk" json:"id"`
	Title       string              `bun:"title,notnull" json:"title"`
	Description string              `bun:"description,notnull" json:"description"`
	Price       decimal.NullDecimal `bun:"price,type:numeric(12,2)" json:"price"`
	Category    string              `bun:"category" json:"category,omitempty"`
	Date        string              `bun:"date" json:"date,omitempty"`
	Location    string              `bun:"location" json:"location,omitempty"`
	CreatedBy   string              `bun:"created_by" json:"created_by"`
	CreatedAt   time.Time           `bun:"created_at,notnull" json:"created_at"`
}

// CategoryOrDefault groups blank categories under DefaultCategory.
func (l Listing) CategoryOrDefault() string {
	if c := strings.TrimSpace(l.Category); c != "" {
		return c
	}
	return DefaultCategory
}

// Revenue is the listing price, or zero when no price was set.
func (l Listing) Revenue() decimal.Decimal {
	if l.Price.Valid {
		return l.Price.Decimal
	}
	return decimal.Zero
}

// ListingDraft is the seller's input for a new listing.
type ListingDraft struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Category    string           `json:"category,omitempty"`
	Date        string           `json:"date,omitempty"`
	Location    string           `json:"location,omitempty"`
}
