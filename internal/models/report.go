package models

import "github.com/shopspring/decimal"

// AggregateReport is derived from the current listings on every request and never stored.
type AggregateReport struct {
	WindowDays    int             `json:"window_days"`
	Category      string          `json:"category,omitempty"`
	TotalCount    int             `json:"total_count"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	AveragePrice  decimal.Decimal `json:"average_price"`
	Categories    []CategoryStats `json:"categories"`
	TopPerformers []TopPerformer  `json:"top_performers"`
	TimeSeries    []TimeBucket    `json:"time_series"`
}

type CategoryStats struct {
	Category     string          `json:"category"`
	Count        int             `json:"count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

type TimeBucket struct {
	Date       string          `json:"date"`
	EventCount int             `json:"event_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type TopPerformer struct {
	ListingID   string          `json:"listing_id"`
	Title       string          `json:"title"`
	TicketsSold int             `json:"tickets_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// ListingSales is what was actually sold for one listing.
type ListingSales struct {
	ListingID   string          `bun:"listing_id" json:"listing_id"`
	TicketsSold int             `bun:"tickets_sold" json:"tickets_sold"`
	Revenue     decimal.Decimal `bun:"revenue" json:"revenue"`
}
