package analytics

import (
	"context"

	"flyerxpress/internal/models"

	"github.com/uptrace/bun"
)

// DB reads recorded ticket sales for analytics.
type DB struct {
	bun *bun.DB
}

func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// SalesByListing totals issued tickets and the price paid for them per listing.
func (db *DB) SalesByListing(ctx context.Context) ([]models.ListingSales, error) {
	var sales []models.ListingSales
	err := db.bun.NewSelect().
		TableExpr("tickets").
		ColumnExpr("listing_id").
		ColumnExpr("COUNT(*) AS tickets_sold").
		ColumnExpr("COALESCE(SUM(price_paid), 0) AS revenue").
		GroupExpr("listing_id").
		Scan(ctx, &sales)
	return sales, err
}
