package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"flyerxpress/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("listing not found")

type DB struct {
	Bun *bun.DB
	Now func() time.Time
}

func New(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB, Now: time.Now}
}

// FetchAll returns every listing, newest first.
func (d *DB) FetchAll(ctx context.Context) ([]models.Listing, error) {
	listings := []models.Listing{}
	err := d.Bun.NewSelect().
		Model(&listings).
		Order("created_at DESC").
		Scan(ctx)
	return listings, err
}

func (d *DB) FetchBySeller(ctx context.Context, sellerID string) ([]models.Listing, error) {
	listings := []models.Listing{}
	err := d.Bun.NewSelect().
		Model(&listings).
		Where("created_by = ?", sellerID).
		Order("created_at DESC").
		Scan(ctx)
	return listings, err
}

func (d *DB) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	err := d.Bun.NewSelect().
		Model(&listing).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// Insert stores a draft for sellerID and returns the stored listing with its
// generated id and creation time.
func (d *DB) Insert(ctx context.Context, draft models.ListingDraft, sellerID string) (*models.Listing, error) {
	listing := models.Listing{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(draft.Title),
		Description: strings.TrimSpace(draft.Description),
		Category:    strings.TrimSpace(draft.Category),
		Date:        strings.TrimSpace(draft.Date),
		Location:    strings.TrimSpace(draft.Location),
		CreatedBy:   sellerID,
		CreatedAt:   d.Now().UTC(),
	}
	if draft.Price != nil {
		listing.Price = decimal.NewNullDecimal(draft.Price.Round(2))
	}

	if _, err := d.Bun.NewInsert().Model(&listing).Exec(ctx); err != nil {
		return nil, err
	}
	return &listing, nil
}
