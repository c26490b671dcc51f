package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flyerxpress/internal/kafka"
	"flyerxpress/internal/listings/db"
	"flyerxpress/internal/logger"
	"flyerxpress/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDraft = errors.New("invalid listing")
	ErrSellerOnly   = errors.New("only sellers can create listings")
	ErrNotFound     = db.ErrNotFound
)

type Store interface {
	FetchAll(ctx context.Context) ([]models.Listing, error)
	FetchBySeller(ctx context.Context, sellerID string) ([]models.Listing, error)
	GetByID(ctx context.Context, id string) (*models.Listing, error)
	Insert(ctx context.Context, draft models.ListingDraft, sellerID string) (*models.Listing, error)
}

type Service struct {
	store     Store
	publisher kafka.Publisher
	topic     string
	logger    *logger.Logger
}

func NewService(store Store, publisher kafka.Publisher, topic string, log *logger.Logger) *Service {
	if publisher == nil {
		publisher = kafka.NoopPublisher{}
	}
	return &Service{store: store, publisher: publisher, topic: topic, logger: log}
}

// List returns all listings newest first. A store failure is logged and
// yields an empty list alongside the error.
func (s *Service) List(ctx context.Context) ([]models.Listing, error) {
	listings, err := s.store.FetchAll(ctx)
	if err != nil {
		s.logger.Error("LISTING", fmt.Sprintf("Failed to fetch listings: %v", err))
		return []models.Listing{}, err
	}
	return listings, nil
}

func (s *Service) ListBySeller(ctx context.Context, session models.Session) ([]models.Listing, error) {
	if !session.IsSeller() {
		return []models.Listing{}, ErrSellerOnly
	}
	listings, err := s.store.FetchBySeller(ctx, session.UserID)
	if err != nil {
		s.logger.Error("LISTING", fmt.Sprintf("Failed to fetch listings for seller %s: %v", session.UserID, err))
		return []models.Listing{}, err
	}
	return listings, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Listing, error) {
	return s.store.GetByID(ctx, id)
}

// Search matches query case-insensitively against title, description and location.
func (s *Service) Search(ctx context.Context, query string) ([]models.Listing, error) {
	listings, err := s.List(ctx)
	if err != nil {
		return listings, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return listings, nil
	}

	matched := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if strings.Contains(strings.ToLower(l.Title), q) ||
			strings.Contains(strings.ToLower(l.Description), q) ||
			strings.Contains(strings.ToLower(l.Location), q) {
			matched = append(matched, l)
		}
	}
	return matched, nil
}

// maxPrice is the first value a numeric(12,2) column cannot hold.
var maxPrice = decimal.New(1, 10)

func ValidateDraft(draft models.ListingDraft) error {
	if strings.TrimSpace(draft.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidDraft)
	}
	if strings.TrimSpace(draft.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidDraft)
	}
	if draft.Price != nil {
		switch {
		case draft.Price.IsNegative():
			return fmt.Errorf("%w: price cannot be negative", ErrInvalidDraft)
		case !draft.Price.Equal(draft.Price.Round(2)):
			return fmt.Errorf("%w: price has more than 2 decimal places", ErrInvalidDraft)
		case draft.Price.GreaterThanOrEqual(maxPrice):
			return fmt.Errorf("%w: price must be below %s", ErrInvalidDraft, maxPrice)
		}
	}
	return nil
}

// Create stores a seller's draft and announces it. A failed announcement is
// logged; the listing is already stored.
func (s *Service) Create(ctx context.Context, session models.Session, draft models.ListingDraft) (*models.Listing, error) {
	if !session.IsSeller() {
		s.logger.LogSecurity("FORBIDDEN", fmt.Sprintf("user %s tried to create a listing as %s", session.UserID, session.Role))
		return nil, ErrSellerOnly
	}
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}

	listing, err := s.store.Insert(ctx, draft, session.UserID)
	if err != nil {
		s.logger.Error("LISTING", fmt.Sprintf("Failed to insert listing: %v", err))
		return nil, fmt.Errorf("insert listing: %w", err)
	}
	s.logger.LogListing("CREATE", listing.ID, listing.Title)

	evt := models.ListingCreatedEvent{
		ListingID: listing.ID,
		SellerID:  listing.CreatedBy,
		Title:     listing.Title,
		Category:  listing.CategoryOrDefault(),
		Price:     listing.Revenue(),
		CreatedAt: listing.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, s.topic, listing.ID, evt); err != nil {
		s.logger.Warn("LISTING", fmt.Sprintf("listing.created not published for %s: %v", listing.ID, err))
	}

	return listing, nil
}
