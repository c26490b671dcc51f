package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flyerxpress/internal/logger"
	"flyerxpress/internal/models"
)

var ErrSellerOnly = errors.New("only sellers can view their own listings report")

type ListingSource interface {
	FetchAll(ctx context.Context) ([]models.Listing, error)
	FetchBySeller(ctx context.Context, sellerID string) ([]models.Listing, error)
}

type SalesSource interface {
	SalesByListing(ctx context.Context) ([]models.ListingSales, error)
}

// ReportRequest is what a dashboard asks for.
type ReportRequest struct {
	Days     int
	Category string
	MineOnly bool
}

// Service builds reports from the live listing set on every call.
type Service struct {
	listings ListingSource
	sales    SalesSource
	provider Provider
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(listings ListingSource, sales SalesSource, provider Provider, log *logger.Logger) *Service {
	if provider == nil {
		provider = NewRuleBasedProvider()
	}
	return &Service{
		listings: listings,
		sales:    sales,
		provider: provider,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock replaces the clock used to anchor the time series.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Report(ctx context.Context, session models.Session, req ReportRequest) (*models.AggregateReport, error) {
	var (
		listings []models.Listing
		err      error
	)
	if req.MineOnly {
		if !session.IsSeller() {
			return nil, ErrSellerOnly
		}
		listings, err = s.listings.FetchBySeller(ctx, session.UserID)
	} else {
		listings, err = s.listings.FetchAll(ctx)
	}
	if err != nil {
		s.logger.Error("ANALYTICS", fmt.Sprintf("Failed to load listings: %v", err))
		return nil, fmt.Errorf("load listings: %w", err)
	}

	var sales []models.ListingSales
	if s.sales != nil {
		sales, err = s.sales.SalesByListing(ctx)
		if err != nil {
			s.logger.Warn("ANALYTICS", fmt.Sprintf("Sales unavailable, top performers omitted: %v", err))
			sales = nil
		}
	}

	report, err := Aggregate(listings, sales, Options{Days: req.Days, Category: req.Category, Now: s.now()})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("ANALYTICS", fmt.Sprintf("Report for %s: %d listings over %d days", session.UserID, report.TotalCount, report.WindowDays))
	return report, nil
}

func (s *Service) Insights(ctx context.Context, session models.Session, req ReportRequest) ([]Insight, error) {
	report, err := s.Report(ctx, session, req)
	if err != nil {
		return nil, err
	}
	return s.provider.Insights(ctx, report)
}

// SuggestPrice compares a draft against every listing on the market.
func (s *Service) SuggestPrice(ctx context.Context, session models.Session, draft models.ListingDraft) (PriceSuggestion, error) {
	report, err := s.Report(ctx, session, ReportRequest{Days: 90})
	if err != nil {
		return PriceSuggestion{}, err
	}
	return s.provider.SuggestPrice(ctx, draft, report)
}
