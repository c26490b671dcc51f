package analytics

import (
	"context"
	"fmt"
	"math"
	"strings"

	"flyerxpress/internal/models"

	"github.com/shopspring/decimal"
)

type InsightType string

const (
	InsightTrend          InsightType = "trend"
	InsightOpportunity    InsightType = "opportunity"
	InsightWarning        InsightType = "warning"
	InsightRecommendation InsightType = "recommendation"
)

type Insight struct {
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Confidence  float64     `json:"confidence"`
	Action      string      `json:"action,omitempty"`
}

type PriceBasis string

const (
	BasisCategoryAverage PriceBasis = "category_average"
	BasisMarketAverage   PriceBasis = "market_average"
	BasisSellerPrice     PriceBasis = "seller_price"
	BasisNoData          PriceBasis = "no_data"
)

type PriceSuggestion struct {
	Price      decimal.Decimal `json:"price"`
	Basis      PriceBasis      `json:"basis"`
	SampleSize int             `json:"sample_size"`
}

// Provider produces advice from a report. Implementations must only use
// figures present in the report or the draft.
type Provider interface {
	Insights(ctx context.Context, report *models.AggregateReport) ([]Insight, error)
	SuggestPrice(ctx context.Context, draft models.ListingDraft, report *models.AggregateReport) (PriceSuggestion, error)
}

// underpricedRatio flags a category whose average sits below this share of the market average.
var underpricedRatio = decimal.NewFromFloat(0.85)

const recentDays = 7

// RuleBasedProvider derives insights directly from report figures.
type RuleBasedProvider struct{}

func NewRuleBasedProvider() *RuleBasedProvider {
	return &RuleBasedProvider{}
}

func (p *RuleBasedProvider) Insights(ctx context.Context, report *models.AggregateReport) ([]Insight, error) {
	if report == nil || report.TotalCount == 0 {
		return []Insight{{
			Type:        InsightWarning,
			Title:       "No listings yet",
			Description: "There are no listings in this window to analyse.",
			Confidence:  1,
			Action:      "Create a listing",
		}}, nil
	}

	var insights []Insight
	total := report.TotalCount

	if leader, ok := leadingCategory(report.Categories); ok {
		insights = append(insights, Insight{
			Type:  InsightTrend,
			Title: fmt.Sprintf("%s leads revenue", leader.Category),
			Description: fmt.Sprintf("%s accounts for %d of %d listings and %s of %s total listed value.",
				leader.Category, leader.Count, total,
				leader.TotalRevenue.StringFixed(2), report.TotalRevenue.StringFixed(2)),
			Confidence: share(leader.Count, total),
			Action:     fmt.Sprintf("Promote more %s events", leader.Category),
		})
	}

	if low, ok := underpricedCategory(report.Categories, report.AveragePrice); ok {
		insights = append(insights, Insight{
			Type:  InsightOpportunity,
			Title: fmt.Sprintf("%s priced below market", low.Category),
			Description: fmt.Sprintf("%s averages %s against a market average of %s.",
				low.Category, low.AveragePrice.StringFixed(2), report.AveragePrice.StringFixed(2)),
			Confidence: share(low.Count, total),
			Action:     fmt.Sprintf("Test higher price points for %s", low.Category),
		})
	}

	if recentListings(report.TimeSeries) == 0 {
		insights = append(insights, Insight{
			Type:        InsightWarning,
			Title:       "No new listings this week",
			Description: fmt.Sprintf("No listings were created in the last %d days.", recentDays),
			Confidence:  1,
			Action:      "Publish a new event",
		})
	}

	if len(report.Categories) > 1 {
		premium := report.Categories[0]
		for _, c := range report.Categories[1:] {
			if c.AveragePrice.GreaterThan(premium.AveragePrice) {
				premium = c
			}
		}
		insights = append(insights, Insight{
			Type:  InsightRecommendation,
			Title: fmt.Sprintf("Premium potential in %s", premium.Category),
			Description: fmt.Sprintf("%s has the highest average price at %s.",
				premium.Category, premium.AveragePrice.StringFixed(2)),
			Confidence: share(premium.Count, total),
			Action:     fmt.Sprintf("Consider premium tiers for %s", premium.Category),
		})
	}

	return insights, nil
}

func (p *RuleBasedProvider) SuggestPrice(ctx context.Context, draft models.ListingDraft, report *models.AggregateReport) (PriceSuggestion, error) {
	if report != nil {
		category := strings.TrimSpace(draft.Category)
		if category == "" {
			category = models.DefaultCategory
		}
		for _, c := range report.Categories {
			if strings.EqualFold(c.Category, category) && c.Count > 0 {
				return PriceSuggestion{Price: c.AveragePrice.Round(2), Basis: BasisCategoryAverage, SampleSize: c.Count}, nil
			}
		}
		if report.TotalCount > 0 {
			return PriceSuggestion{Price: report.AveragePrice.Round(2), Basis: BasisMarketAverage, SampleSize: report.TotalCount}, nil
		}
	}
	if draft.Price != nil {
		return PriceSuggestion{Price: draft.Price.Round(2), Basis: BasisSellerPrice}, nil
	}
	return PriceSuggestion{Price: decimal.Zero, Basis: BasisNoData}, nil
}

// leadingCategory returns the highest-revenue category; ties keep the first seen.
func leadingCategory(categories []models.CategoryStats) (models.CategoryStats, bool) {
	if len(categories) == 0 {
		return models.CategoryStats{}, false
	}
	leader := categories[0]
	for _, c := range categories[1:] {
		if c.TotalRevenue.GreaterThan(leader.TotalRevenue) {
			leader = c
		}
	}
	return leader, true
}

func underpricedCategory(categories []models.CategoryStats, market decimal.Decimal) (models.CategoryStats, bool) {
	threshold := market.Mul(underpricedRatio)
	var found models.CategoryStats
	ok := false
	for _, c := range categories {
		if !c.AveragePrice.LessThan(threshold) {
			continue
		}
		if !ok || c.AveragePrice.LessThan(found.AveragePrice) {
			found, ok = c, true
		}
	}
	return found, ok
}

func recentListings(series []models.TimeBucket) int {
	start := len(series) - recentDays
	if start < 0 {
		start = 0
	}
	n := 0
	for _, b := range series[start:] {
		n += b.EventCount
	}
	return n
}

func share(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*100) / 100
}
