package analytics

import (
	"context"
	"testing"

	"flyerxpress/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insightOfType(insights []Insight, typ InsightType) (Insight, bool) {
	for _, i := range insights {
		if i.Type == typ {
			return i, true
		}
	}
	return Insight{}, false
}

func TestInsights_EmptyReport(t *testing.T) {
	report, err := Aggregate(nil, nil, Options{Days: 7, Now: now})
	require.NoError(t, err)

	insights, err := NewRuleBasedProvider().Insights(context.Background(), report)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, InsightWarning, insights[0].Type)
}

func TestInsights_DerivedFromReport(t *testing.T) {
	listings := []models.Listing{
		listing("1", "Music", "100", now),
		listing("2", "Music", "80", now),
		listing("3", "Tech", "10", now),
		listing("4", "Art", "120", now),
	}
	report, err := Aggregate(listings, nil, Options{Days: 7, Now: now})
	require.NoError(t, err)

	insights, err := NewRuleBasedProvider().Insights(context.Background(), report)
	require.NoError(t, err)

	trend, ok := insightOfType(insights, InsightTrend)
	require.True(t, ok)
	assert.Equal(t, "Music leads revenue", trend.Title)
	assert.Equal(t, 0.5, trend.Confidence)

	opportunity, ok := insightOfType(insights, InsightOpportunity)
	require.True(t, ok)
	assert.Contains(t, opportunity.Title, "Tech")
	assert.Equal(t, 0.25, opportunity.Confidence)

	premium, ok := insightOfType(insights, InsightRecommendation)
	require.True(t, ok)
	assert.Contains(t, premium.Title, "Art")

	_, ok = insightOfType(insights, InsightWarning)
	assert.False(t, ok, "listings were created today")

	for _, i := range insights {
		assert.True(t, i.Confidence >= 0 && i.Confidence <= 1)
	}
}

func TestInsights_InactivityWarning(t *testing.T) {
	listings := []models.Listing{listing("1", "Music", "10", now.AddDate(0, 0, -20))}
	report, err := Aggregate(listings, nil, Options{Days: 30, Now: now})
	require.NoError(t, err)

	insights, err := NewRuleBasedProvider().Insights(context.Background(), report)
	require.NoError(t, err)
	_, ok := insightOfType(insights, InsightWarning)
	assert.True(t, ok)
}

func TestSuggestPrice_Fallbacks(t *testing.T) {
	p := NewRuleBasedProvider()
	ctx := context.Background()

	listings := []models.Listing{
		listing("1", "Music", "20", now),
		listing("2", "Music", "30", now),
		listing("3", "Tech", "70", now),
	}
	report, err := Aggregate(listings, nil, Options{Days: 7, Now: now})
	require.NoError(t, err)

	got, err := p.SuggestPrice(ctx, models.ListingDraft{Category: "music"}, report)
	require.NoError(t, err)
	assert.Equal(t, BasisCategoryAverage, got.Basis)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 2, got.SampleSize)

	got, err = p.SuggestPrice(ctx, models.ListingDraft{Category: "Art"}, report)
	require.NoError(t, err)
	assert.Equal(t, BasisMarketAverage, got.Basis)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("40")))

	empty, err := Aggregate(nil, nil, Options{Days: 7, Now: now})
	require.NoError(t, err)
	own := decimal.RequireFromString("12.345")
	got, err = p.SuggestPrice(ctx, models.ListingDraft{Price: &own}, empty)
	require.NoError(t, err)
	assert.Equal(t, BasisSellerPrice, got.Basis)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("12.35")))

	got, err = p.SuggestPrice(ctx, models.ListingDraft{}, empty)
	require.NoError(t, err)
	assert.Equal(t, BasisNoData, got.Basis)
	assert.True(t, got.Price.IsZero())
}
