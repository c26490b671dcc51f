package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"flyerxpress/internal/models"

	"github.com/shopspring/decimal"
)

const (
	dateLayout        = "2006-01-02"
	topPerformerLimit = 5
	allCategories     = "all"
)

var ErrInvalidWindow = errors.New("window must be 7, 30, 90 or 365 days")

var windows = map[int]bool{7: true, 30: true, 90: true, 365: true}

// Options selects which listings a report covers.
type Options struct {
	Days     int
	Category string
	Now      time.Time
}

// ParseWindow accepts the dashboard's range labels ("7d", "30d", "90d", "1y")
// as well as a plain day count. Blank means 30 days.
func ParseWindow(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 30, nil
	case "7d", "7":
		return 7, nil
	case "30d", "30":
		return 30, nil
	case "90d", "90":
		return 90, nil
	case "1y", "365d", "365":
		return 365, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
}

// Aggregate summarises listings over a trailing window of opts.Days calendar
// days ending on opts.Now. Sales only feed the top performer ranking; every
// other figure is computed from listing prices.
func Aggregate(listings []models.Listing, sales []models.ListingSales, opts Options) (*models.AggregateReport, error) {
	if !windows[opts.Days] {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, opts.Days)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	filtered := filterByCategory(listings, opts.Category)

	report := &models.AggregateReport{
		WindowDays:   opts.Days,
		Category:     normalizedCategory(opts.Category),
		TotalCount:   len(filtered),
		TotalRevenue: decimal.Zero,
	}

	type bucket struct {
		count   int
		revenue decimal.Decimal
	}
	var order []string
	byCategory := make(map[string]*bucket)

	for _, l := range filtered {
		revenue := l.Revenue()
		report.TotalRevenue = report.TotalRevenue.Add(revenue)

		name := l.CategoryOrDefault()
		b, ok := byCategory[name]
		if !ok {
			b = &bucket{revenue: decimal.Zero}
			byCategory[name] = b
			order = append(order, name)
		}
		b.count++
		b.revenue = b.revenue.Add(revenue)
	}

	report.AveragePrice = average(report.TotalRevenue, report.TotalCount)

	report.Categories = make([]models.CategoryStats, 0, len(order))
	for _, name := range order {
		b := byCategory[name]
		report.Categories = append(report.Categories, models.CategoryStats{
			Category:     name,
			Count:        b.count,
			TotalRevenue: b.revenue,
			AveragePrice: average(b.revenue, b.count),
		})
	}

	report.TopPerformers = topPerformers(filtered, sales)
	report.TimeSeries = timeSeries(filtered, opts.Days, now)

	return report, nil
}

func normalizedCategory(category string) string {
	c := strings.TrimSpace(category)
	if strings.EqualFold(c, allCategories) {
		return ""
	}
	return c
}

func filterByCategory(listings []models.Listing, category string) []models.Listing {
	c := normalizedCategory(category)
	if c == "" {
		return listings
	}
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if strings.EqualFold(l.CategoryOrDefault(), c) {
			out = append(out, l)
		}
	}
	return out
}

func average(total decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count)))
}

func topPerformers(listings []models.Listing, sales []models.ListingSales) []models.TopPerformer {
	titles := make(map[string]string, len(listings))
	for _, l := range listings {
		titles[l.ID] = l.Title
	}

	out := make([]models.TopPerformer, 0, topPerformerLimit)
	for _, s := range sales {
		title, ok := titles[s.ListingID]
		if !ok || s.TicketsSold <= 0 {
			continue
		}
		out = append(out, models.TopPerformer{
			ListingID:   s.ListingID,
			Title:       title,
			TicketsSold: s.TicketsSold,
			Revenue:     s.Revenue,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		if out[i].TicketsSold != out[j].TicketsSold {
			return out[i].TicketsSold > out[j].TicketsSold
		}
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ListingID < out[j].ListingID
	})

	if len(out) > topPerformerLimit {
		out = out[:topPerformerLimit]
	}
	return out
}

// timeSeries returns one bucket per calendar day, oldest first, with today last.
func timeSeries(listings []models.Listing, days int, now time.Time) []models.TimeBucket {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	buckets := make([]models.TimeBucket, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		key := today.AddDate(0, 0, i-(days-1)).Format(dateLayout)
		buckets[i] = models.TimeBucket{Date: key, Revenue: decimal.Zero}
		index[key] = i
	}

	for _, l := range listings {
		i, ok := index[l.CreatedAt.In(loc).Format(dateLayout)]
		if !ok {
			continue
		}
		buckets[i].EventCount++
		buckets[i].Revenue = buckets[i].Revenue.Add(l.Revenue())
	}
	return buckets
}
