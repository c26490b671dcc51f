package analytics_api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flyerxpress/internal/analytics"
	"flyerxpress/internal/auth"
	"flyerxpress/internal/logger"
	"flyerxpress/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticListings []models.Listing

func (s staticListings) FetchAll(ctx context.Context) ([]models.Listing, error) { return s, nil }

func (s staticListings) FetchBySeller(ctx context.Context, sellerID string) ([]models.Listing, error) {
	var out []models.Listing
	for _, l := range s {
		if l.CreatedBy == sellerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func newRouter(session models.Session) http.Handler {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	listings := staticListings{
		{ID: "1", Title: "Jazz", Category: "Music", Price: decimal.NewNullDecimal(decimal.NewFromInt(20)), CreatedBy: "s1", CreatedAt: now},
		{ID: "2", Title: "Talk", Category: "Tech", CreatedBy: "s2", CreatedAt: now},
	}
	log := logger.NewLoggerWithWriter(io.Discard)
	svc := analytics.NewService(listings, nil, nil, log).WithClock(func() time.Time { return now })

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithSession(req.Context(), session)))
		})
	})
	NewHandler(svc, log).RegisterRoutes(r)
	return r
}

func TestGetReport(t *testing.T) {
	router := newRouter(models.Session{UserID: "b", Role: models.RoleBuyer})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/report?window=7d", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.AggregateReport `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Data.TotalCount)
	assert.Len(t, resp.Data.TimeSeries, 7)
	assert.True(t, resp.Data.AveragePrice.Equal(decimal.NewFromInt(10)))
}

func TestGetReport_MineForSeller(t *testing.T) {
	router := newRouter(models.Session{UserID: "s1", Role: models.RoleSeller})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/report?window=30d&mine=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.AggregateReport `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Data.TotalCount)
}

func TestGetReport_Errors(t *testing.T) {
	buyer := newRouter(models.Session{UserID: "b", Role: models.RoleBuyer})
	tests := []struct {
		url  string
		want int
	}{
		{"/analytics/report?window=2w", http.StatusBadRequest},
		{"/analytics/report?mine=maybe", http.StatusBadRequest},
		{"/analytics/report?mine=true", http.StatusForbidden},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		buyer.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
		assert.Equal(t, tt.want, rec.Code, tt.url)
	}
}

func TestGetInsights(t *testing.T) {
	router := newRouter(models.Session{UserID: "b", Role: models.RoleBuyer})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/insights?window=90d", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []analytics.Insight `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Data)
}
