package analytics_api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"flyerxpress/internal/analytics"
	"flyerxpress/internal/auth"
	"flyerxpress/internal/logger"
	"flyerxpress/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Handler serves dashboard reports and insights.
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/report", h.GetReport)
		r.Get("/insights", h.GetInsights)
	})
}

func parseRequest(r *http.Request) (analytics.ReportRequest, error) {
	q := r.URL.Query()
	days, err := analytics.ParseWindow(q.Get("window"))
	if err != nil {
		return analytics.ReportRequest{}, err
	}
	mine := false
	if v := q.Get("mine"); v != "" {
		if mine, err = strconv.ParseBool(v); err != nil {
			return analytics.ReportRequest{}, fmt.Errorf("mine must be true or false")
		}
	}
	return analytics.ReportRequest{Days: days, Category: q.Get("category"), MineOnly: mine}, nil
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analytics.ErrInvalidWindow):
		utils.WriteError(w, http.StatusBadRequest, "Invalid window", err)
	case errors.Is(err, analytics.ErrSellerOnly):
		utils.WriteError(w, http.StatusForbidden, "Seller role required", err)
	default:
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Report failed: %v", err))
		utils.WriteError(w, http.StatusServiceUnavailable, "Analytics unavailable", nil)
	}
}

// GetReport handles GET /analytics/report?window=30d&category=Music&mine=true
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrUnauthorized)
		return
	}
	req, err := parseRequest(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	report, err := h.Service.Report(r.Context(), session, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Report generated", report)
}

func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrUnauthorized)
		return
	}
	req, err := parseRequest(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	insights, err := h.Service.Insights(r.Context(), session, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Insights generated", insights)
}
