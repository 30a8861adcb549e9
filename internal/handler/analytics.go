package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/toolvane/toolvane/internal/analytics"
	"github.com/toolvane/toolvane/internal/mockdata"
	"github.com/toolvane/toolvane/internal/model"
)

// defaultPeriodDays is the trailing window when no period is given.
const defaultPeriodDays = 30

// AnalyticsHandler handles event recording and summary queries.
type AnalyticsHandler struct {
	agg    *analytics.Aggregator
	rater  *mockdata.Generator
	logger *slog.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler. rater supplies the
// fabricated visitor and pageview numbers.
func NewAnalyticsHandler(agg *analytics.Aggregator, rater *mockdata.Generator, logger *slog.Logger) *AnalyticsHandler {
	if rater == nil {
		rater = mockdata.New()
	}
	return &AnalyticsHandler{agg: agg, rater: rater, logger: logger}
}

// Click handles POST /api/analytics/click.
func (h *AnalyticsHandler) Click(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ToolID    string `json:"tool_id"`
		SessionID string `json:"session_id"`
		ClickType string `json:"click_type"`
		Referrer  string `json:"referrer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.agg.RecordClick(r.Context(), analytics.ClickInput{
		ToolID:    req.ToolID,
		SessionID: req.SessionID,
		ClickType: model.ClickType(req.ClickType),
		UserAgent: r.UserAgent(),
		Referrer:  req.Referrer,
		IP:        r.RemoteAddr,
	})
	if err != nil {
		h.logger.Error("record click failed", "tool_id", req.ToolID, "error", err)
		writeStoreError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"data": event})
}

// Conversion handles POST /api/analytics/conversion.
func (h *AnalyticsHandler) Conversion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ToolID  string  `json:"tool_id"`
		ClickID string  `json:"click_id"`
		Amount  float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.agg.RecordConversion(r.Context(), analytics.ConversionInput{
		ToolID:  req.ToolID,
		ClickID: req.ClickID,
		Amount:  req.Amount,
	})
	if err != nil {
		h.logger.Error("record conversion failed", "tool_id", req.ToolID, "error", err)
		writeStoreError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"data": event})
}

// Summary handles GET /api/analytics?period=<days>.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.agg.Summarize(r.Context(), periodDays(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"data": summary})
}

// Commission handles GET /api/commission?toolId&period.
func (h *AnalyticsHandler) Commission(w http.ResponseWriter, r *http.Request) {
	toolID := r.URL.Query().Get("toolId")
	if toolID == "" {
		writeError(w, http.StatusBadRequest, "toolId is required")
		return
	}

	stats, err := h.agg.ToolStats(r.Context(), toolID, periodDays(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"data": stats})
}

// UserHistory handles GET /api/user/{sessionId}/history. It returns
// the session's tracked clicks, newest first.
func (h *AnalyticsHandler) UserHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.agg.UserHistory(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"history": history})
}

// Users handles GET /api/analytics/users?period. There is no real
// visitor feed; the numbers come from the mock data generator.
func (h *AnalyticsHandler) Users(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, envelope{"data": h.rater.Visitors(periodDays(r))})
}

// Pageviews handles GET /api/analytics/pageviews?period, fabricated
// the same way as Users.
func (h *AnalyticsHandler) Pageviews(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, envelope{"data": h.rater.Pageviews(periodDays(r))})
}

// Revenue handles GET /api/revenue?period.
func (h *AnalyticsHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	summary, err := h.agg.Revenue(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"data": summary})
}

// periodDays parses the period query parameter as a day count.
func periodDays(r *http.Request) int {
	if p := r.URL.Query().Get("period"); p != "" {
		if days, err := strconv.Atoi(p); err == nil && days > 0 {
			return days
		}
	}
	return defaultPeriodDays
}
