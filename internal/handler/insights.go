package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/service"
)

// InsightService is what InsightHandler needs from service.InsightService.
type InsightService interface {
	AverageDailyNutrients(ctx context.Context, userID string, rng model.DateRange) (*service.DailyAverage, error)
	RDAComparison(ctx context.Context, userID string, rng model.DateRange) ([]service.RDAEntry, error)
	FoodGroupDistribution(ctx context.Context, userID string, rng model.DateRange) (*service.FoodGroupBreakdown, error)
	SwapEffect(ctx context.Context, userID string, rng model.DateRange, nutrientName string) ([]service.DayEffect, error)
}

// InsightHandler serves the read-only summaries under /api/insights. All
// endpoints take ?from=YYYY-MM-DD&to=YYYY-MM-DD.
type InsightHandler struct {
	insights InsightService
	logger   *slog.Logger
}

func NewInsightHandler(insights InsightService, logger *slog.Logger) *InsightHandler {
	return &InsightHandler{insights: insights, logger: logger}
}

// HandleDailyAverage: GET /api/insights/daily-average
func (h *InsightHandler) HandleDailyAverage(w http.ResponseWriter, r *http.Request) {
	serveInsight(h, w, r, func(ctx context.Context, userID string, rng model.DateRange) (*service.DailyAverage, error) {
		return h.insights.AverageDailyNutrients(ctx, userID, rng)
	})
}

// HandleRDA: GET /api/insights/rda
func (h *InsightHandler) HandleRDA(w http.ResponseWriter, r *http.Request) {
	serveInsight(h, w, r, h.insights.RDAComparison)
}

// HandleFoodGroups: GET /api/insights/food-groups
func (h *InsightHandler) HandleFoodGroups(w http.ResponseWriter, r *http.Request) {
	serveInsight(h, w, r, h.insights.FoodGroupDistribution)
}

// HandleSwapEffect: GET /api/insights/swap-effect?nutrient=protein
func (h *InsightHandler) HandleSwapEffect(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("nutrient")
	serveInsight(h, w, r, func(ctx context.Context, userID string, rng model.DateRange) ([]service.DayEffect, error) {
		return h.insights.SwapEffect(ctx, userID, rng, name)
	})
}

// serveInsight does the shared auth, range parsing and error handling.
func serveInsight[T any](h *InsightHandler, w http.ResponseWriter, r *http.Request,
	load func(ctx context.Context, userID string, rng model.DateRange) (T, error),
) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	rng, err := queryRange(r)
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := load(r.Context(), userID, rng)
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
