package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/nutrient"
	"github.com/sakif/nutriswap/internal/nutrition"
	"github.com/sakif/nutriswap/internal/service"
)

// MealService is what MealHandler needs from service.MealService.
type MealService interface {
	LogMeal(ctx context.Context, userID string, in service.LogMealInput) (*model.Meal, error)
	GetMeal(ctx context.Context, userID, mealID string) (*model.Meal, error)
	ListMeals(ctx context.Context, userID string, rng model.DateRange) ([]model.Meal, error)
	AggregateNutrients(ctx context.Context, text string, strict bool) (nutrition.Result, error)
	SuggestFoods(ctx context.Context, query string, limit int) ([]model.FoodRecord, error)
}

// MealHandler serves meal logging, nutrient aggregation and food search.
type MealHandler struct {
	meals  MealService
	logger *slog.Logger
}

func NewMealHandler(meals MealService, logger *slog.Logger) *MealHandler {
	return &MealHandler{meals: meals, logger: logger}
}

type createMealRequest struct {
	Date        string `json:"date"` // YYYY-MM-DD, empty for today
	Type        string `json:"type"`
	Ingredients string `json:"ingredients"`
}

// HandleCreate logs a meal.
//
// HTTP: POST /api/meals
// BODY: {"date":"2024-03-01","type":"Lunch","ingredients":"150g chicken breast\n100g rice"}
func (h *MealHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createMealRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, err)
		return
	}

	meal, err := h.meals.LogMeal(r.Context(), userID, service.LogMealInput{
		Date:        date,
		Type:        req.Type,
		Ingredients: req.Ingredients,
	})
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, meal)
}

// HandleList returns the user's active meals, newest first.
//
// HTTP: GET /api/meals?from=2024-03-01&to=2024-03-31
func (h *MealHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	rng, err := queryRange(r)
	if err != nil {
		writeError(w, err)
		return
	}

	meals, err := h.meals.ListMeals(r.Context(), userID, rng)
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meals)
}

// HandleGet returns one meal with its nutrients.
//
// HTTP: GET /api/meals/{id}
func (h *MealHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	meal, err := h.meals.GetMeal(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meal)
}

type aggregateRequest struct {
	Ingredients string `json:"ingredients"`
	Strict      bool   `json:"strict"`
}

type aggregateResponse struct {
	Calories   float64              `json:"calories"`
	Totals     nutrient.Profile     `json:"totals"`
	Resolved   []nutrition.Resolved `json:"resolved"`
	Unresolved []string             `json:"unresolved"`
}

// HandleAggregate totals ingredient text without saving a meal.
//
// HTTP: POST /api/nutrients/aggregate
// BODY: {"ingredients":"150g chicken breast","strict":true}
func (h *MealHandler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.meals.AggregateNutrients(r.Context(), req.Ingredients, req.Strict)
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}

	out := aggregateResponse{
		Calories:   res.Calories(),
		Totals:     res.Totals,
		Resolved:   res.Resolved,
		Unresolved: res.Unresolved,
	}
	if out.Resolved == nil {
		out.Resolved = []nutrition.Resolved{}
	}
	if out.Unresolved == nil {
		out.Unresolved = []string{}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSearchFoods suggests foods for a partial description.
//
// HTTP: GET /api/foods/search?q=chicken&limit=10
func (h *MealHandler) HandleSearchFoods(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, apperror.ValidationFailed("limit", "limit must be an integer"))
			return
		}
		limit = n
	}

	foods, err := h.meals.SuggestFoods(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, foods)
}
