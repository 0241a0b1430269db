package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/ingredient"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/nutrition"
	"github.com/sakif/nutriswap/internal/repository"
)

const (
	DefaultSuggestLimit = 10
	MaxSuggestLimit     = 50
	MaxIngredientLines  = 100
)

// FoodSuggester ranks foods for a partial description.
type FoodSuggester interface {
	Suggest(ctx context.Context, description string, limit int) ([]model.FoodRecord, error)
}

// MealService logs meals and computes their nutrients.
type MealService struct {
	meals      repository.MealRepository
	foods      FoodSuggester
	aggregator *nutrition.Aggregator
	logger     *slog.Logger
	now        func() time.Time
}

func NewMealService(meals repository.MealRepository, foods FoodSuggester, aggregator *nutrition.Aggregator, logger *slog.Logger) *MealService {
	return &MealService{
		meals:      meals,
		foods:      foods,
		aggregator: aggregator,
		logger:     logger,
		now:        time.Now,
	}
}

// LogMealInput is what a user submits for a new meal.
type LogMealInput struct {
	Date        time.Time // zero means today
	Type        string
	Ingredients string
}

// LogMeal validates and stores a new meal.
//
// Every ingredient must resolve (strict aggregation). Stored lines are
// rewritten to "<amount>g <matched food description>"; the aggregator
// resolves exact descriptions before matching, so later recomputation finds
// the same foods. Breakfast, lunch and dinner can be logged once per day;
// snacks are unlimited.
func (s *MealService) LogMeal(ctx context.Context, userID string, in LogMealInput) (*model.Meal, error) {
	if userID == "" {
		return nil, apperror.Forbidden("authentication required")
	}

	mealType, ok := model.ParseMealType(in.Type)
	if !ok {
		return nil, apperror.ValidationFailed("type", "meal type must be one of Breakfast, Lunch, Dinner or Snack")
	}

	text := strings.TrimSpace(in.Ingredients)
	if text == "" {
		return nil, apperror.ValidationFailed("ingredients", "at least one ingredient is required")
	}
	lines, err := ingredient.Parse(text)
	if err != nil {
		return nil, err
	}
	if len(lines) > MaxIngredientLines {
		return nil, apperror.ValidationFailed("ingredients",
			fmt.Sprintf("a meal can have at most %d ingredients", MaxIngredientLines))
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	date = model.StartOfDay(date)

	if mealType.OncePerDay() {
		taken, err := s.meals.HasMealOfType(ctx, userID, mealType, date)
		if err != nil {
			return nil, fmt.Errorf("service/meal: checking existing %s: %w", mealType, err)
		}
		if taken {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: fmt.Sprintf("%s has already been logged for %s", mealType, date.Format("2006-01-02")),
				Field:   "type",
			}
		}
	}

	res, err := s.aggregator.Aggregate(ctx, lines, nutrition.Strict)
	if err != nil {
		return nil, err
	}

	canonical := make([]ingredient.Line, len(res.Resolved))
	for i, r := range res.Resolved {
		canonical[i] = r.Line.WithDescription(r.Food.Description)
	}

	meal := &model.Meal{
		UserID:        userID,
		Date:          date,
		Type:          mealType,
		Ingredients:   ingredient.Join(canonical),
		TotalCalories: res.Calories(),
		Nutrients:     res.Totals,
	}
	if err := s.meals.CreateMeal(ctx, meal); err != nil {
		return nil, fmt.Errorf("service/meal: saving meal: %w", err)
	}

	s.logger.Info("meal logged",
		slog.String("mealID", meal.ID),
		slog.String("userID", userID),
		slog.String("type", string(mealType)),
		slog.Int("ingredients", len(canonical)),
		slog.Float64("calories", meal.TotalCalories),
	)
	return meal, nil
}

// GetMeal returns one of the user's meals with its nutrients recomputed.
func (s *MealService) GetMeal(ctx context.Context, userID, mealID string) (*model.Meal, error) {
	meal, err := ownedMeal(ctx, s.meals, userID, mealID)
	if err != nil {
		return nil, err
	}

	res, err := s.aggregator.AggregateText(ctx, meal.Ingredients, nutrition.Lenient)
	if err != nil {
		return nil, fmt.Errorf("service/meal: computing nutrients of meal %s: %w", meal.ID, err)
	}
	meal.Nutrients = res.Totals
	return meal, nil
}

// ListMeals returns the user's active meals in rng, newest first.
// Nutrients are left empty; TotalCalories is stored with each meal.
func (s *MealService) ListMeals(ctx context.Context, userID string, rng model.DateRange) ([]model.Meal, error) {
	if userID == "" {
		return nil, apperror.Forbidden("authentication required")
	}

	meals, err := s.meals.ListMeals(ctx, userID, repository.MealQuery{Range: rng})
	if err != nil {
		return nil, fmt.Errorf("service/meal: listing meals: %w", err)
	}
	if meals == nil {
		meals = []model.Meal{}
	}
	return meals, nil
}

// AggregateNutrients totals free-text ingredients without storing anything.
// With strict set an unmatched ingredient is an error; otherwise it is
// reported in Result.Unresolved.
func (s *MealService) AggregateNutrients(ctx context.Context, text string, strict bool) (nutrition.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nutrition.Result{}, apperror.ValidationFailed("ingredients", "at least one ingredient is required")
	}

	mode := nutrition.Lenient
	if strict {
		mode = nutrition.Strict
	}
	return s.aggregator.AggregateText(ctx, text, mode)
}

// SuggestFoods backs ingredient autocompletion. The limit is clamped to
// [1, MaxSuggestLimit], defaulting to DefaultSuggestLimit.
func (s *MealService) SuggestFoods(ctx context.Context, query string, limit int) ([]model.FoodRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("q", "search query is required")
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	if limit > MaxSuggestLimit {
		limit = MaxSuggestLimit
	}

	foods, err := s.foods.Suggest(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("service/meal: searching foods: %w", err)
	}
	if foods == nil {
		foods = []model.FoodRecord{}
	}
	return foods, nil
}
