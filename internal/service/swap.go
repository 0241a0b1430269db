package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/repository"
	"github.com/sakif/nutriswap/internal/swap"
)

// SwapService recommends and applies ingredient swaps on a user's meals.
type SwapService struct {
	meals      repository.MealRepository
	engine     *swap.Engine
	applier    *swap.Applier
	propagator *swap.Propagator
	logger     *slog.Logger
}

func NewSwapService(
	meals repository.MealRepository,
	engine *swap.Engine,
	applier *swap.Applier,
	propagator *swap.Propagator,
	logger *slog.Logger,
) *SwapService {
	return &SwapService{
		meals:      meals,
		engine:     engine,
		applier:    applier,
		propagator: propagator,
		logger:     logger,
	}
}

// SuggestRequest is the user's side of a recommendation pass.
type SuggestRequest struct {
	Line             string       `json:"line"`
	Goals            []model.Goal `json:"goals"`
	TolerancePercent float64      `json:"tolerancePercent"`
	SameGroupOnly    bool         `json:"sameGroupOnly"`
	StrictTolerance  bool         `json:"strictTolerance"`
}

// FindSuggestions ranks replacements for one ingredient of the user's meal.
func (s *SwapService) FindSuggestions(ctx context.Context, userID, mealID string, req SuggestRequest) ([]model.SwapSuggestion, error) {
	meal, err := ownedMeal(ctx, s.meals, userID, mealID)
	if err != nil {
		return nil, err
	}

	suggestions, err := s.engine.FindSuggestions(ctx, swap.Request{
		Meal:             meal,
		Line:             req.Line,
		Goals:            req.Goals,
		TolerancePercent: req.TolerancePercent,
		SameGroupOnly:    req.SameGroupOnly,
		StrictTolerance:  req.StrictTolerance,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("swap suggestions ranked",
		slog.String("mealID", meal.ID),
		slog.String("line", req.Line),
		slog.Int("count", len(suggestions)),
	)
	return suggestions, nil
}

// ApplySwap replaces one ingredient of the user's meal and stores the result
// as a new meal linked to the original. A meal that has already been
// replaced by a swap cannot be swapped again; swap its replacement instead.
func (s *SwapService) ApplySwap(ctx context.Context, userID, mealID, line, newDescription string) (*model.Meal, error) {
	meal, err := ownedMeal(ctx, s.meals, userID, mealID)
	if err != nil {
		return nil, err
	}

	active, err := s.isActive(ctx, meal)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, &apperror.AppError{
			Err:     apperror.ErrConflict,
			Message: fmt.Sprintf("meal %s has already been replaced by a swap", meal.ID),
			Field:   "id",
		}
	}

	swapped, err := s.applier.Apply(ctx, meal, line, newDescription)
	if err != nil {
		return nil, err
	}
	if err := s.meals.CreateMeal(ctx, swapped); err != nil {
		return nil, fmt.Errorf("service/swap: saving swap of meal %s: %w", meal.ID, err)
	}

	s.logger.Info("swap applied",
		slog.String("from", meal.ID),
		slog.String("to", swapped.ID),
		slog.String("line", strings.TrimSpace(line)),
		slog.String("replacement", newDescription),
		slog.Float64("caloriesBefore", meal.TotalCalories),
		slog.Float64("caloriesAfter", swapped.TotalCalories),
	)
	return swapped, nil
}

// PropagateSwap applies the same swap to every active meal of the user in
// rng that contains line. The count of meals updated is returned even when
// an error stops the batch part way.
func (s *SwapService) PropagateSwap(ctx context.Context, userID, line, newDescription string, rng model.DateRange) (int, error) {
	if userID == "" {
		return 0, apperror.Forbidden("authentication required")
	}
	if strings.TrimSpace(newDescription) == "" {
		return 0, apperror.ValidationFailed("newDescription", "replacement food is required")
	}
	if !rng.From.IsZero() && !rng.To.IsZero() {
		if err := requireRange(rng); err != nil {
			return 0, err
		}
	}

	return s.propagator.Propagate(ctx, userID, line, newDescription, rng)
}

// isActive reports whether no swapped meal references meal.
func (s *SwapService) isActive(ctx context.Context, meal *model.Meal) (bool, error) {
	day := model.DateRange{From: meal.Date, To: meal.Date}
	meals, err := s.meals.ListMeals(ctx, meal.UserID, repository.MealQuery{Range: day})
	if err != nil {
		return false, fmt.Errorf("service/swap: listing meals of %s: %w", meal.Date.Format("2006-01-02"), err)
	}
	for _, m := range meals {
		if m.ID == meal.ID {
			return true, nil
		}
	}
	return false, nil
}
