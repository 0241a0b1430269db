package swap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/nutriswap/internal/ingredient"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/repository"
)

// MealStore is the part of the meal repository propagation needs.
type MealStore interface {
	ListMeals(ctx context.Context, userID string, q repository.MealQuery) ([]model.Meal, error)
	CreateMeal(ctx context.Context, meal *model.Meal) error
}

// Propagator applies one swap to every matching meal in a user's history.
type Propagator struct {
	meals   MealStore
	applier *Applier
	logger  *slog.Logger
}

func NewPropagator(meals MealStore, applier *Applier, logger *slog.Logger) *Propagator {
	return &Propagator{meals: meals, applier: applier, logger: logger}
}

// Propagate swaps line for newDescription in each active meal of userID
// inside rng that contains it, saving every result as a new meal.
//
// Meals are processed one at a time with no transaction around the batch.
// On failure the meals saved so far stay saved and their count is returned
// with the error.
func (p *Propagator) Propagate(ctx context.Context, userID, line, newDescription string, rng model.DateRange) (int, error) {
	if _, err := ingredient.ParseLine(line); err != nil {
		return 0, err
	}

	meals, err := p.meals.ListMeals(ctx, userID, repository.MealQuery{Range: rng})
	if err != nil {
		return 0, fmt.Errorf("swap: listing meals for %s: %w", userID, err)
	}

	count := 0
	for i := range meals {
		meal := &meals[i]
		if _, ok := FindLine(meal.Ingredients, line); !ok {
			continue
		}

		swapped, err := p.applier.Apply(ctx, meal, line, newDescription)
		if err != nil {
			return count, fmt.Errorf("swap: applying to meal %s: %w", meal.ID, err)
		}
		if err := p.meals.CreateMeal(ctx, swapped); err != nil {
			return count, fmt.Errorf("swap: saving swap of meal %s: %w", meal.ID, err)
		}
		count++

		p.logger.Debug("swap propagated",
			slog.String("from", meal.ID),
			slog.String("to", swapped.ID),
		)
	}

	p.logger.Info("swap propagation finished",
		slog.String("userID", userID),
		slog.String("line", line),
		slog.String("replacement", newDescription),
		slog.Int("scanned", len(meals)),
		slog.Int("updated", count),
	)
	return count, nil
}
