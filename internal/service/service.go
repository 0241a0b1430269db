// Package service contains the business logic layer of the application.
//
// The layers are:
//
//	Handler (HTTP)      → parses requests, writes responses
//	Service (business)  → validates, enforces ownership, orchestrates the core
//	Core (nutrition, swap, matcher) → pure meal/nutrient logic
//	Repository (data)   → reads/writes SQLite
//
// Services take repository interfaces, never *sqlite.DB, so tests can run
// against an in-memory database or a hand-written fake. They return
// apperror values; the handler package turns those into status codes.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/repository"
)

// ownedMeal loads a meal and checks that it belongs to userID.
func ownedMeal(ctx context.Context, meals repository.MealRepository, userID, mealID string) (*model.Meal, error) {
	if userID == "" {
		return nil, apperror.Forbidden("authentication required")
	}
	mealID = strings.TrimSpace(mealID)
	if mealID == "" {
		return nil, apperror.ValidationFailed("id", "meal ID is required")
	}

	meal, err := meals.GetMeal(ctx, mealID)
	if err != nil {
		return nil, fmt.Errorf("service: fetching meal %s: %w", mealID, err)
	}
	if meal.UserID != userID {
		return nil, apperror.Forbidden("you do not have permission to access this meal")
	}
	return meal, nil
}

// requireRange rejects open date ranges and ranges that end before they start.
func requireRange(rng model.DateRange) error {
	if rng.From.IsZero() || rng.To.IsZero() {
		return apperror.ValidationFailed("range", "both from and to dates are required")
	}
	if model.StartOfDay(rng.To).Before(model.StartOfDay(rng.From)) {
		return apperror.ValidationFailed("range", "to must not be before from")
	}
	return nil
}
