// Package repository declares the storage interfaces the services depend on.
// internal/repository/sqlite implements all of them; tests use in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/nutrient"
)

// FoodRepository is the read side of the nutrient database.
//
// Failures talking to the store are returned as apperror.ErrUnavailable.
type FoodRepository interface {
	// SearchFoods returns every food whose description contains all terms,
	// case-insensitively. It is a coarse prefilter: ranking and whole-word
	// matching are done by the matcher.
	SearchFoods(ctx context.Context, terms []string) ([]model.FoodRecord, error)
	// FoodByDescription looks up a food by its exact description, ignoring case.
	FoodByDescription(ctx context.Context, description string) (*model.FoodRecord, error)
	// NutrientProfile returns per-100 g amounts. A food without nutrients
	// yields an empty profile, not an error.
	NutrientProfile(ctx context.Context, foodID int64) (nutrient.Profile, error)
	// FoodsByNutrientExtreme ranks food descriptions by one nutrient:
	// highest first for Increase, lowest first for Decrease.
	FoodsByNutrientExtreme(ctx context.Context, id nutrient.ID, dir model.Direction, limit int) ([]string, error)
	FoodsInGroup(ctx context.Context, group string) ([]string, error)
	// FoodGroup returns "" for a food without a group.
	FoodGroup(ctx context.Context, foodID int64) (string, error)
}

// MealQuery filters ListMeals.
type MealQuery struct {
	Range model.DateRange
	// IncludeSuperseded also returns meals that a swap has replaced.
	IncludeSuperseded bool
}

type MealRepository interface {
	CreateMeal(ctx context.Context, meal *model.Meal) error
	GetMeal(ctx context.Context, id string) (*model.Meal, error)
	// ListMeals returns the user's meals ordered by date, newest first.
	ListMeals(ctx context.Context, userID string, q MealQuery) ([]model.Meal, error)
	HasMealOfType(ctx context.Context, userID string, mealType model.MealType, day time.Time) (bool, error)
}

type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	CreateLocalUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
}
