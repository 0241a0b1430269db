package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/nutriswap/internal/matcher"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/nutrient"
	"github.com/sakif/nutriswap/internal/nutrition"
	sqliteRepo "github.com/sakif/nutriswap/internal/repository/sqlite"
	"github.com/sakif/nutriswap/internal/swap"
)

// testEnv wires the services to an in-memory database seeded with a few
// foods and two users.
type testEnv struct {
	db       *sqliteRepo.DB
	meals    *MealService
	swaps    *SwapService
	insights *InsightService
	alice    string
	bob      string
}

var testFoods = []struct {
	desc    string
	group   string
	profile nutrient.Profile
}{
	{"Chicken breast", "Poultry Products", nutrient.Profile{nutrient.EnergyKcal: 165, nutrient.Protein: 31, nutrient.TotalFat: 3.6}},
	{"Turkey breast", "Poultry Products", nutrient.Profile{nutrient.EnergyKcal: 160, nutrient.Protein: 34, nutrient.TotalFat: 1}},
	{"White rice", "Cereal Grains and Pasta", nutrient.Profile{nutrient.EnergyKcal: 130, nutrient.Protein: 2.7, nutrient.Carbohydrate: 28}},
	{"Broccoli", "Vegetables and Vegetable Products", nutrient.Profile{nutrient.EnergyKcal: 34, nutrient.Protein: 2.8, nutrient.Fibre: 2.6}},
	{"Cheddar cheese", "Dairy and Egg Products", nutrient.Profile{nutrient.EnergyKcal: 403, nutrient.Protein: 25}},
	{"Cola", "Beverages", nutrient.Profile{nutrient.EnergyKcal: 42, nutrient.Sugars: 10.6}},
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, f := range testFoods {
		rec := &model.FoodRecord{Description: f.desc, Group: f.group}
		require.NoError(t, db.CreateFood(ctx, rec))
		for id, v := range f.profile {
			require.NoError(t, db.SetNutrientAmount(ctx, rec.ID, id, v))
		}
	}

	alice := &model.User{Login: "alice", PasswordHash: "x"}
	require.NoError(t, db.CreateLocalUser(ctx, alice))
	bob := &model.User{Login: "bob", PasswordHash: "x"}
	require.NoError(t, db.CreateLocalUser(ctx, bob))

	logger := testLogger()
	m := matcher.New(db, matcher.DefaultConfig(), logger)
	agg := nutrition.NewAggregator(m, db, logger)
	engine := swap.NewEngine(db, agg, swap.DefaultConfig(), logger)
	applier := swap.NewApplier(agg, logger)
	propagator := swap.NewPropagator(db, applier, logger)

	return &testEnv{
		db:       db,
		meals:    NewMealService(db, m, agg, logger),
		swaps:    NewSwapService(db, engine, applier, propagator, logger),
		insights: NewInsightService(db, agg, logger),
		alice:    alice.ID,
		bob:      bob.ID,
	}
}

// day returns noon UTC on the given day of March 2024.
func day(d int) time.Time {
	return time.Date(2024, time.March, d, 12, 0, 0, 0, time.UTC)
}

func (e *testEnv) logMeal(t *testing.T, userID string, d int, mealType model.MealType, ingredients string) *model.Meal {
	t.Helper()
	meal, err := e.meals.LogMeal(context.Background(), userID, LogMealInput{
		Date:        day(d),
		Type:        string(mealType),
		Ingredients: ingredients,
	})
	require.NoError(t, err)
	return meal
}
