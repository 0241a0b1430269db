package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/nutrient"
	"github.com/sakif/nutriswap/internal/repository"
)

func TestLogMeal_CanonicalizesAndTotals(t *testing.T) {
	env := newTestEnv(t)

	meal := env.logMeal(t, env.alice, 1, model.Lunch, "150g chicken breast\n\n 100 g white rice ")

	assert.NotEmpty(t, meal.ID)
	assert.Equal(t, "150g Chicken breast\n100g White rice", meal.Ingredients)
	assert.InDelta(t, 377.5, meal.TotalCalories, 1e-9)
	assert.InDelta(t, 49.2, meal.Nutrients.Get(nutrient.Protein), 1e-9)
	assert.Equal(t, model.StartOfDay(day(1)), meal.Date)

	stored, err := env.db.GetMeal(context.Background(), meal.ID)
	require.NoError(t, err)
	assert.Equal(t, meal.Ingredients, stored.Ingredients)
	assert.InDelta(t, 377.5, stored.TotalCalories, 1e-9)
}

func TestLogMeal_DefaultsToToday(t *testing.T) {
	env := newTestEnv(t)
	env.meals.now = func() time.Time { return day(9) }

	meal, err := env.meals.LogMeal(context.Background(), env.alice, LogMealInput{
		Type:        "snack",
		Ingredients: "30g cheddar cheese",
	})
	require.NoError(t, err)
	assert.Equal(t, model.Snack, meal.Type)
	assert.Equal(t, model.StartOfDay(day(9)), meal.Date)
}

func TestLogMeal_OneMainMealPerDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.logMeal(t, env.alice, 1, model.Lunch, "100g white rice")

	_, err := env.meals.LogMeal(ctx, env.alice, LogMealInput{Date: day(1), Type: "Lunch", Ingredients: "50g broccoli"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	// Another day, another user and snacks are all fine.
	env.logMeal(t, env.alice, 2, model.Lunch, "50g broccoli")
	env.logMeal(t, env.bob, 1, model.Lunch, "50g broccoli")
	env.logMeal(t, env.alice, 1, model.Snack, "50g broccoli")
	env.logMeal(t, env.alice, 1, model.Snack, "50g broccoli")
}

func TestLogMeal_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		in      LogMealInput
		wantErr error
	}{
		{"no user", "", LogMealInput{Type: "Lunch", Ingredients: "100g white rice"}, apperror.ErrForbidden},
		{"unknown type", "alice", LogMealInput{Type: "Brunch", Ingredients: "100g white rice"}, apperror.ErrValidation},
		{"no ingredients", "alice", LogMealInput{Type: "Lunch", Ingredients: " \n "}, apperror.ErrValidation},
		{"malformed line", "alice", LogMealInput{Type: "Lunch", Ingredients: "100g white rice\nsome chicken"}, apperror.ErrParse},
		{"unknown food", "alice", LogMealInput{Type: "Lunch", Ingredients: "100g white rice\n20g unicorn dust"}, apperror.ErrResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			userID := tt.userID
			if userID == "alice" {
				userID = env.alice
			}

			_, err := env.meals.LogMeal(context.Background(), userID, tt.in)
			require.ErrorIs(t, err, tt.wantErr)

			meals, err := env.db.ListMeals(context.Background(), env.alice, repository.MealQuery{})
			require.NoError(t, err)
			assert.Empty(t, meals, "nothing should be stored")
		})
	}
}

func TestGetMeal_RecomputesNutrientsAndChecksOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	meal := env.logMeal(t, env.alice, 1, model.Dinner, "200g broccoli")

	got, err := env.meals.GetMeal(ctx, env.alice, meal.ID)
	require.NoError(t, err)
	assert.InDelta(t, 5.2, got.Nutrients.Get(nutrient.Fibre), 1e-9)

	_, err = env.meals.GetMeal(ctx, env.bob, meal.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = env.meals.GetMeal(ctx, env.alice, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// Stored lines name the exact food chosen at logging time; recomputing a
// meal must land on that food even when the matcher, given the same text,
// would rank a sibling description higher.
func TestGetMeal_RecomputesFromTheLoggedFood(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, f := range []struct {
		desc string
		kcal float64
	}{
		{"Chicken, broiler, breast, meat only, roasted", 165},
		{"Chicken, broiler, breast, meat and skin, raw", 172},
	} {
		rec := &model.FoodRecord{Description: f.desc, Group: "Poultry Products"}
		require.NoError(t, env.db.CreateFood(ctx, rec))
		require.NoError(t, env.db.SetNutrientAmount(ctx, rec.ID, nutrient.EnergyKcal, f.kcal))
	}

	meal := env.logMeal(t, env.alice, 4, model.Dinner, "100g chicken breast meat only roasted")
	assert.Equal(t, "100g Chicken, broiler, breast, meat only, roasted", meal.Ingredients)
	assert.InDelta(t, 165, meal.TotalCalories, 1e-9)

	got, err := env.meals.GetMeal(ctx, env.alice, meal.ID)
	require.NoError(t, err)
	assert.InDelta(t, meal.TotalCalories, got.Nutrients.Calories(), 1e-9)
}

func TestListMeals_RangeAndOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.logMeal(t, env.alice, 1, model.Lunch, "100g white rice")
	env.logMeal(t, env.alice, 3, model.Lunch, "100g white rice")
	env.logMeal(t, env.bob, 2, model.Lunch, "100g white rice")

	meals, err := env.meals.ListMeals(ctx, env.alice, model.DateRange{From: day(2), To: day(5)})
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, model.StartOfDay(day(3)), meals[0].Date)

	none, err := env.meals.ListMeals(ctx, env.alice, model.DateRange{From: day(10), To: day(11)})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestAggregateNutrients(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.meals.AggregateNutrients(ctx, "150g chicken breast\n20g unicorn dust", false)
	require.NoError(t, err)
	assert.InDelta(t, 247.5, res.Calories(), 1e-9)
	assert.Equal(t, []string{"unicorn dust"}, res.Unresolved)

	_, err = env.meals.AggregateNutrients(ctx, "150g chicken breast\n20g unicorn dust", true)
	assert.ErrorIs(t, err, apperror.ErrResolution)

	_, err = env.meals.AggregateNutrients(ctx, "", false)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSuggestFoods(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	foods, err := env.meals.SuggestFoods(ctx, "breast", 0)
	require.NoError(t, err)
	require.Len(t, foods, 2)
	// Same tier, so the shorter description ranks first.
	assert.Equal(t, "Turkey breast", foods[0].Description)
	assert.Equal(t, "Chicken breast", foods[1].Description)

	one, err := env.meals.SuggestFoods(ctx, "breast", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	none, err := env.meals.SuggestFoods(ctx, "unicorn", 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = env.meals.SuggestFoods(ctx, "  ", 5)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
