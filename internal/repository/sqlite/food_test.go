package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/nutrient"
)

// seedFoods loads a small slice of the nutrient database.
func seedFoods(t *testing.T, db *DB) map[string]int64 {
	t.Helper()
	ctx := context.Background()

	foods := []struct {
		desc    string
		group   string
		profile nutrient.Profile
	}{
		{"Chicken, broiler, breast, raw", "Poultry Products", nutrient.Profile{nutrient.EnergyKcal: 120, nutrient.Protein: 22.5}},
		{"Turkey, breast, raw", "Poultry Products", nutrient.Profile{nutrient.EnergyKcal: 114, nutrient.Protein: 23.7}},
		{"Rice, white, long-grain, raw", "Cereal Grains and Pasta", nutrient.Profile{nutrient.EnergyKcal: 365, nutrient.Protein: 7.1}},
		{"Milk, 100% lactose free", "Dairy and Egg Products", nutrient.Profile{nutrient.EnergyKcal: 42}},
		{"Salt, table", "", nutrient.Profile{nutrient.Sodium: 38758}},
	}

	ids := make(map[string]int64, len(foods))
	for _, f := range foods {
		rec := &model.FoodRecord{Description: f.desc, Group: f.group}
		if err := db.CreateFood(ctx, rec); err != nil {
			t.Fatalf("CreateFood(%q): %v", f.desc, err)
		}
		for id, v := range f.profile {
			if err := db.SetNutrientAmount(ctx, rec.ID, id, v); err != nil {
				t.Fatalf("SetNutrientAmount(%q, %s): %v", f.desc, id, err)
			}
		}
		ids[f.desc] = rec.ID
	}
	return ids
}

func TestSearchFoods_AllTermsCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	seedFoods(t, db)

	got, err := db.SearchFoods(context.Background(), []string{"BREAST", "raw"})
	if err != nil {
		t.Fatalf("SearchFoods() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("SearchFoods() returned %d foods, want 2", len(got))
	}
	if got[0].Group != "Poultry Products" {
		t.Errorf("Group = %q, want %q", got[0].Group, "Poultry Products")
	}
}

func TestSearchFoods_EscapesWildcards(t *testing.T) {
	db := newTestDB(t)
	seedFoods(t, db)

	got, err := db.SearchFoods(context.Background(), []string{"100%"})
	if err != nil {
		t.Fatalf("SearchFoods() error = %v", err)
	}
	if len(got) != 1 || got[0].Description != "Milk, 100% lactose free" {
		t.Errorf("SearchFoods(100%%) = %+v, want only the milk", got)
	}

	got, err = db.SearchFoods(context.Background(), []string{"r_ce"})
	if err != nil {
		t.Fatalf("SearchFoods() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("SearchFoods(r_ce) = %+v, want no rows", got)
	}
}

func TestFoodByDescription(t *testing.T) {
	db := newTestDB(t)
	ids := seedFoods(t, db)

	got, err := db.FoodByDescription(context.Background(), "turkey, BREAST, raw")
	if err != nil {
		t.Fatalf("FoodByDescription() error = %v", err)
	}
	if got.ID != ids["Turkey, breast, raw"] {
		t.Errorf("ID = %d, want %d", got.ID, ids["Turkey, breast, raw"])
	}

	_, err = db.FoodByDescription(context.Background(), "Turkey")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FoodByDescription(partial) error = %v, want ErrNotFound", err)
	}
}

func TestNutrientProfile(t *testing.T) {
	db := newTestDB(t)
	ids := seedFoods(t, db)

	got, err := db.NutrientProfile(context.Background(), ids["Rice, white, long-grain, raw"])
	if err != nil {
		t.Fatalf("NutrientProfile() error = %v", err)
	}
	want := nutrient.Profile{nutrient.EnergyKcal: 365, nutrient.Protein: 7.1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NutrientProfile() = %v, want %v", got, want)
	}
}

func TestNutrientProfile_EmptyForFoodWithoutAmounts(t *testing.T) {
	db := newTestDB(t)
	rec := &model.FoodRecord{Description: "Water, tap"}
	if err := db.CreateFood(context.Background(), rec); err != nil {
		t.Fatalf("CreateFood() error = %v", err)
	}

	got, err := db.NutrientProfile(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("NutrientProfile() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("NutrientProfile() = %v, want empty non-nil profile", got)
	}
}

// A database numbering nutrients differently is mapped through the name.
func TestNutrientProfile_MapsUnknownIDsByName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.CreateNutrient(ctx, nutrient.Definition{ID: 9208, Name: "Energy (kilocalories)", Unit: "kCal"}); err != nil {
		t.Fatalf("CreateNutrient() error = %v", err)
	}
	rec := &model.FoodRecord{Description: "Apple, raw"}
	if err := db.CreateFood(ctx, rec); err != nil {
		t.Fatalf("CreateFood() error = %v", err)
	}
	if err := db.SetNutrientAmount(ctx, rec.ID, 9208, 52); err != nil {
		t.Fatalf("SetNutrientAmount() error = %v", err)
	}

	got, err := db.NutrientProfile(ctx, rec.ID)
	if err != nil {
		t.Fatalf("NutrientProfile() error = %v", err)
	}
	if got.Calories() != 52 {
		t.Errorf("Calories() = %v, want 52", got.Calories())
	}
}

func TestNutrientProfile_NeverMergesRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// 578 only shares a prefix with VITAMIN B-12; 9418 is an exact alias of
	// a nutrient the food already has under its own id.
	for _, def := range []nutrient.Definition{
		{ID: 578, Name: "VITAMIN B-12, ADDED", Unit: "µg"},
		{ID: 9418, Name: "Vitamin B12", Unit: "µg"},
	} {
		if err := db.CreateNutrient(ctx, def); err != nil {
			t.Fatalf("CreateNutrient(%d) error = %v", def.ID, err)
		}
	}
	rec := &model.FoodRecord{Description: "Cereal, fortified"}
	if err := db.CreateFood(ctx, rec); err != nil {
		t.Fatalf("CreateFood() error = %v", err)
	}
	for id, v := range map[nutrient.ID]float64{nutrient.VitaminB12: 2.0, 578: 1.5, 9418: 0.7} {
		if err := db.SetNutrientAmount(ctx, rec.ID, id, v); err != nil {
			t.Fatalf("SetNutrientAmount(%d) error = %v", id, err)
		}
	}

	got, err := db.NutrientProfile(ctx, rec.ID)
	if err != nil {
		t.Fatalf("NutrientProfile() error = %v", err)
	}
	want := nutrient.Profile{nutrient.VitaminB12: 2.0, 578: 1.5, 9418: 0.7}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NutrientProfile() = %v, want %v", got, want)
	}
}

func TestFoodsByNutrientExtreme(t *testing.T) {
	db := newTestDB(t)
	seedFoods(t, db)
	ctx := context.Background()

	high, err := db.FoodsByNutrientExtreme(ctx, nutrient.Protein, model.Increase, 2)
	if err != nil {
		t.Fatalf("FoodsByNutrientExtreme(Increase) error = %v", err)
	}
	wantHigh := []string{"Turkey, breast, raw", "Chicken, broiler, breast, raw"}
	if !reflect.DeepEqual(high, wantHigh) {
		t.Errorf("Increase = %v, want %v", high, wantHigh)
	}

	low, err := db.FoodsByNutrientExtreme(ctx, nutrient.EnergyKcal, model.Decrease, 1)
	if err != nil {
		t.Fatalf("FoodsByNutrientExtreme(Decrease) error = %v", err)
	}
	if !reflect.DeepEqual(low, []string{"Milk, 100% lactose free"}) {
		t.Errorf("Decrease = %v", low)
	}
}

func TestFoodsInGroupAndFoodGroup(t *testing.T) {
	db := newTestDB(t)
	ids := seedFoods(t, db)
	ctx := context.Background()

	got, err := db.FoodsInGroup(ctx, "Poultry Products")
	if err != nil {
		t.Fatalf("FoodsInGroup() error = %v", err)
	}
	want := []string{"Chicken, broiler, breast, raw", "Turkey, breast, raw"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FoodsInGroup() = %v, want %v", got, want)
	}

	group, err := db.FoodGroup(ctx, ids["Rice, white, long-grain, raw"])
	if err != nil || group != "Cereal Grains and Pasta" {
		t.Errorf("FoodGroup(rice) = %q, %v", group, err)
	}

	group, err = db.FoodGroup(ctx, ids["Salt, table"])
	if err != nil || group != "" {
		t.Errorf("FoodGroup(salt) = %q, %v; want empty group", group, err)
	}

	_, err = db.FoodGroup(ctx, 424242)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FoodGroup(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSetNutrientAmount_RejectsNegative(t *testing.T) {
	db := newTestDB(t)
	ids := seedFoods(t, db)

	err := db.SetNutrientAmount(context.Background(), ids["Salt, table"], nutrient.Sodium, -1)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("SetNutrientAmount(-1) error = %v, want ErrValidation", err)
	}
}

func TestClosedDatabaseIsUnavailable(t *testing.T) {
	db := newTestDB(t)
	db.Close()

	_, err := db.SearchFoods(context.Background(), []string{"rice"})
	if !errors.Is(err, apperror.ErrUnavailable) {
		t.Errorf("SearchFoods() on closed db error = %v, want ErrUnavailable", err)
	}
	if err := db.Ping(context.Background()); !errors.Is(err, apperror.ErrUnavailable) {
		t.Errorf("Ping() on closed db error = %v, want ErrUnavailable", err)
	}
}
