package swap

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/nutrient"
	"github.com/sakif/nutriswap/internal/nutrition"
	"github.com/sakif/nutriswap/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFood struct {
	id      int64
	desc    string
	group   string
	profile nutrient.Profile
}

// fakeDB is an in-memory food repository. It also serves as the
// aggregator's matcher: a description matches the first food whose
// description equals it, or else contains it.
type fakeDB struct {
	foods        []fakeFood
	err          error
	extremeLimit int
}

func (db *fakeDB) add(desc, group string, p nutrient.Profile) {
	db.foods = append(db.foods, fakeFood{id: int64(len(db.foods) + 1), desc: desc, group: group, profile: p})
}

func (db *fakeDB) byID(id int64) *fakeFood {
	for i := range db.foods {
		if db.foods[i].id == id {
			return &db.foods[i]
		}
	}
	return nil
}

func (f fakeFood) record() *model.FoodRecord {
	return &model.FoodRecord{ID: f.id, Description: f.desc, Group: f.group}
}

func (db *fakeDB) Match(_ context.Context, description string) (*model.FoodRecord, error) {
	if db.err != nil {
		return nil, db.err
	}
	q := strings.ToLower(strings.TrimSpace(description))
	for _, f := range db.foods {
		if strings.ToLower(f.desc) == q {
			return f.record(), nil
		}
	}
	for _, f := range db.foods {
		if strings.Contains(strings.ToLower(f.desc), q) {
			return f.record(), nil
		}
	}
	return nil, apperror.FoodNotFound(description)
}

func (db *fakeDB) FoodByDescription(_ context.Context, description string) (*model.FoodRecord, error) {
	if db.err != nil {
		return nil, db.err
	}
	for _, f := range db.foods {
		if strings.EqualFold(f.desc, description) {
			return f.record(), nil
		}
	}
	return nil, apperror.FoodNotFound(description)
}

func (db *fakeDB) NutrientProfile(_ context.Context, foodID int64) (nutrient.Profile, error) {
	if db.err != nil {
		return nil, db.err
	}
	if f := db.byID(foodID); f != nil {
		return f.profile.Clone(), nil
	}
	return nutrient.Profile{}, nil
}

func (db *fakeDB) FoodGroup(_ context.Context, foodID int64) (string, error) {
	if db.err != nil {
		return "", db.err
	}
	if f := db.byID(foodID); f != nil {
		return f.group, nil
	}
	return "", nil
}

func (db *fakeDB) FoodsInGroup(_ context.Context, group string) ([]string, error) {
	if db.err != nil {
		return nil, db.err
	}
	var out []string
	for _, f := range db.foods {
		if f.group == group {
			out = append(out, f.desc)
		}
	}
	return out, nil
}

func (db *fakeDB) FoodsByNutrientExtreme(_ context.Context, id nutrient.ID, dir model.Direction, limit int) ([]string, error) {
	if db.err != nil {
		return nil, db.err
	}
	db.extremeLimit = limit

	var rows []fakeFood
	for _, f := range db.foods {
		if _, ok := f.profile[id]; ok {
			rows = append(rows, f)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if dir == model.Decrease {
			return rows[i].profile[id] < rows[j].profile[id]
		}
		return rows[i].profile[id] > rows[j].profile[id]
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]string, len(rows))
	for i, f := range rows {
		out[i] = f.desc
	}
	return out, nil
}

// poultryDB holds the foods used by the worked examples.
func poultryDB() *fakeDB {
	db := &fakeDB{}
	db.add("chicken breast", "Poultry", nutrient.Profile{nutrient.EnergyKcal: 165, nutrient.Protein: 31})
	db.add("turkey breast", "Poultry", nutrient.Profile{nutrient.EnergyKcal: 160, nutrient.Protein: 34})
	db.add("protein bar", "Snacks", nutrient.Profile{nutrient.EnergyKcal: 247.5, nutrient.Protein: 34})
	db.add("lard", "Fats and Oils", nutrient.Profile{nutrient.EnergyKcal: 900, nutrient.TotalFat: 100, nutrient.Protein: 0})
	db.add("rice", "Grains", nutrient.Profile{nutrient.EnergyKcal: 130, nutrient.Protein: 2.7, nutrient.Carbohydrate: 28})
	return db
}

func newTestAggregator(db *fakeDB) *nutrition.Aggregator {
	return nutrition.NewAggregator(db, db, discardLogger())
}

func newTestEngine(db *fakeDB) *Engine {
	return NewEngine(db, newTestAggregator(db), DefaultConfig(), discardLogger())
}

// fakeMeals is an in-memory meal store.
type fakeMeals struct {
	meals     []model.Meal
	created   []model.Meal
	failAfter int // CreateMeal fails once this many meals were created; 0 disables
	listErr   error
}

func (s *fakeMeals) ListMeals(_ context.Context, userID string, q repository.MealQuery) ([]model.Meal, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Meal
	for _, m := range s.meals {
		if m.UserID == userID && q.Range.Contains(m.Date) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeMeals) CreateMeal(_ context.Context, meal *model.Meal) error {
	if s.failAfter > 0 && len(s.created) >= s.failAfter {
		return apperror.Unavailable("saving meal", io.ErrUnexpectedEOF)
	}
	meal.ID = "swapped-" + meal.OriginalMealID
	s.created = append(s.created, *meal)
	return nil
}
