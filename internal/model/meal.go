// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other
// languages but without inheritance.
package model

import (
	"strings"
	"time"

	"github.com/sakif/nutriswap/internal/nutrient"
)

// MealType is the slot a meal was eaten in.
type MealType string

const (
	Breakfast MealType = "Breakfast"
	Lunch     MealType = "Lunch"
	Dinner    MealType = "Dinner"
	Snack     MealType = "Snack"
)

// ParseMealType accepts any casing of the four meal types.
func ParseMealType(s string) (MealType, bool) {
	for _, t := range []MealType{Breakfast, Lunch, Dinner, Snack} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, true
		}
	}
	return "", false
}

// OncePerDay reports whether a user may log at most one meal of this type a day.
func (t MealType) OncePerDay() bool {
	return t != Snack
}

// Meal is one logged meal.
//
// Meals are never edited in place. A swap creates a new Meal with IsSwapped
// set and OriginalMealID pointing at the meal it replaces; the original stays
// in storage for comparison but drops out of the "active" views.
//
// Ingredients is the newline-joined ingredient text, e.g.
//
//	150g chicken breast
//	100g rice
//
// Nutrients is derived from Ingredients on demand and is not stored;
// TotalCalories is stored so listings do not need the food database.
type Meal struct {
	ID             string           `json:"id"`
	UserID         string           `json:"userId"`
	Date           time.Time        `json:"date"`
	Type           MealType         `json:"type"`
	Ingredients    string           `json:"ingredients"`
	TotalCalories  float64          `json:"totalCalories"`
	Nutrients      nutrient.Profile `json:"nutrients,omitempty"`
	IsSwapped      bool             `json:"isSwapped"`
	OriginalMealID string           `json:"originalMealId,omitempty"` // empty when not a swap
	CreatedAt      time.Time        `json:"createdAt"`
}

// DateRange bounds a meal query. A zero From or To leaves that side open.
// To is inclusive up to the end of its day.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(StartOfDay(r.From)) {
		return false
	}
	if !r.To.IsZero() && !t.Before(StartOfDay(r.To).AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// Days is the number of calendar days covered, counting both ends.
// Open ranges return 0.
func (r DateRange) Days() int {
	if r.From.IsZero() || r.To.IsZero() {
		return 0
	}
	from, to := StartOfDay(r.From), StartOfDay(r.To)
	if to.Before(from) {
		from, to = to, from
	}
	// Round instead of truncating so DST shifts do not lose a day.
	return int(to.Sub(from).Hours()/24+0.5) + 1
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
