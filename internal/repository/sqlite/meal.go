package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/repository"
)

var _ repository.MealRepository = (*DB)(nil)

// dayLayout is how meal_date is stored.
const dayLayout = "2006-01-02"

const mealColumns = `id, user_id, meal_date, meal_type, ingredients, total_calories,
	is_swapped, COALESCE(original_meal_id, ''), created_at`

// CreateMeal inserts a meal, assigning its ID and CreatedAt.
//
// Only the calendar day of meal.Date is kept. Nutrients are not stored:
// they are recomputed from the ingredient text when needed.
func (db *DB) CreateMeal(ctx context.Context, meal *model.Meal) error {
	meal.ID = xid.New().String()
	meal.CreatedAt = time.Now()

	var original any
	if meal.OriginalMealID != "" {
		original = meal.OriginalMealID
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO meals (id, user_id, meal_date, meal_type, ingredients, total_calories,
		                    is_swapped, original_meal_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meal.ID,
		meal.UserID,
		meal.Date.Format(dayLayout),
		string(meal.Type),
		meal.Ingredients,
		meal.TotalCalories,
		meal.IsSwapped,
		original,
		meal.CreatedAt,
	)
	if err != nil {
		return unavailable("creating meal", err)
	}
	return nil
}

// GetMeal returns a meal by ID, superseded or not.
func (db *DB) GetMeal(ctx context.Context, id string) (*model.Meal, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+mealColumns+` FROM meals WHERE id = ?`, id)

	meal, err := scanMeal(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("meal", id)
		}
		return nil, unavailable("getting meal", err)
	}
	return meal, nil
}

// ListMeals returns a user's meals, newest day first and, within a day,
// most recently created first.
//
// Unless q.IncludeSuperseded is set, a meal that some swapped meal points
// at through original_meal_id is left out.
func (db *DB) ListMeals(ctx context.Context, userID string, q repository.MealQuery) ([]model.Meal, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}

	if !q.Range.From.IsZero() {
		where = append(where, "meal_date >= ?")
		args = append(args, q.Range.From.Format(dayLayout))
	}
	if !q.Range.To.IsZero() {
		where = append(where, "meal_date <= ?")
		args = append(args, q.Range.To.Format(dayLayout))
	}
	if !q.IncludeSuperseded {
		where = append(where,
			"id NOT IN (SELECT original_meal_id FROM meals WHERE original_meal_id IS NOT NULL)")
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+mealColumns+`
		 FROM meals
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY meal_date DESC, created_at DESC, id DESC`,
		args...,
	)
	if err != nil {
		return nil, unavailable("listing meals", err)
	}
	defer rows.Close()

	var meals []model.Meal
	for rows.Next() {
		meal, err := scanMeal(rows)
		if err != nil {
			return nil, unavailable("scanning meal", err)
		}
		meals = append(meals, *meal)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating meals", err)
	}
	return meals, nil
}

// HasMealOfType reports whether the user already logged a meal of this
// type on the given day.
func (db *DB) HasMealOfType(ctx context.Context, userID string, mealType model.MealType, day time.Time) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM meals WHERE user_id = ? AND meal_type = ? AND meal_date = ?
		 )`,
		userID, string(mealType), day.Format(dayLayout),
	).Scan(&exists)
	if err != nil {
		return false, unavailable("checking meal type", err)
	}
	return exists, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMeal(s scanner) (*model.Meal, error) {
	var (
		m        model.Meal
		day      string
		mealType string
	)
	err := s.Scan(
		&m.ID,
		&m.UserID,
		&day,
		&mealType,
		&m.Ingredients,
		&m.TotalCalories,
		&m.IsSwapped,
		&m.OriginalMealID,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Type = model.MealType(mealType)
	m.Date, err = time.Parse(dayLayout, day)
	if err != nil {
		return nil, fmt.Errorf("parsing meal_date %q: %w", day, err)
	}
	return &m, nil
}
