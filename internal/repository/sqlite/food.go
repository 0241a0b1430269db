package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/nutrient"
	"github.com/sakif/nutriswap/internal/repository"
)

var _ repository.FoodRepository = (*DB)(nil)

const foodColumns = `f.id, f.description, COALESCE(g.name, '')`

// SearchFoods returns foods whose description contains every term,
// ignoring case. LIKE wildcards inside terms are escaped so "100%" means
// the literal text.
func (db *DB) SearchFoods(ctx context.Context, terms []string) ([]model.FoodRecord, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	var (
		where []string
		args  []any
	)
	for _, t := range terms {
		where = append(where, `LOWER(f.description) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(t))+"%")
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+foodColumns+`
		 FROM foods f LEFT JOIN food_groups g ON g.id = f.food_group_id
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY f.id`,
		args...,
	)
	if err != nil {
		return nil, unavailable("searching foods", err)
	}
	defer rows.Close()

	var foods []model.FoodRecord
	for rows.Next() {
		var f model.FoodRecord
		if err := rows.Scan(&f.ID, &f.Description, &f.Group); err != nil {
			return nil, unavailable("scanning food row", err)
		}
		foods = append(foods, f)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating food rows", err)
	}
	return foods, nil
}

// FoodByDescription finds a food by exact description, ignoring case.
// When several rows share a description the lowest id wins.
func (db *DB) FoodByDescription(ctx context.Context, description string) (*model.FoodRecord, error) {
	var f model.FoodRecord
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+foodColumns+`
		 FROM foods f LEFT JOIN food_groups g ON g.id = f.food_group_id
		 WHERE f.description = ? COLLATE NOCASE
		 ORDER BY f.id
		 LIMIT 1`,
		strings.TrimSpace(description),
	).Scan(&f.ID, &f.Description, &f.Group)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.FoodNotFound(description)
		}
		return nil, unavailable("looking up food by description", err)
	}
	return &f, nil
}

// NutrientProfile returns the per-100 g amounts of a food.
//
// Rows are keyed by their nutrient id. A row whose id is not one of the
// known nutrients is mapped through its exact name or alias instead, so
// databases that number nutrients differently still line up with
// nutrient.EnergyKcal and friends. A mapped row never overwrites or adds
// to another row: when its target is already taken it keeps its own id.
func (db *DB) NutrientProfile(ctx context.Context, foodID int64) (nutrient.Profile, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT na.nutrient_id, n.name, na.value
		 FROM nutrient_amounts na JOIN nutrients n ON n.id = na.nutrient_id
		 WHERE na.food_id = ?
		 ORDER BY na.nutrient_id`,
		foodID,
	)
	if err != nil {
		return nil, unavailable("loading nutrient profile", err)
	}
	defer rows.Close()

	type amount struct {
		id    nutrient.ID
		name  string
		value float64
	}
	var unknown []amount

	profile := make(nutrient.Profile)
	for rows.Next() {
		var (
			rawID int
			a     amount
		)
		if err := rows.Scan(&rawID, &a.name, &a.value); err != nil {
			return nil, unavailable("scanning nutrient amount", err)
		}
		a.id = nutrient.ID(rawID)
		if nutrient.Known(a.id) {
			profile[a.id] = a.value
			continue
		}
		unknown = append(unknown, a)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating nutrient amounts", err)
	}

	for _, a := range unknown {
		id := a.id
		if mapped, ok := nutrient.LookupExact(a.name); ok {
			if _, taken := profile[mapped]; !taken {
				id = mapped
			}
		}
		profile[id] = a.value
	}
	return profile, nil
}

// FoodsByNutrientExtreme returns up to limit descriptions ordered by the
// nutrient's amount: highest first for Increase, lowest first for Decrease.
// Foods with no recorded amount are not ranked.
func (db *DB) FoodsByNutrientExtreme(ctx context.Context, id nutrient.ID, dir model.Direction, limit int) ([]string, error) {
	order := "DESC"
	if dir == model.Decrease {
		order = "ASC"
	}
	return db.descriptions(ctx, "ranking foods by nutrient",
		`SELECT f.description
		 FROM nutrient_amounts na JOIN foods f ON f.id = na.food_id
		 WHERE na.nutrient_id = ?
		 ORDER BY na.value `+order+`, f.description
		 LIMIT ?`,
		int(id), limit,
	)
}

// FoodsInGroup returns every food description in the named group.
func (db *DB) FoodsInGroup(ctx context.Context, group string) ([]string, error) {
	return db.descriptions(ctx, "listing foods in group",
		`SELECT f.description
		 FROM foods f JOIN food_groups g ON g.id = f.food_group_id
		 WHERE g.name = ?
		 ORDER BY f.description`,
		group,
	)
}

// FoodGroup returns the group name of a food, or "" when it has none.
func (db *DB) FoodGroup(ctx context.Context, foodID int64) (string, error) {
	var group string
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(g.name, '')
		 FROM foods f LEFT JOIN food_groups g ON g.id = f.food_group_id
		 WHERE f.id = ?`,
		foodID,
	).Scan(&group)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", apperror.NotFound("food", strconv.FormatInt(foodID, 10))
		}
		return "", unavailable("looking up food group", err)
	}
	return group, nil
}

func (db *DB) descriptions(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, unavailable(op, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return out, nil
}

// === Seeding ===
// The helpers below load nutrient data. The application never calls them
// on the request path.

// CreateFoodGroup returns the id of the named group, creating it if needed.
func (db *DB) CreateFoodGroup(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, apperror.ValidationFailed("name", "food group name is required")
	}
	if _, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO food_groups (name) VALUES (?)`, name,
	); err != nil {
		return 0, fmt.Errorf("sqlite: creating food group %q: %w", name, err)
	}

	var id int64
	if err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM food_groups WHERE name = ?`, name,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("sqlite: reading food group %q: %w", name, err)
	}
	return id, nil
}

// CreateFood inserts a food, creating its group on the way. A zero ID lets
// SQLite assign one; the record is updated in place either way.
func (db *DB) CreateFood(ctx context.Context, food *model.FoodRecord) error {
	food.Description = strings.TrimSpace(food.Description)
	if food.Description == "" {
		return apperror.ValidationFailed("description", "food description is required")
	}

	var groupID sql.NullInt64
	if food.Group != "" {
		id, err := db.CreateFoodGroup(ctx, food.Group)
		if err != nil {
			return err
		}
		groupID = sql.NullInt64{Int64: id, Valid: true}
	}

	var foodID any
	if food.ID != 0 {
		foodID = food.ID
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO foods (id, description, food_group_id) VALUES (?, ?, ?)`,
		foodID, food.Description, groupID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating food %q: %w", food.Description, err)
	}
	if food.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading id of food %q: %w", food.Description, err)
		}
		food.ID = id
	}
	return nil
}

// CreateNutrient registers a nutrient not among nutrient.Definitions, or
// renames an existing one.
func (db *DB) CreateNutrient(ctx context.Context, def nutrient.Definition) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO nutrients (id, name, unit) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, unit = excluded.unit`,
		int(def.ID), def.Name, def.Unit,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating nutrient %d: %w", def.ID, err)
	}
	return nil
}

// SetNutrientAmount records value per 100 g of a food, replacing any
// previous value.
func (db *DB) SetNutrientAmount(ctx context.Context, foodID int64, id nutrient.ID, value float64) error {
	if value < 0 {
		return apperror.ValidationFailed("value", "nutrient amounts must not be negative")
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO nutrient_amounts (food_id, nutrient_id, value) VALUES (?, ?, ?)`,
		foodID, int(id), value,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting nutrient %d of food %d: %w", id, foodID, err)
	}
	return nil
}

// escapeLike escapes LIKE metacharacters for use with ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
