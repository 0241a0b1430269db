// Package nutrition turns ingredient lists into nutrient totals.
//
// For every ingredient line the Aggregator resolves the description (an
// exact food description first, then the matcher), loads the food's per-100 g profile and adds value*grams/100 into
// the running total. Lines are processed in order, so aggregating the same
// text twice against the same database yields identical maps.
package nutrition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/ingredient"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/nutrient"
)

// Mode selects what happens to an ingredient with no database match.
type Mode int

const (
	// Strict fails the whole aggregation with apperror.ErrResolution.
	// Used when logging a new meal, where every ingredient must resolve.
	Strict Mode = iota
	// Lenient skips the line and records it in Result.Unresolved.
	// Used when recomputing nutrients for text that was already accepted.
	Lenient
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// Matcher resolves a description to a food.
type Matcher interface {
	Match(ctx context.Context, description string) (*model.FoodRecord, error)
}

// FoodSource finds foods by their exact description and loads per-100 g
// nutrient amounts.
type FoodSource interface {
	FoodByDescription(ctx context.Context, description string) (*model.FoodRecord, error)
	NutrientProfile(ctx context.Context, foodID int64) (nutrient.Profile, error)
}

// Resolved is one ingredient line together with the food it matched.
type Resolved struct {
	Line    ingredient.Line  `json:"line"`
	Food    model.FoodRecord `json:"food"`
	Profile nutrient.Profile `json:"-"` // per 100 g
}

// Result is the outcome of an aggregation.
type Result struct {
	Totals     nutrient.Profile `json:"totals"`
	Resolved   []Resolved       `json:"resolved"`
	Unresolved []string         `json:"unresolved,omitempty"` // descriptions skipped in Lenient mode
}

// Calories is the meal's energy in kilocalories.
func (r Result) Calories() float64 {
	return r.Totals.Calories()
}

// Aggregator sums nutrient contributions of ingredient lines.
type Aggregator struct {
	matcher  Matcher
	foods    FoodSource
	logger   *slog.Logger
}

// NewAggregator wires an Aggregator to its collaborators.
func NewAggregator(matcher Matcher, foods FoodSource, logger *slog.Logger) *Aggregator {
	return &Aggregator{matcher: matcher, foods: foods, logger: logger}
}

// AggregateText parses ingredient text and aggregates it. A malformed line
// returns apperror.ErrParse regardless of mode.
func (a *Aggregator) AggregateText(ctx context.Context, text string, mode Mode) (Result, error) {
	lines, err := ingredient.Parse(text)
	if err != nil {
		return Result{}, err
	}
	return a.Aggregate(ctx, lines, mode)
}

// Aggregate sums the nutrients of the given lines.
func (a *Aggregator) Aggregate(ctx context.Context, lines []ingredient.Line, mode Mode) (Result, error) {
	res := Result{Totals: make(nutrient.Profile)}

	for _, line := range lines {
		food, profile, err := a.Resolve(ctx, line.Description)
		if err != nil {
			if !errors.Is(err, apperror.ErrResolution) {
				return Result{}, err
			}
			if mode == Strict {
				return Result{}, err
			}
			a.logger.Warn("skipping unresolved ingredient",
				slog.String("line", line.String()),
				slog.String("mode", mode.String()),
			)
			res.Unresolved = append(res.Unresolved, line.Description)
			continue
		}

		res.Totals.AddScaled(profile, line.Grams/100.0)
		res.Resolved = append(res.Resolved, Resolved{Line: line, Food: *food, Profile: profile})
	}

	return res, nil
}

// Resolve finds the food for a description and loads its per-100 g profile.
//
// A description equal to a stored food description (ignoring case) is that
// food; stored meal lines carry exact descriptions, so recomputing them
// never re-runs the heuristic matcher. Anything else goes through the
// matcher. No match is reported as apperror.ErrResolution; storage failures
// pass through unchanged.
func (a *Aggregator) Resolve(ctx context.Context, description string) (*model.FoodRecord, nutrient.Profile, error) {
	food, err := a.foods.FoodByDescription(ctx, description)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, nil, fmt.Errorf("nutrition: looking up %q: %w", description, err)
		}
		food, err = a.matcher.Match(ctx, description)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, nil, apperror.ResolutionFailed(description)
			}
			return nil, nil, fmt.Errorf("nutrition: matching %q: %w", description, err)
		}
	}

	profile, err := a.foods.NutrientProfile(ctx, food.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("nutrition: loading profile for food %d: %w", food.ID, err)
	}
	if profile == nil {
		profile = nutrient.Profile{}
	}
	return food, profile, nil
}
