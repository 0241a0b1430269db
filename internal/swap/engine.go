// Package swap recommends and applies single-ingredient substitutions.
//
// A recommendation pass runs Generator → MovesTowardGoals → Score and
// returns at most Config.MaxResults suggestions, best (lowest score) first.
// Applier rewrites one meal; Propagator repeats that over a user's history.
// Nothing here writes to storage except Propagator, through the injected
// MealStore.
package swap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/ingredient"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/nutrient"
)

const (
	DefaultMaxResults = 20
	// MaxGoals is how many goals one request may carry.
	MaxGoals = 2
)

// FoodSource is what the engine reads besides candidate lists.
type FoodSource interface {
	CandidateSource
	FoodByDescription(ctx context.Context, description string) (*model.FoodRecord, error)
	NutrientProfile(ctx context.Context, foodID int64) (nutrient.Profile, error)
	FoodGroup(ctx context.Context, foodID int64) (string, error)
}

// Resolver maps a free-text description to a food and its per-100 g
// profile. nutrition.Aggregator implements it.
type Resolver interface {
	Resolve(ctx context.Context, description string) (*model.FoodRecord, nutrient.Profile, error)
}

// Config holds the engine's tunables.
type Config struct {
	ExtremeLimit int
	MaxResults   int
	Weights      Weights
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		ExtremeLimit: DefaultExtremeLimit,
		MaxResults:   DefaultMaxResults,
		Weights:      DefaultWeights(),
	}
}

// Request describes one recommendation pass.
type Request struct {
	Meal             *model.Meal
	Line             string // ingredient line to replace, as it appears in the meal
	Goals            []model.Goal
	TolerancePercent float64
	SameGroupOnly    bool
	StrictTolerance  bool // drop candidates with any stability penalty
}

// Engine ranks swap candidates.
type Engine struct {
	foods     FoodSource
	resolver  Resolver
	generator *Generator
	config    Config
	logger    *slog.Logger
}

func NewEngine(foods FoodSource, resolver Resolver, cfg Config, logger *slog.Logger) *Engine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	return &Engine{
		foods:     foods,
		resolver:  resolver,
		generator: NewGenerator(foods, cfg.ExtremeLimit),
		config:    cfg,
		logger:    logger,
	}
}

// FindSuggestions returns ranked replacements for req.Line.
//
// An empty slice with a nil error means no candidate survived (or no goals
// were given, or a same-group search on an ungrouped food). Errors are
// reserved for bad input and storage failures.
func (e *Engine) FindSuggestions(ctx context.Context, req Request) ([]model.SwapSuggestion, error) {
	line, err := ingredient.ParseLine(req.Line)
	if err != nil {
		return nil, err
	}
	if req.Meal == nil {
		return nil, apperror.ValidationFailed("meal", "meal is required")
	}
	if _, ok := FindLine(req.Meal.Ingredients, req.Line); !ok {
		return nil, apperror.ValidationFailed("line",
			fmt.Sprintf("ingredient %q is not part of meal %s", req.Line, req.Meal.ID))
	}
	if err := validateGoals(req.Goals, req.TolerancePercent); err != nil {
		return nil, err
	}
	if len(req.Goals) == 0 {
		return []model.SwapSuggestion{}, nil
	}

	origFood, origProfile, err := e.resolver.Resolve(ctx, line.Description)
	if err != nil {
		return nil, err
	}
	origGroup, err := e.foods.FoodGroup(ctx, origFood.ID)
	if err != nil {
		return nil, fmt.Errorf("swap: group of %q: %w", origFood.Description, err)
	}

	// Exclude both the text as typed and the food it resolved to.
	candidates, err := e.generator.Generate(ctx, origFood.Description, origGroup, req.Goals, req.SameGroupOnly)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("scoring swap candidates",
		slog.String("line", line.String()),
		slog.String("food", origFood.Description),
		slog.String("group", origGroup),
		slog.Int("candidates", len(candidates)),
	)

	suggestions := make([]model.SwapSuggestion, 0, len(candidates))
	for _, name := range candidates {
		if strings.EqualFold(name, line.Description) {
			continue
		}
		s, ok, err := e.evaluate(ctx, name, line, origProfile, origGroup, req)
		if err != nil {
			return nil, err
		}
		if ok {
			suggestions = append(suggestions, s)
		}
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score < suggestions[j].Score
		}
		return suggestions[i].FoodName < suggestions[j].FoodName
	})
	if len(suggestions) > e.config.MaxResults {
		suggestions = suggestions[:e.config.MaxResults]
	}
	return suggestions, nil
}

// evaluate scores one candidate. ok is false when the candidate is
// filtered out or cannot be resolved.
func (e *Engine) evaluate(ctx context.Context, name string, line ingredient.Line, origProfile nutrient.Profile, origGroup string, req Request) (model.SwapSuggestion, bool, error) {
	food, profile, err := e.candidate(ctx, name)
	if err != nil {
		if errors.Is(err, apperror.ErrResolution) || errors.Is(err, apperror.ErrNotFound) {
			e.logger.Debug("skipping unresolvable candidate", slog.String("candidate", name))
			return model.SwapSuggestion{}, false, nil
		}
		return model.SwapSuggestion{}, false, err
	}
	if len(profile) == 0 {
		return model.SwapSuggestion{}, false, nil
	}
	if !MovesTowardGoals(origProfile, profile, req.Goals) {
		return model.SwapSuggestion{}, false, nil
	}

	score, stability := Score(origProfile, profile, req.Goals, req.TolerancePercent, e.config.Weights)
	if req.StrictTolerance && stability > 0 {
		return model.SwapSuggestion{}, false, nil
	}

	group, err := e.foods.FoodGroup(ctx, food.ID)
	if err != nil {
		return model.SwapSuggestion{}, false, fmt.Errorf("swap: group of %q: %w", name, err)
	}
	if group != "" && group == origGroup {
		score -= e.config.Weights.GroupBonus
	}

	changes, percent := Changes(origProfile, profile, line.Grams)
	return model.SwapSuggestion{
		FoodName:         name,
		FoodGroup:        group,
		Score:            score,
		StabilityPenalty: stability,
		Changes:          changes,
		PercentChanges:   percent,
	}, true, nil
}

// candidate looks a generated description up exactly, falling back to the
// matcher for descriptions the store does not hold verbatim.
func (e *Engine) candidate(ctx context.Context, name string) (*model.FoodRecord, nutrient.Profile, error) {
	food, err := e.foods.FoodByDescription(ctx, name)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, nil, err
		}
		return e.resolver.Resolve(ctx, name)
	}
	profile, err := e.foods.NutrientProfile(ctx, food.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("swap: profile of %q: %w", name, err)
	}
	return food, profile, nil
}

func validateGoals(goals []model.Goal, tolerancePercent float64) error {
	if len(goals) > MaxGoals {
		return apperror.ValidationFailed("goals", fmt.Sprintf("at most %d goals are allowed", MaxGoals))
	}
	if tolerancePercent < 0 {
		return apperror.ValidationFailed("tolerancePercent", "tolerance must not be negative")
	}
	for _, g := range goals {
		if g.Direction != model.Increase && g.Direction != model.Decrease {
			return apperror.ValidationFailed("goals", "goal direction must be Increase or Decrease")
		}
		if g.Target < 0 {
			return apperror.ValidationFailed("goals", "goal target must not be negative")
		}
	}
	return nil
}
