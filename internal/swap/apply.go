package swap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/ingredient"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/nutrition"
)

// TextAggregator recomputes nutrients for ingredient text.
type TextAggregator interface {
	AggregateText(ctx context.Context, text string, mode nutrition.Mode) (nutrition.Result, error)
}

// Applier produces the swapped version of a meal.
type Applier struct {
	aggregator TextAggregator
	logger     *slog.Logger
}

func NewApplier(aggregator TextAggregator, logger *slog.Logger) *Applier {
	return &Applier{aggregator: aggregator, logger: logger}
}

// Apply replaces the first ingredient line equal to line (both sides
// trimmed) with the same quantity of newDescription, recomputes nutrients
// leniently and returns a new, unsaved meal linked to meal. meal itself is
// left untouched.
func (a *Applier) Apply(ctx context.Context, meal *model.Meal, line, newDescription string) (*model.Meal, error) {
	if meal == nil {
		return nil, apperror.ValidationFailed("meal", "meal is required")
	}
	newDescription = strings.TrimSpace(newDescription)
	if newDescription == "" || strings.ContainsAny(newDescription, "\r\n") {
		return nil, apperror.ValidationFailed("newDescription", "replacement food must be a single non-empty line")
	}

	replacement, err := Rewrite(line, newDescription)
	if err != nil {
		return nil, err
	}
	text, ok := ReplaceLine(meal.Ingredients, line, replacement)
	if !ok {
		return nil, apperror.ValidationFailed("line",
			fmt.Sprintf("ingredient %q is not part of meal %s", line, meal.ID))
	}

	res, err := a.aggregator.AggregateText(ctx, text, nutrition.Lenient)
	if err != nil {
		return nil, fmt.Errorf("swap: recomputing meal %s: %w", meal.ID, err)
	}
	if len(res.Unresolved) > 0 {
		a.logger.Warn("swapped meal has unresolved ingredients",
			slog.String("mealID", meal.ID),
			slog.Any("unresolved", res.Unresolved),
		)
	}

	return &model.Meal{
		UserID:         meal.UserID,
		Date:           meal.Date,
		Type:           meal.Type,
		Ingredients:    text,
		TotalCalories:  res.Calories(),
		Nutrients:      res.Totals,
		IsSwapped:      true,
		OriginalMealID: meal.ID,
	}, nil
}

// Rewrite keeps the quantity prefix of line exactly as written and puts
// newDescription after it: ("150 g chicken", "turkey") → "150 g turkey".
func Rewrite(line, newDescription string) (string, error) {
	parsed, err := ingredient.ParseLine(line)
	if err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(line)
	prefix := strings.TrimSuffix(trimmed, parsed.Description)
	return prefix + strings.TrimSpace(newDescription), nil
}

// FindLine returns the index of the first line of text equal to target
// after trimming both.
func FindLine(text, target string) (int, bool) {
	target = strings.TrimSpace(target)
	if target == "" {
		return -1, false
	}
	for i, l := range ingredient.SplitLines(text) {
		if strings.TrimSpace(l) == target {
			return i, true
		}
	}
	return -1, false
}

// ReplaceLine swaps the first line equal to target for replacement. Later
// duplicates of target are kept.
func ReplaceLine(text, target, replacement string) (string, bool) {
	i, ok := FindLine(text, target)
	if !ok {
		return text, false
	}
	lines := ingredient.SplitLines(text)
	lines[i] = replacement
	return strings.Join(lines, "\n"), true
}
