package swap

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/nutrient"
)

// Bounds for how many nutrient-extreme foods are pulled per goal.
const (
	DefaultExtremeLimit = 100
	MaxExtremeLimit     = 300
)

// CandidateSource is the part of the food repository candidate generation reads.
type CandidateSource interface {
	FoodsByNutrientExtreme(ctx context.Context, id nutrient.ID, dir model.Direction, limit int) ([]string, error)
	FoodsInGroup(ctx context.Context, group string) ([]string, error)
}

// Generator builds the set of foods worth scoring for a swap.
type Generator struct {
	foods        CandidateSource
	extremeLimit int
}

// NewGenerator clamps extremeLimit into [DefaultExtremeLimit, MaxExtremeLimit].
func NewGenerator(foods CandidateSource, extremeLimit int) *Generator {
	if extremeLimit < DefaultExtremeLimit {
		extremeLimit = DefaultExtremeLimit
	}
	if extremeLimit > MaxExtremeLimit {
		extremeLimit = MaxExtremeLimit
	}
	return &Generator{foods: foods, extremeLimit: extremeLimit}
}

// Generate returns candidate food descriptions, de-duplicated and sorted.
//
// With sameGroupOnly the candidates are the original's group-mates, and an
// original without a group yields nothing. Otherwise they are the foods at
// the favourable extreme of each goal nutrient plus the group-mates. The
// original itself is never a candidate.
func (g *Generator) Generate(ctx context.Context, originalDescription, originalGroup string, goals []model.Goal, sameGroupOnly bool) ([]string, error) {
	set := make(map[string]struct{})
	add := func(descs []string) {
		for _, d := range descs {
			if d == "" || strings.EqualFold(strings.TrimSpace(d), strings.TrimSpace(originalDescription)) {
				continue
			}
			set[d] = struct{}{}
		}
	}

	if sameGroupOnly && originalGroup == "" {
		return []string{}, nil
	}

	if !sameGroupOnly {
		for _, goal := range goals {
			descs, err := g.foods.FoodsByNutrientExtreme(ctx, goal.Nutrient, goal.Direction, g.extremeLimit)
			if err != nil {
				return nil, fmt.Errorf("swap: ranking foods by %s: %w", goal.Nutrient, err)
			}
			add(descs)
		}
	}

	if originalGroup != "" {
		descs, err := g.foods.FoodsInGroup(ctx, originalGroup)
		if err != nil {
			return nil, fmt.Errorf("swap: listing group %q: %w", originalGroup, err)
		}
		add(descs)
	}

	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}
