package swap

import (
	"math"

	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/nutrient"
)

// Weights tune the score. Goal error dominates; stability breaks near-ties.
type Weights struct {
	Goal       float64
	Stability  float64
	GroupBonus float64 // subtracted from a same-group candidate's final score
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{Goal: 100, Stability: 50, GroupBonus: 20}
}

// MovesTowardGoals is the hard filter applied before scoring: no goal
// nutrient may move against its goal's direction. A zero delta passes.
// Both profiles are per 100 g.
func MovesTowardGoals(original, candidate nutrient.Profile, goals []model.Goal) bool {
	for _, g := range goals {
		delta := candidate.Get(g.Nutrient) - original.Get(g.Nutrient)
		if g.Direction == model.Increase && delta < 0 {
			return false
		}
		if g.Direction == model.Decrease && delta > 0 {
			return false
		}
	}
	return true
}

// Score rates a candidate against the original, lower is better. It returns
// the weighted final score and the raw stability penalty. Callers apply
// MovesTowardGoals first; Score does not filter.
//
// Goal error is the distance between the actual per-100 g change and the
// ideal one. Stability counts how far every non-goal nutrient drifts past
// tolerancePercent, with a nutrient appearing from zero counting as 1.0.
func Score(original, candidate nutrient.Profile, goals []model.Goal, tolerancePercent float64, w Weights) (float64, float64) {
	var goalError float64
	goalIDs := make(map[nutrient.ID]bool, len(goals))
	for _, g := range goals {
		goalIDs[g.Nutrient] = true

		orig := original.Get(g.Nutrient)
		ideal := g.Target
		if g.Relative {
			ideal = orig * g.Target / 100
		}
		ideal *= float64(g.Direction)

		actual := candidate.Get(g.Nutrient) - orig
		goalError += math.Abs(actual - ideal)
	}

	tolerance := tolerancePercent / 100
	var stability float64
	for _, id := range nutrient.Union(original, candidate) {
		if goalIDs[id] {
			continue
		}
		orig, cand := original.Get(id), candidate.Get(id)
		switch {
		case orig > 0:
			deviation := math.Abs((cand - orig) / orig)
			if deviation > tolerance {
				stability += deviation - tolerance
			}
		case cand > 0:
			// Flat; the tolerance does not apply.
			stability += 1.0
		}
	}

	return goalError*w.Goal + stability*w.Stability, stability
}

// Changes compares the two foods at the ingredient's quantity in the meal.
// Percent changes are fractions: 0.25 means +25%. A nutrient absent from
// the original reads 1.0 when the candidate has any of it, else 0.
func Changes(original, candidate nutrient.Profile, grams float64) (nutrient.Profile, nutrient.Profile) {
	factor := grams / 100
	changes := make(nutrient.Profile)
	percent := make(nutrient.Profile)

	for _, id := range nutrient.Union(original, candidate) {
		before := original.Get(id) * factor
		after := candidate.Get(id) * factor
		changes[id] = after - before

		switch {
		case before != 0:
			percent[id] = (after - before) / before
		case after > 0:
			percent[id] = 1.0
		default:
			percent[id] = 0
		}
	}
	return changes, percent
}
