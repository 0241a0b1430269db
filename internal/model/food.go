package model

import (
	"strings"

	"github.com/sakif/nutriswap/internal/nutrient"
)

// FoodRecord is a food as stored in the nutrient database. The core only
// reads it. An empty Group means the food is not assigned to a food group.
type FoodRecord struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Group       string `json:"group,omitempty"`
}

// Direction is which way a goal pushes its nutrient: +1 or -1.
type Direction int

const (
	Increase Direction = 1
	Decrease Direction = -1
)

// ParseDirection accepts "increase"/"decrease" in any case.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "increase":
		return Increase, true
	case "decrease":
		return Decrease, true
	}
	return 0, false
}

func (d Direction) String() string {
	if d == Decrease {
		return "Decrease"
	}
	return "Increase"
}

// Goal asks a swap to move one nutrient. Target is an absolute amount per
// 100 g, or a percentage of the original amount when Relative is set.
type Goal struct {
	Nutrient  nutrient.ID `json:"nutrient"`
	Direction Direction   `json:"direction"`
	Target    float64     `json:"target"`
	Relative  bool        `json:"relative"`
}

// SwapSuggestion is one ranked replacement for an ingredient. Changes and
// PercentChanges are scaled to the ingredient's amount in the meal; Score is
// lower-is-better.
type SwapSuggestion struct {
	FoodName         string           `json:"foodName"`
	FoodGroup        string           `json:"foodGroup,omitempty"`
	Score            float64          `json:"score"`
	StabilityPenalty float64          `json:"stabilityPenalty"`
	Changes          nutrient.Profile `json:"nutrientChanges"`
	PercentChanges   nutrient.Profile `json:"nutrientPercentChanges"`
}
