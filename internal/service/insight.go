package service

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
	"github.com/sakif/nutriswap/internal/nutrition"
	"github.com/sakif/nutriswap/internal/repository"
)

// Canada's Food Guide categories used by FoodGroupDistribution.
const (
	CategoryVegetablesFruit = "Vegetables and Fruit"
	CategoryGrains          = "Grain Products"
	CategoryMilk            = "Milk and Alternatives"
	CategoryMeat            = "Meat and Alternatives"
	CategoryOther           = "Other"
	CategoryUncategorized   = "Uncategorized"
)

var categoryOrder = []string{
	CategoryVegetablesFruit,
	CategoryGrains,
	CategoryMilk,
	CategoryMeat,
	CategoryOther,
	CategoryUncategorized,
}

// RecommendedPlate is the food guide's plate, in percent.
var RecommendedPlate = []GroupShare{
	{Category: CategoryVegetablesFruit, Percent: 50},
	{Category: CategoryGrains, Percent: 25},
	{Category: CategoryMilk, Percent: 12.5},
	{Category: CategoryMeat, Percent: 12.5},
}

// Recommended daily amounts compared by RDAComparison.
var dailyRecommended = []struct {
	id     nutrient.ID
	label  string
	amount float64
}{
	{nutrient.EnergyKcal, "Calories", 2000},
	{nutrient.Protein, "Protein", 50},
	{nutrient.Fibre, "Fiber", 30},
}

// categoryKeywords maps database food group names onto food guide
// categories. The first matching row wins; matching is by substring.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{CategoryVegetablesFruit, []string{"vegetable", "fruit"}},
	{CategoryGrains, []string{"grain", "cereal", "baked"}},
	{CategoryMilk, []string{"dairy", "milk"}},
	{CategoryMeat, []string{"meat", "poultry", "legumes", "nut", "pork", "beef", "finfish", "shellfish", "sausage"}},
}

// FoodGuideCategory maps a database food group to its food guide category.
// An empty group is Uncategorized; a group matching no keyword is Other.
func FoodGuideCategory(group string) string {
	g := strings.ToLower(strings.TrimSpace(group))
	if g == "" {
		return CategoryUncategorized
	}
	for _, row := range categoryKeywords {
		for _, kw := range row.keywords {
			if strings.Contains(g, kw) {
				return row.category
			}
		}
	}
	return CategoryOther
}

// DailyAverage is the mean daily intake over a date range.
type DailyAverage struct {
	Range     model.DateRange  `json:"range"`
	Days      int              `json:"days"`
	MealCount int              `json:"mealCount"`
	Nutrients nutrient.Profile `json:"nutrients"`
}

// RDAEntry compares one nutrient's average daily intake with its
// recommended amount.
type RDAEntry struct {
	Nutrient    nutrient.ID `json:"nutrient"`
	Label       string      `json:"label"`
	Unit        string      `json:"unit"`
	Recommended float64     `json:"recommended"`
	Consumed    float64     `json:"consumed"`
	Percent     float64     `json:"percent"`
}

// GroupShare is one slice of a food group breakdown.
type GroupShare struct {
	Category string  `json:"category"`
	Grams    float64 `json:"grams,omitempty"`
	Percent  float64 `json:"percent"`
}

// FoodGroupBreakdown compares what the user ate with the recommended plate.
type FoodGroupBreakdown struct {
	TotalGrams  float64      `json:"totalGrams"`
	Actual      []GroupShare `json:"actual"`
	Recommended []GroupShare `json:"recommended"`
}

// DayEffect is one day's nutrient total before and after its swaps.
type DayEffect struct {
	Date   string  `json:"date"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// InsightService summarizes a user's meal history. It produces data only;
// rendering is left to the client.
type InsightService struct {
	meals      repository.MealRepository
	aggregator *nutrition.Aggregator
	logger     *slog.Logger
}

func NewInsightService(meals repository.MealRepository, aggregator *nutrition.Aggregator, logger *slog.Logger) *InsightService {
	return &InsightService{meals: meals, aggregator: aggregator, logger: logger}
}

// AverageDailyNutrients divides the nutrients of all active meals in rng by
// the number of days in rng, both ends included. Days without meals count.
func (s *InsightService) AverageDailyNutrients(ctx context.Context, userID string, rng model.DateRange) (*DailyAverage, error) {
	meals, err := s.activeMeals(ctx, userID, rng)
	if err != nil {
		return nil, err
	}

	totals := make(nutrient.Profile)
	for i := range meals {
		profile, err := s.nutrients(ctx, &meals[i])
		if err != nil {
			return nil, err
		}
		totals.AddScaled(profile, 1)
	}

	days := rng.Days()
	return &DailyAverage{
		Range:     rng,
		Days:      days,
		MealCount: len(meals),
		Nutrients: totals.Scale(1 / float64(days)),
	}, nil
}

// RDAComparison reports average daily calories, protein and fibre as a
// percentage of the recommended daily amounts.
func (s *InsightService) RDAComparison(ctx context.Context, userID string, rng model.DateRange) ([]RDAEntry, error) {
	avg, err := s.AverageDailyNutrients(ctx, userID, rng)
	if err != nil {
		return nil, err
	}

	entries := make([]RDAEntry, len(dailyRecommended))
	for i, r := range dailyRecommended {
		consumed := avg.Nutrients.Get(r.id)
		entries[i] = RDAEntry{
			Nutrient:    r.id,
			Label:       r.label,
			Unit:        r.id.Unit(),
			Recommended: r.amount,
			Consumed:    consumed,
			Percent:     consumed / r.amount * 100,
		}
	}
	return entries, nil
}

// FoodGroupDistribution sums ingredient weights per food guide category over
// the active meals in rng. Ingredients with no database match count as
// Uncategorized. Categories with no weight are omitted from Actual.
func (s *InsightService) FoodGroupDistribution(ctx context.Context, userID string, rng model.DateRange) (*FoodGroupBreakdown, error) {
	meals, err := s.activeMeals(ctx, userID, rng)
	if err != nil {
		return nil, err
	}

	grams := make(map[string]float64)
	var total float64
	for _, meal := range meals {
		lines, err := ingredient.Parse(meal.Ingredients)
		if err != nil {
			return nil, fmt.Errorf("service/insight: parsing meal %s: %w", meal.ID, err)
		}
		for _, line := range lines {
			category, err := s.category(ctx, line)
			if err != nil {
				return nil, err
			}
			grams[category] += line.Grams
			total += line.Grams
		}
	}

	breakdown := &FoodGroupBreakdown{
		TotalGrams:  total,
		Actual:      []GroupShare{},
		Recommended: RecommendedPlate,
	}
	for _, c := range categoryOrder {
		g := grams[c]
		if g <= 0 {
			continue
		}
		breakdown.Actual = append(breakdown.Actual, GroupShare{
			Category: c,
			Grams:    g,
			Percent:  g / total * 100,
		})
	}
	return breakdown, nil
}

// SwapEffect reports, for each day in rng on which at least one meal was
// swapped, the day's total of one nutrient with the original meals and with
// their latest replacements. Days are in ascending order.
func (s *InsightService) SwapEffect(ctx context.Context, userID string, rng model.DateRange, nutrientName string) ([]DayEffect, error) {
	id, ok := nutrient.Lookup(nutrientName)
	if !ok {
		return nil, apperror.ValidationFailed("nutrient", fmt.Sprintf("unknown nutrient %q", nutrientName))
	}
	if userID == "" {
		return nil, apperror.Forbidden("authentication required")
	}
	if err := requireRange(rng); err != nil {
		return nil, err
	}

	all, err := s.meals.ListMeals(ctx, userID, repository.MealQuery{Range: rng, IncludeSuperseded: true})
	if err != nil {
		return nil, fmt.Errorf("service/insight: listing meals: %w", err)
	}

	replacement := make(map[string]*model.Meal)
	var originals []*model.Meal
	for i := range all {
		m := &all[i]
		if m.IsSwapped && m.OriginalMealID != "" {
			replacement[m.OriginalMealID] = m
		} else if !m.IsSwapped {
			originals = append(originals, m)
		}
	}

	type day struct {
		before, after float64
		swapped       bool
	}
	days := make(map[string]*day)
	for _, orig := range originals {
		before, err := s.nutrients(ctx, orig)
		if err != nil {
			return nil, err
		}

		latest := orig
		for next, ok := replacement[latest.ID]; ok; next, ok = replacement[latest.ID] {
			latest = next
		}
		after := before
		if latest != orig {
			if after, err = s.nutrients(ctx, latest); err != nil {
				return nil, err
			}
		}

		key := orig.Date.Format("2006-01-02")
		d, ok := days[key]
		if !ok {
			d = &day{}
			days[key] = d
		}
		d.before += before.Get(id)
		d.after += after.Get(id)
		d.swapped = d.swapped || latest != orig
	}

	effects := []DayEffect{}
	for key, d := range days {
		if d.swapped {
			effects = append(effects, DayEffect{Date: key, Before: d.before, After: d.after})
		}
	}
	sort.Slice(effects, func(i, j int) bool { return effects[i].Date < effects[j].Date })
	return effects, nil
}

func (s *InsightService) activeMeals(ctx context.Context, userID string, rng model.DateRange) ([]model.Meal, error) {
	if userID == "" {
		return nil, apperror.Forbidden("authentication required")
	}
	if err := requireRange(rng); err != nil {
		return nil, err
	}

	meals, err := s.meals.ListMeals(ctx, userID, repository.MealQuery{Range: rng})
	if err != nil {
		return nil, fmt.Errorf("service/insight: listing meals: %w", err)
	}
	return meals, nil
}

func (s *InsightService) nutrients(ctx context.Context, meal *model.Meal) (nutrient.Profile, error) {
	res, err := s.aggregator.AggregateText(ctx, meal.Ingredients, nutrition.Lenient)
	if err != nil {
		return nil, fmt.Errorf("service/insight: computing nutrients of meal %s: %w", meal.ID, err)
	}
	return res.Totals, nil
}

func (s *InsightService) category(ctx context.Context, line ingredient.Line) (string, error) {
	food, _, err := s.aggregator.Resolve(ctx, line.Description)
	if err != nil {
		if errors.Is(err, apperror.ErrResolution) {
			s.logger.Debug("ingredient has no food group", slog.String("line", line.String()))
			return CategoryUncategorized, nil
		}
		return "", fmt.Errorf("service/insight: resolving %q: %w", line.Description, err)
	}
	return FoodGuideCategory(food.Group), nil
}
