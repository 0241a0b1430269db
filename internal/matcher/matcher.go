// Package matcher resolves free-text food descriptions ("chicken breast")
// to records in the nutrient database.
//
// Matching is two-step. The repository prefilters foods whose description
// contains every search term; the matcher then keeps only rows where each
// term appears as a whole word and ranks what is left:
//
//	tier 0  description mentions "raw"
//	tier 1  description mentions none of the processed keywords
//	tier 2  everything else
//
// Within a tier the shortest description wins, which tends to be the most
// generic food. The result is deterministic for a fixed database.
package matcher

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/model"
)

// Searcher is the part of repository.FoodRepository the matcher needs.
type Searcher interface {
	SearchFoods(ctx context.Context, terms []string) ([]model.FoodRecord, error)
}

// Config holds the ranking heuristics. They were tuned against the Canadian
// Nutrient File and are not expected to carry over to other databases
// unchanged.
type Config struct {
	// MaxTokens caps how many leading words of a description constrain the
	// search. More terms make the conjunctive filter too strict.
	MaxTokens int
	// PreferredKeyword puts a food in tier 0.
	PreferredKeyword string
	// ProcessedKeywords push a food to tier 2.
	ProcessedKeywords []string
}

// DefaultConfig returns the thresholds used in production.
func DefaultConfig() Config {
	return Config{
		MaxTokens:         4,
		PreferredKeyword:  "raw",
		ProcessedKeywords: []string{"cooked", "canned", "frozen", "sauce", "soup", "dish"},
	}
}

// Matcher implements findFood on top of a Searcher.
type Matcher struct {
	foods  Searcher
	config Config
	logger *slog.Logger
}

// New creates a Matcher. A non-positive MaxTokens falls back to the default.
func New(foods Searcher, cfg Config, logger *slog.Logger) *Matcher {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	return &Matcher{foods: foods, config: cfg, logger: logger}
}

// Match returns the best food for description, or an apperror.ErrNotFound
// error when nothing matches. Repository failures are returned unchanged.
func (m *Matcher) Match(ctx context.Context, description string) (*model.FoodRecord, error) {
	ranked, err := m.Suggest(ctx, description, 1)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		m.logger.Debug("no food match", slog.String("description", description))
		return nil, apperror.FoodNotFound(description)
	}

	best := ranked[0]
	m.logger.Debug("food matched",
		slog.String("description", description),
		slog.String("food", best.Description),
		slog.Int64("foodID", best.ID),
	)
	return &best, nil
}

// Suggest returns up to limit matching foods, best first. limit <= 0 means
// no limit. An empty slice means no match.
func (m *Matcher) Suggest(ctx context.Context, description string, limit int) ([]model.FoodRecord, error) {
	terms := Tokenize(description, m.config.MaxTokens)
	if len(terms) == 0 {
		return nil, nil
	}

	rows, err := m.foods.SearchFoods(ctx, terms)
	if err != nil {
		return nil, err
	}

	patterns := make([]*regexp.Regexp, len(terms))
	for i, term := range terms {
		patterns[i] = wholeWord(term)
	}

	type ranked struct {
		food model.FoodRecord
		tier int
	}
	var matches []ranked
	for _, row := range rows {
		if !matchesAll(row.Description, patterns) {
			continue
		}
		matches = append(matches, ranked{food: row, tier: m.tier(row.Description)})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if len(a.food.Description) != len(b.food.Description) {
			return len(a.food.Description) < len(b.food.Description)
		}
		if a.food.Description != b.food.Description {
			return a.food.Description < b.food.Description
		}
		return a.food.ID < b.food.ID
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]model.FoodRecord, len(matches))
	for i, r := range matches {
		out[i] = r.food
	}
	return out, nil
}

// tier ranks a description: 0 raw, 1 unprocessed, 2 processed.
// Keyword checks are plain substring tests.
func (m *Matcher) tier(description string) int {
	d := strings.ToLower(description)
	if m.config.PreferredKeyword != "" && strings.Contains(d, strings.ToLower(m.config.PreferredKeyword)) {
		return 0
	}
	for _, kw := range m.config.ProcessedKeywords {
		if strings.Contains(d, strings.ToLower(kw)) {
			return 2
		}
	}
	return 1
}

// Tokenize normalizes a description and returns at most max search terms.
// Commas are dropped before splitting on whitespace.
func Tokenize(description string, max int) []string {
	s := norm.NFKC.String(description)
	s = strings.ReplaceAll(s, ",", "")
	fields := strings.Fields(s)
	if max > 0 && len(fields) > max {
		fields = fields[:max]
	}
	return fields
}

func wholeWord(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
}

func matchesAll(description string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if !p.MatchString(description) {
			return false
		}
	}
	return true
}
