package matcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/model"
)

// fakeSearcher does what the SQL prefilter does: substring AND over terms.
type fakeSearcher struct {
	foods     []model.FoodRecord
	err       error
	lastTerms []string
}

func (f *fakeSearcher) SearchFoods(_ context.Context, terms []string) ([]model.FoodRecord, error) {
	f.lastTerms = terms
	if f.err != nil {
		return nil, f.err
	}
	var out []model.FoodRecord
	for _, food := range f.foods {
		d := strings.ToLower(food.Description)
		ok := true
		for _, t := range terms {
			if !strings.Contains(d, strings.ToLower(t)) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, food)
		}
	}
	return out, nil
}

func newTestMatcher(foods ...string) (*Matcher, *fakeSearcher) {
	s := &fakeSearcher{}
	for i, d := range foods {
		s.foods = append(s.foods, model.FoodRecord{ID: int64(i + 1), Description: d})
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(s, DefaultConfig(), logger), s
}

func TestMatch_PrefersRaw(t *testing.T) {
	m, _ := newTestMatcher(
		"Chicken, broiler, breast, meat only, cooked, roasted",
		"Chicken, broiler, breast, meat only, raw",
		"Chicken breast, sauce dish",
	)

	got, err := m.Match(context.Background(), "chicken breast")
	require.NoError(t, err)
	assert.Equal(t, "Chicken, broiler, breast, meat only, raw", got.Description)
}

func TestMatch_PrefersUnprocessedOverProcessed(t *testing.T) {
	m, _ := newTestMatcher(
		"Soup, tomato, canned",
		"Tomato, red, ripe, stewed",
		"Tomato sauce, canned",
	)

	got, err := m.Match(context.Background(), "tomato")
	require.NoError(t, err)
	assert.Equal(t, "Tomato, red, ripe, stewed", got.Description)
}

func TestMatch_ShortestWithinTier(t *testing.T) {
	m, _ := newTestMatcher(
		"Apple, raw, with skin, Gala",
		"Apple, raw",
		"Apple, raw, without skin",
	)

	got, err := m.Match(context.Background(), "apple")
	require.NoError(t, err)
	assert.Equal(t, "Apple, raw", got.Description)
}

func TestMatch_WholeWordsOnly(t *testing.T) {
	m, _ := newTestMatcher(
		"Pineapple, raw",
		"Applesauce, canned",
	)

	_, err := m.Match(context.Background(), "apple")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestMatch_CaseInsensitiveAndCommas(t *testing.T) {
	m, _ := newTestMatcher("Rice, white, long-grain, raw")

	got, err := m.Match(context.Background(), "RICE, WHITE")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
}

func TestMatch_OnlyFirstFourTokensConstrain(t *testing.T) {
	m, s := newTestMatcher("Beef, ground, lean, raw")

	got, err := m.Match(context.Background(), "beef ground lean raw extra-fancy premium")
	require.NoError(t, err)
	assert.Equal(t, "Beef, ground, lean, raw", got.Description)
	assert.Equal(t, []string{"beef", "ground", "lean", "raw"}, s.lastTerms)
}

func TestMatch_ConfigurableTokenCap(t *testing.T) {
	s := &fakeSearcher{foods: []model.FoodRecord{{ID: 1, Description: "Beef, ground, raw"}}}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg := DefaultConfig()
	cfg.MaxTokens = 1
	m := New(s, cfg, logger)

	got, err := m.Match(context.Background(), "beef wellington")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
}

func TestMatch_Deterministic(t *testing.T) {
	m, _ := newTestMatcher("Milk, 2%", "Milk, 1%", "Milk, skim")

	first, err := m.Match(context.Background(), "milk")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := m.Match(context.Background(), "milk")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "Milk, 1%", first.Description)
}

func TestMatch_EmptyDescription(t *testing.T) {
	m, _ := newTestMatcher("Egg, whole, raw")

	_, err := m.Match(context.Background(), "   ")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestMatch_RepositoryFailurePropagates(t *testing.T) {
	m, s := newTestMatcher("Egg, whole, raw")
	s.err = apperror.Unavailable("searching foods", errors.New("database is locked"))

	_, err := m.Match(context.Background(), "egg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUnavailable))
	assert.False(t, errors.Is(err, apperror.ErrNotFound))
}

func TestSuggest_Limit(t *testing.T) {
	m, _ := newTestMatcher("Cheese, cheddar", "Cheese, brie", "Cheese, feta", "Cheese sauce")

	got, err := m.Suggest(context.Background(), "cheese", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Cheese, brie", got[0].Description)
	assert.Equal(t, "Cheese, feta", got[1].Description)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"chicken", "breast"}, Tokenize("  chicken,  breast ", 4))
	assert.Equal(t, []string{"a", "b"}, Tokenize("a b c", 2))
	assert.Empty(t, Tokenize(",,,", 4))
}
