// Package ingredient parses the free-text ingredient lists that meals are
// logged with. One line is one ingredient: an amount in grams followed by a
// food description.
//
//	150g chicken breast
//	100 g rice, white, long-grain
//	12.5G butter
package ingredient

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sakif/nutriswap/internal/apperror"
)

// linePattern captures the numeric amount and the description. The unit
// marker is a lone "g" (any case) followed by at least one space, so
// "100 grapes" is rejected instead of read as 100 g of "rapes".
var linePattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d*)?)\s*g\s+(.+)$`)

// Line is one parsed ingredient.
type Line struct {
	Amount      string  `json:"amount"` // numeric text as written, e.g. "150" or "12.50"
	Grams       float64 `json:"grams"`
	Description string  `json:"description"`
}

// String renders the line in canonical form: "<amount>g <description>".
func (l Line) String() string {
	amount := l.Amount
	if amount == "" {
		amount = strconv.FormatFloat(l.Grams, 'f', -1, 64)
	}
	return amount + "g " + l.Description
}

// WithDescription returns a copy of l that keeps the amount and swaps the food.
func (l Line) WithDescription(description string) Line {
	l.Description = strings.TrimSpace(description)
	return l
}

// ParseLine parses a single ingredient line. Surrounding whitespace is
// ignored. A line that does not match the expected format returns an
// apperror.ErrParse error quoting the line.
func ParseLine(raw string) (Line, error) {
	trimmed := strings.TrimSpace(raw)
	m := linePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Line{}, apperror.ParseFailed(raw)
	}

	grams, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Line{}, apperror.ParseFailed(raw)
	}

	description := strings.TrimSpace(m[2])
	if description == "" {
		return Line{}, apperror.ParseFailed(raw)
	}

	return Line{Amount: m[1], Grams: grams, Description: description}, nil
}

// Parse parses a newline-separated block. Blank lines are skipped; the first
// malformed line aborts the whole block and nothing is returned.
func Parse(text string) ([]Line, error) {
	var lines []Line
	for _, raw := range SplitLines(text) {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		line, err := ParseLine(raw)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Join renders lines back into ingredient text, one per line.
func Join(lines []Line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.String()
	}
	return strings.Join(parts, "\n")
}

// SplitLines splits ingredient text on newlines, tolerating CRLF.
func SplitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
