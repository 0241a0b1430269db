package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func TestDateRangeContains(t *testing.T) {
	r := DateRange{From: day(2024, 3, 1, 15), To: day(2024, 3, 3, 8)}

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"start of first day", day(2024, 3, 1, 0), true},
		{"late on last day", time.Date(2024, 3, 3, 23, 59, 59, 0, time.UTC), true},
		{"day before", day(2024, 2, 29, 23), false},
		{"day after", day(2024, 3, 4, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Contains(tt.t))
		})
	}
}

func TestDateRangeOpen(t *testing.T) {
	var r DateRange
	assert.True(t, r.Contains(day(1999, 1, 1, 0)))
	assert.Equal(t, 0, r.Days())

	onlyFrom := DateRange{From: day(2024, 1, 10, 0)}
	assert.False(t, onlyFrom.Contains(day(2024, 1, 9, 12)))
	assert.True(t, onlyFrom.Contains(day(2030, 1, 1, 0)))
}

func TestDateRangeDays(t *testing.T) {
	assert.Equal(t, 1, DateRange{From: day(2024, 3, 1, 9), To: day(2024, 3, 1, 20)}.Days())
	assert.Equal(t, 7, DateRange{From: day(2024, 3, 1, 0), To: day(2024, 3, 7, 0)}.Days())
	assert.Equal(t, 7, DateRange{From: day(2024, 3, 7, 0), To: day(2024, 3, 1, 0)}.Days())
}

func TestParseMealType(t *testing.T) {
	mt, ok := ParseMealType(" dinner ")
	assert.True(t, ok)
	assert.Equal(t, Dinner, mt)
	assert.True(t, mt.OncePerDay())
	assert.False(t, Snack.OncePerDay())

	_, ok = ParseMealType("brunch")
	assert.False(t, ok)
}

func TestParseDirection(t *testing.T) {
	d, ok := ParseDirection("Increase")
	assert.True(t, ok)
	assert.Equal(t, Increase, d)

	d, ok = ParseDirection("DECREASE")
	assert.True(t, ok)
	assert.Equal(t, Decrease, d)
	assert.Equal(t, "Decrease", d.String())

	_, ok = ParseDirection("sideways")
	assert.False(t, ok)
}
