package core

import (
	"math"
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NormalizeEmail is the one comparison form for emails on both sides of a migration.
func NormalizeEmail(email string) string {
	return CleanString(email, true /* lower */)
}

// RoundCents rounds half away from zero to 2 decimal places.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Timestamp is the stored form of every migrated timestamp: UTC, millisecond precision (the v4
// columns are timestamp(3)), so values compare equal after a round trip.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
