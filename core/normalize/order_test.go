package normalize

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func TestCurrency(t *testing.T) {
	tests := []struct {
		name, code, bank, want string
	}{
		{"explicit code wins", "UYU", "BROU - Caja USD", UYU},
		{"dollar sign variant", "U$S", "", USD},
		{"bank name rule", "", "BROU - Caja de Ahorro pesos", UYU},
		{"bank name without currency", "", "Itaú", USD},
		{"nothing known", "", "", USD},
		{"unknown code falls through", "EUR", "Santander UYU", UYU},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Currency(tt.code, tt.bank))
		})
	}
}

func TestPriceOrder(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		discount float64
		list     null.Float64
		want     Pricing
	}{
		{"no discount", 400, 0, null.Float64{}, Pricing{Original: 400, Final: 400}},
		{"ten percent", 360, 10, null.Float64{}, Pricing{Original: 400, DiscountPercent: 10, DiscountAmount: 40, Final: 360}},
		{"rounding to cents", 100, 33, null.Float64{}, Pricing{Original: 149.25, DiscountPercent: 33, DiscountAmount: 49.25, Final: 100}},
		{"free with list price", 0, 100, null.Float64From(450), Pricing{Original: 450, DiscountPercent: 100, DiscountAmount: 450, Final: 0}},
		{"free without list price", 0, 100, null.Float64{}, Pricing{Original: 0, DiscountPercent: 100, Final: 0}},
		{"discount clamped", 50, 150, null.Float64From(80), Pricing{Original: 80, DiscountPercent: 100, DiscountAmount: 30, Final: 50}},
		{"negative amount", -10, 0, null.Float64{}, Pricing{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PriceOrder(tt.amount, tt.discount, tt.list))
		})
	}
}

type memNumbers struct {
	taken map[string]bool
}

func (m *memNumbers) OrderNumberExists(_ context.Context, number string) (bool, error) {
	return m.taken[number], nil
}

func (m *memNumbers) CountOrderNumbersWithPrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for number := range m.taken {
		if strings.HasPrefix(number, prefix) {
			n++
		}
	}
	return n, nil
}

func (m *memNumbers) issue(t *testing.T, g *OrderNumberGenerator, at time.Time) string {
	t.Helper()
	number, err := g.Next(context.Background(), at)
	require.NoError(t, err)
	m.taken[number] = true
	return number
}

func TestOrderNumberGenerator(t *testing.T) {
	day := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)
	format := regexp.MustCompile(`^TA-\d{8}-\d{4,}$`)

	t.Run("sequence per day", func(t *testing.T) {
		store := &memNumbers{taken: map[string]bool{}}
		g := NewOrderNumberGenerator("ta", store)

		assert.Equal(t, "TA-20240305-0001", store.issue(t, g, day))
		assert.Equal(t, "TA-20240305-0002", store.issue(t, g, day.Add(time.Hour)))
		assert.Equal(t, "TA-20240306-0001", store.issue(t, g, day.Add(24*time.Hour)))
		assert.Equal(t, "TA-20240305-0003", store.issue(t, g, day))
	})

	t.Run("seeded from stored orders", func(t *testing.T) {
		store := &memNumbers{taken: map[string]bool{"TA-20240305-0001": true, "TA-20240305-0002": true}}
		g := NewOrderNumberGenerator("TA", store)

		assert.Equal(t, "TA-20240305-0003", store.issue(t, g, day))
	})

	t.Run("collision moves to the next free number", func(t *testing.T) {
		// a gap in the stored sequence makes the seeded counter land on a taken number
		store := &memNumbers{taken: map[string]bool{"TA-20240305-0002": true}}
		g := NewOrderNumberGenerator("TA", store)

		first := store.issue(t, g, day)
		assert.Equal(t, "TA-20240305-0003", first)
		second := store.issue(t, g, day)
		assert.Equal(t, "TA-20240305-0004", second)
	})

	t.Run("numbers are unique and well formed", func(t *testing.T) {
		store := &memNumbers{taken: map[string]bool{}}
		for i := 1; i <= 5; i++ {
			store.taken[fmt.Sprintf("TA-20240305-%04d", i*2)] = true
		}
		g := NewOrderNumberGenerator("TA", store)

		seen := map[string]bool{}
		for i := 0; i < 50; i++ {
			number := store.issue(t, g, day.Add(time.Duration(i%3)*24*time.Hour))
			assert.Regexp(t, format, number)
			assert.False(t, seen[number], "duplicate %s", number)
			seen[number] = true
		}
	})

	t.Run("day is taken in UTC", func(t *testing.T) {
		store := &memNumbers{taken: map[string]bool{}}
		g := NewOrderNumberGenerator("TA", store)
		montevideo := time.FixedZone("UYT", -3*3600)

		assert.Equal(t, "TA-20240306-0001", store.issue(t, g, time.Date(2024, 3, 5, 22, 0, 0, 0, montevideo)))
	})
}
