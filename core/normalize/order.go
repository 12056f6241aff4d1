package normalize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tintaacademy/migrator/core"
)

// Currency resolves an order's currency: an explicit code wins, then the bank account name rule,
// then USD.
func Currency(code, bankName string) string {
	switch strings.ToUpper(core.CleanString(code)) {
	case "USD", "U$S", "US$":
		return USD
	case "UYU", "$U", "UY$":
		return UYU
	}
	if strings.TrimSpace(bankName) != "" {
		return BankCurrency(bankName)
	}
	return USD
}

// Pricing is the v4 price breakdown of one order.
type Pricing struct {
	Original        float64
	DiscountPercent float64
	DiscountAmount  float64
	Final           float64
}

// PriceOrder rebuilds the breakdown from the amount actually charged. The list price is only used
// when the discount makes the original price underivable (100% coupons).
func PriceOrder(amount, discountPercent float64, listPrice null.Float64) Pricing {
	if discountPercent < 0 {
		discountPercent = 0
	}
	if discountPercent > 100 {
		discountPercent = 100
	}
	if amount < 0 {
		amount = 0
	}

	p := Pricing{Final: core.RoundCents(amount), DiscountPercent: discountPercent}
	switch {
	case discountPercent == 0:
		p.Original = p.Final
	case discountPercent < 100:
		p.Original = core.RoundCents(p.Final / (1 - discountPercent/100))
	case listPrice.Valid && listPrice.Float64 > 0:
		p.Original = core.RoundCents(listPrice.Float64)
	default:
		p.Original = p.Final
	}
	if d := core.RoundCents(p.Original - p.Final); d > 0 {
		p.DiscountAmount = d
	}
	return p
}

// OrderNumberStore is the part of the destination the generator probes.
type OrderNumberStore interface {
	OrderNumberExists(ctx context.Context, number string) (bool, error)
	CountOrderNumbersWithPrefix(ctx context.Context, prefix string) (int, error)
}

// OrderNumberGenerator issues PREFIX-YYYYMMDD-NNNN numbers. Each day's sequence is seeded from the
// orders already stored for that day. A collision bumps a global offset, shared by all days, until
// the number is free, so the output depends only on the store's contents and call order.
type OrderNumberGenerator struct {
	prefix string
	store  OrderNumberStore
	daily  map[string]int // last sequence issued per day
	offset int            // global collision counter
}

func NewOrderNumberGenerator(prefix string, store OrderNumberStore) *OrderNumberGenerator {
	return &OrderNumberGenerator{
		prefix: strings.ToUpper(strings.TrimSpace(prefix)),
		store:  store,
		daily:  make(map[string]int),
	}
}

func (g *OrderNumberGenerator) dayPrefix(day string) string {
	return g.prefix + "-" + day + "-"
}

func (g *OrderNumberGenerator) format(day string, seq int) string {
	return fmt.Sprintf("%s%04d", g.dayPrefix(day), seq)
}

// Next returns an order number for an order created at `at` that is not yet stored.
func (g *OrderNumberGenerator) Next(ctx context.Context, at time.Time) (string, error) {
	day := core.DayOf(at).Format("20060102")
	seq, seeded := g.daily[day]
	if !seeded {
		n, err := g.store.CountOrderNumbersWithPrefix(ctx, g.dayPrefix(day))
		if err != nil {
			return "", errors.Wrap(err, "seeding order number sequence")
		}
		seq = n
	}
	seq++
	g.daily[day] = seq

	for {
		number := g.format(day, seq+g.offset)
		exists, err := g.store.OrderNumberExists(ctx, number)
		if err != nil {
			return "", errors.Wrap(err, "checking order number")
		}
		if !exists {
			return number, nil
		}
		g.offset++
	}
}
