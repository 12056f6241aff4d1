// Package source describes the v3 store. Rows here are read-only: nothing in a migration writes them.
package source

import (
	"time"

	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"
)

type Course struct {
	ID            string         `db:"id"`
	Slug          string         `db:"slug"`
	Title         string         `db:"title"`
	Type          string         `db:"type"`
	Status        string         `db:"status"`
	TotalDuration int            `db:"totalDuration"` // minutes
	ClassDates    pq.StringArray `db:"classDates"`    // RFC3339 timestamps
	ExamDate      null.Time      `db:"examDate"`
	Location      null.String    `db:"location"`
	PriceUSD      null.Float64   `db:"priceUSD"`
	PriceUYU      null.Float64   `db:"priceUYU"`
	EducatorID    null.String    `db:"educatorId"`
	CreatedAt     time.Time      `db:"createdAt"`
}

// ClassTimes parses ClassDates, dropping entries that are not timestamps.
func (c Course) ClassTimes() []time.Time {
	times := make([]time.Time, 0, len(c.ClassDates))
	for _, raw := range c.ClassDates {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05-07", "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				times = append(times, t.UTC())
				break
			}
		}
	}
	return times
}

type Student struct {
	ID        string      `db:"id"`
	Email     string      `db:"email"`
	FirstName null.String `db:"firstName"`
	LastName  null.String `db:"lastName"`
	Phone     null.String `db:"phone"`
	CreatedAt time.Time   `db:"createdAt"`
}

type Order struct {
	ID            string      `db:"id"`
	StudentID     string      `db:"studentId"`
	CourseID      string      `db:"courseId"`
	Status        string      `db:"status"`
	Amount        float64     `db:"amount"`
	Currency      null.String `db:"currency"`
	PaymentMethod null.String `db:"paymentMethod"`
	CouponID      null.String `db:"couponId"`
	BankDataID    null.String `db:"bankDataId"`
	CreatedAt     time.Time   `db:"createdAt"`
	UpdatedAt     time.Time   `db:"updatedAt"`
}

type BankData struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Info      string    `db:"info"`
	CreatedAt time.Time `db:"createdAt"`
}

type Coupon struct {
	ID        string      `db:"id"`
	Code      string      `db:"code"`
	Discount  float64     `db:"discount"` // percent
	MaxUses   null.Int    `db:"maxUses"`
	Uses      int         `db:"uses"`
	ExpiresAt null.Time   `db:"expiresAt"`
	CourseID  null.String `db:"courseId"`
	Email     null.String `db:"email"`
	CreatedAt time.Time   `db:"createdAt"`
}

// KeyRow pairs a v3 id with its natural key (slug or email).
type KeyRow struct {
	ID  string `db:"id"`
	Key string `db:"key"`
}
