package inmemdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tintaacademy/migrator/core/source"
)

// Source is an in-memory v3 store. BankData and Coupon tables only exist once seeded.
type Source struct {
	mutex    sync.RWMutex
	courses  []source.Course
	students []source.Student
	orders   []source.Order
	banks    []source.BankData
	coupons  []source.Coupon
	hasBanks bool
	hasCoups bool
}

var _ source.Repository = (*Source)(nil)

func NewSource() *Source {
	return &Source{}
}

func (db *Source) AddCourses(rows ...source.Course) *Source {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.courses = append(db.courses, rows...)
	return db
}

func (db *Source) AddStudents(rows ...source.Student) *Source {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.students = append(db.students, rows...)
	return db
}

func (db *Source) AddOrders(rows ...source.Order) *Source {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.orders = append(db.orders, rows...)
	return db
}

// AddBankData creates the BankData table, even when called with no rows.
func (db *Source) AddBankData(rows ...source.BankData) *Source {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.banks = append(db.banks, rows...)
	db.hasBanks = true
	return db
}

// AddCoupons creates the Coupon table, even when called with no rows.
func (db *Source) AddCoupons(rows ...source.Coupon) *Source {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.coupons = append(db.coupons, rows...)
	db.hasCoups = true
	return db
}

// sorted returns a copy ordered by createdAt; equal timestamps keep insertion order.
func sorted[T any](rows []T, createdAt func(T) time.Time) []T {
	out := make([]T, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return createdAt(out[i]).Before(createdAt(out[j])) })
	return out
}

func (db *Source) CourseKeys(context.Context) ([]source.KeyRow, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	keys := make([]source.KeyRow, 0, len(db.courses))
	for _, c := range sorted(db.courses, func(c source.Course) time.Time { return c.CreatedAt }) {
		keys = append(keys, source.KeyRow{ID: c.ID, Key: c.Slug})
	}
	return keys, nil
}

func (db *Source) StudentKeys(context.Context) ([]source.KeyRow, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	keys := make([]source.KeyRow, 0, len(db.students))
	for _, s := range sorted(db.students, func(s source.Student) time.Time { return s.CreatedAt }) {
		keys = append(keys, source.KeyRow{ID: s.ID, Key: s.Email})
	}
	return keys, nil
}

func (db *Source) Courses(context.Context) ([]source.Course, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return sorted(db.courses, func(c source.Course) time.Time { return c.CreatedAt }), nil
}

func (db *Source) Students(context.Context) ([]source.Student, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return sorted(db.students, func(s source.Student) time.Time { return s.CreatedAt }), nil
}

func (db *Source) Orders(context.Context) ([]source.Order, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return sorted(db.orders, func(o source.Order) time.Time { return o.CreatedAt }), nil
}

func (db *Source) BankData(context.Context) ([]source.BankData, bool, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	if !db.hasBanks {
		return nil, false, nil
	}
	return sorted(db.banks, func(b source.BankData) time.Time { return b.CreatedAt }), true, nil
}

func (db *Source) Coupons(context.Context) ([]source.Coupon, bool, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	if !db.hasCoups {
		return nil, false, nil
	}
	return sorted(db.coupons, func(c source.Coupon) time.Time { return c.CreatedAt }), true, nil
}
