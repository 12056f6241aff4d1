package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/dest"
	"github.com/tintaacademy/migrator/core/status"
)

type (
	// Dest is an in-memory v4 store that enforces the same unique keys as the SQL schema.
	Dest struct {
		mutex        sync.RWMutex
		courses      map[string]*dest.Course
		users        map[string]*dest.User
		students     map[string]*dest.Student
		enrollments  map[string]*dest.Enrollment
		orders       map[string]*dest.Order
		bankAccounts map[string]*dest.BankAccount
		coupons      map[string]*dest.Coupon
		inTx         bool
	}
)

var _ dest.Repository = (*Dest)(nil)

func NewDest() *Dest {
	return &Dest{
		courses:      make(map[string]*dest.Course),
		users:        make(map[string]*dest.User),
		students:     make(map[string]*dest.Student),
		enrollments:  make(map[string]*dest.Enrollment),
		orders:       make(map[string]*dest.Order),
		bankAccounts: make(map[string]*dest.BankAccount),
		coupons:      make(map[string]*dest.Coupon),
	}
}

// values returns the table rows ordered by createdAt then id.
func values[T any](table map[string]*T, createdAt func(T) time.Time, id func(T) string) []T {
	rows := make([]T, 0, len(table))
	for _, row := range table {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		ti, tj := createdAt(rows[i]), createdAt(rows[j])
		if ti.Equal(tj) {
			return id(rows[i]) < id(rows[j])
		}
		return ti.Before(tj)
	})
	return rows
}

func (db *Dest) Courses() []dest.Course {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return values(db.courses, func(c dest.Course) time.Time { return c.CreatedAt }, func(c dest.Course) string { return c.ID })
}

func (db *Dest) Users() []dest.User {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return values(db.users, func(u dest.User) time.Time { return u.CreatedAt }, func(u dest.User) string { return u.ID })
}

func (db *Dest) Students() []dest.Student {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return values(db.students, func(s dest.Student) time.Time { return s.CreatedAt }, func(s dest.Student) string { return s.ID })
}

func (db *Dest) Enrollments() []dest.Enrollment {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return values(db.enrollments, func(e dest.Enrollment) time.Time { return e.CreatedAt }, func(e dest.Enrollment) string { return e.ID })
}

func (db *Dest) Orders() []dest.Order {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return values(db.orders, func(o dest.Order) time.Time { return o.CreatedAt }, func(o dest.Order) string { return o.ID })
}

func (db *Dest) BankAccounts() []dest.BankAccount {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return values(db.bankAccounts, func(b dest.BankAccount) time.Time { return b.CreatedAt }, func(b dest.BankAccount) string { return b.ID })
}

func (db *Dest) Coupons() []dest.Coupon {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return values(db.coupons, func(c dest.Coupon) time.Time { return c.CreatedAt }, func(c dest.Coupon) string { return c.ID })
}

// courses

func (db *Dest) CourseKeys(context.Context) ([]dest.KeyRow, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	keys := make([]dest.KeyRow, 0, len(db.courses))
	for _, c := range db.courses {
		keys = append(keys, dest.KeyRow{ID: c.ID, Key: c.Slug})
	}
	return keys, nil
}

func (db *Dest) FindCourseBySlug(_ context.Context, slug string) (dest.Course, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	for _, c := range db.courses {
		if c.Slug == slug {
			return *c, nil
		}
	}
	return dest.Course{}, core.ErrNotFound
}

func (db *Dest) InsertCourse(_ context.Context, c dest.Course) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if _, ok := db.courses[c.ID]; ok {
		return core.ErrDuplicate
	}
	for _, other := range db.courses {
		if other.Slug == c.Slug {
			return core.ErrDuplicate
		}
	}
	db.courses[c.ID] = &c
	return nil
}

// users and student profiles

func (db *Dest) StudentKeys(context.Context) ([]dest.StudentKey, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	byUser := make(map[string]string, len(db.students))
	for _, s := range db.students {
		byUser[s.UserID] = s.ID
	}
	keys := make([]dest.StudentKey, 0, len(db.users))
	for _, u := range db.users {
		key := dest.StudentKey{UserID: u.ID, Email: u.Email}
		if id, ok := byUser[u.ID]; ok {
			key.StudentID.SetValid(id)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (db *Dest) FindUserByEmail(_ context.Context, email string) (dest.User, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	for _, u := range db.users {
		if strings.EqualFold(u.Email, email) {
			return *u, nil
		}
	}
	return dest.User{}, core.ErrNotFound
}

func (db *Dest) InsertUser(_ context.Context, u dest.User) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if _, ok := db.users[u.ID]; ok {
		return core.ErrDuplicate
	}
	for _, other := range db.users {
		if strings.EqualFold(other.Email, u.Email) {
			return core.ErrDuplicate
		}
	}
	db.users[u.ID] = &u
	return nil
}

func (db *Dest) FindStudentByUserID(_ context.Context, userID string) (dest.Student, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	for _, s := range db.students {
		if s.UserID == userID {
			return *s, nil
		}
	}
	return dest.Student{}, core.ErrNotFound
}

func (db *Dest) InsertStudent(_ context.Context, s dest.Student) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if _, ok := db.students[s.ID]; ok {
		return core.ErrDuplicate
	}
	for _, other := range db.students {
		if other.UserID == s.UserID {
			return core.ErrDuplicate
		}
	}
	db.students[s.ID] = &s
	return nil
}

// enrollments

func (db *Dest) FindEnrollment(_ context.Context, studentID, courseID string) (dest.Enrollment, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	for _, e := range db.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return *e, nil
		}
	}
	return dest.Enrollment{}, core.ErrNotFound
}

func (db *Dest) InsertEnrollment(_ context.Context, e dest.Enrollment) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if _, ok := db.enrollments[e.ID]; ok {
		return core.ErrDuplicate
	}
	for _, other := range db.enrollments {
		if other.StudentID == e.StudentID && other.CourseID == e.CourseID {
			return core.ErrDuplicate
		}
	}
	db.enrollments[e.ID] = &e
	return nil
}

func (db *Dest) UpdateEnrollmentStatus(_ context.Context, e dest.Enrollment) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	orig, ok := db.enrollments[e.ID]
	if !ok {
		return core.ErrNotFound
	}
	orig.Status = e.Status
	orig.EnrolledAt = e.EnrolledAt
	orig.UpdatedAt = e.UpdatedAt
	return nil
}

// orders

// FindOrder returns the most recent order for the pair.
func (db *Dest) FindOrder(_ context.Context, userID, courseID string) (dest.Order, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	var found *dest.Order
	for _, o := range db.orders {
		if o.UserID != userID || o.CourseID != courseID {
			continue
		}
		if found == nil || o.CreatedAt.After(found.CreatedAt) {
			found = o
		}
	}
	if found == nil {
		return dest.Order{}, core.ErrNotFound
	}
	return *found, nil
}

func (db *Dest) InsertOrder(_ context.Context, o dest.Order) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if _, ok := db.orders[o.ID]; ok {
		return core.ErrDuplicate
	}
	for _, other := range db.orders {
		if other.OrderNumber == o.OrderNumber {
			return core.ErrDuplicate
		}
	}
	db.orders[o.ID] = &o
	return nil
}

func (db *Dest) UpdateOrderStatus(_ context.Context, o dest.Order) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	orig, ok := db.orders[o.ID]
	if !ok {
		return core.ErrNotFound
	}
	orig.Status = o.Status
	orig.CreatedAt = o.CreatedAt
	orig.UpdatedAt = o.UpdatedAt
	orig.PaidAt = o.PaidAt
	orig.CancelledAt = o.CancelledAt
	orig.RefundedAt = o.RefundedAt
	return nil
}

func (db *Dest) OrderNumberExists(_ context.Context, number string) (bool, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	for _, o := range db.orders {
		if o.OrderNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (db *Dest) CountOrderNumbersWithPrefix(_ context.Context, prefix string) (int, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	n := 0
	for _, o := range db.orders {
		if strings.HasPrefix(o.OrderNumber, prefix) {
			n++
		}
	}
	return n, nil
}

// checkout data

func (db *Dest) FindBankAccount(_ context.Context, bankName, accountNumber string) (dest.BankAccount, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	for _, b := range db.bankAccounts {
		if b.BankName == bankName && b.AccountNumber == accountNumber {
			return *b, nil
		}
	}
	return dest.BankAccount{}, core.ErrNotFound
}

func (db *Dest) InsertBankAccount(_ context.Context, b dest.BankAccount) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if _, ok := db.bankAccounts[b.ID]; ok {
		return core.ErrDuplicate
	}
	for _, other := range db.bankAccounts {
		if other.BankName == b.BankName && other.AccountNumber == b.AccountNumber {
			return core.ErrDuplicate
		}
	}
	db.bankAccounts[b.ID] = &b
	return nil
}

func (db *Dest) MaxBankAccountDisplayOrder(context.Context) (int, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	highest := 0
	for _, b := range db.bankAccounts {
		if b.DisplayOrder > highest {
			highest = b.DisplayOrder
		}
	}
	return highest, nil
}

func (db *Dest) FindCouponByCode(_ context.Context, code string) (dest.Coupon, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	for _, c := range db.coupons {
		if strings.EqualFold(c.Code, code) {
			return *c, nil
		}
	}
	return dest.Coupon{}, core.ErrNotFound
}

func (db *Dest) InsertCoupon(_ context.Context, c dest.Coupon) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if _, ok := db.coupons[c.ID]; ok {
		return core.ErrDuplicate
	}
	for _, other := range db.coupons {
		if strings.EqualFold(other.Code, c.Code) {
			return core.ErrDuplicate
		}
	}
	db.coupons[c.ID] = &c
	return nil
}

func (db *Dest) UpdateCouponUses(_ context.Context, id string, uses int, updatedAt time.Time) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	c, ok := db.coupons[id]
	if !ok {
		return core.ErrNotFound
	}
	if uses > c.CurrentUses {
		c.CurrentUses = uses
	}
	c.UpdatedAt = updatedAt
	return nil
}

// enrolled counts

func (db *Dest) ResetEnrolledCounts(context.Context) (int, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	for _, c := range db.courses {
		c.EnrolledCount = 0
	}
	return len(db.courses), nil
}

func (db *Dest) ConfirmedEnrollmentCounts(context.Context) ([]dest.CourseCount, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	byCourse := make(map[string]int)
	for _, e := range db.enrollments {
		if e.Status == status.EnrollmentConfirmed {
			byCourse[e.CourseID]++
		}
	}
	counts := make([]dest.CourseCount, 0, len(byCourse))
	for id, n := range byCourse {
		counts = append(counts, dest.CourseCount{CourseID: id, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].CourseID < counts[j].CourseID })
	return counts, nil
}

func (db *Dest) SetEnrolledCount(_ context.Context, courseID string, count int) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	c, ok := db.courses[courseID]
	if !ok {
		return core.ErrNotFound
	}
	c.EnrolledCount = count
	return nil
}

// InTx restores every course's enrolledCount when fn fails.
func (db *Dest) InTx(_ context.Context, fn func(dest.CountRepository) error) error {
	db.mutex.Lock()
	if db.inTx {
		db.mutex.Unlock()
		return fn(db)
	}
	snapshot := make(map[string]int, len(db.courses))
	for id, c := range db.courses {
		snapshot[id] = c.EnrolledCount
	}
	db.inTx = true
	db.mutex.Unlock()

	err := fn(db)

	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.inTx = false
	if err != nil {
		for id, n := range snapshot {
			if c, ok := db.courses[id]; ok {
				c.EnrolledCount = n
			}
		}
	}
	return err
}
