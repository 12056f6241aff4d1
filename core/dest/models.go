// Package dest describes the v4 store: the only store a migration writes to.
package dest

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/tintaacademy/migrator/core/status"
)

// User roles
const (
	RoleStudent = "student"
)

type Course struct {
	ID            string              `db:"id" validate:"required"`
	Slug          string              `db:"slug" validate:"required"`
	Title         string              `db:"title" validate:"required"`
	Type          status.CourseType   `db:"type" validate:"required"`
	WsetLevel     null.Int            `db:"wsetLevel"`
	Status        status.CourseStatus `db:"status" validate:"required"`
	Modality      string              `db:"modality" validate:"oneof=online presencial"`
	StartDate     null.Time           `db:"startDate"`
	EndDate       null.Time           `db:"endDate"`
	Duration      string              `db:"duration" validate:"required"`
	PriceUSD      null.Float64        `db:"priceUSD"`
	PriceUYU      null.Float64        `db:"priceUYU"`
	EnrolledCount int                 `db:"enrolledCount" validate:"gte=0"`
	CreatedAt     time.Time           `db:"createdAt"`
	UpdatedAt     time.Time           `db:"updatedAt"`
}

type User struct {
	ID        string      `db:"id" validate:"required"`
	Email     string      `db:"email" validate:"required,email"`
	FirstName null.String `db:"firstName"`
	LastName  null.String `db:"lastName"`
	Role      string      `db:"role" validate:"required"`
	CreatedAt time.Time   `db:"createdAt"`
	UpdatedAt time.Time   `db:"updatedAt"`
}

type Student struct {
	ID        string      `db:"id" validate:"required"`
	UserID    string      `db:"userId" validate:"required"`
	Phone     null.String `db:"phone"`
	CreatedAt time.Time   `db:"createdAt"`
	UpdatedAt time.Time   `db:"updatedAt"`
}

type Enrollment struct {
	ID         string                  `db:"id" validate:"required"`
	StudentID  string                  `db:"studentId" validate:"required"`
	CourseID   string                  `db:"courseId" validate:"required"`
	Status     status.EnrollmentStatus `db:"status" validate:"required"`
	EnrolledAt time.Time               `db:"enrolledAt"`
	CreatedAt  time.Time               `db:"createdAt"`
	UpdatedAt  time.Time               `db:"updatedAt"`
}

type Order struct {
	ID               string               `db:"id" validate:"required"`
	OrderNumber      string               `db:"orderNumber" validate:"required,ordernumber"`
	UserID           string               `db:"userId" validate:"required"`
	CourseID         string               `db:"courseId" validate:"required"`
	StudentID        string               `db:"studentId" validate:"required"`
	Status           status.OrderStatus   `db:"status" validate:"required"`
	OriginalPriceUSD null.Float64         `db:"originalPriceUSD"`
	OriginalPriceUYU null.Float64         `db:"originalPriceUYU"`
	DiscountPercent  float64              `db:"discountPercent" validate:"gte=0,lte=100"`
	DiscountAmount   float64              `db:"discountAmount" validate:"gte=0"`
	FinalAmount      float64              `db:"finalAmount" validate:"gte=0"`
	Currency         string               `db:"currency" validate:"oneof=USD UYU"`
	PaymentMethod    status.PaymentMethod `db:"paymentMethod" validate:"required"`
	CreatedAt        time.Time            `db:"createdAt"`
	UpdatedAt        time.Time            `db:"updatedAt"`
	PaidAt           null.Time            `db:"paidAt"`
	CancelledAt      null.Time            `db:"cancelledAt"`
	RefundedAt       null.Time            `db:"refundedAt"`
}

// StampStatusTime sets the timestamp column that belongs to the order's status and clears the others.
func (o *Order) StampStatusTime(at time.Time) {
	o.PaidAt, o.CancelledAt, o.RefundedAt = null.Time{}, null.Time{}, null.Time{}
	switch o.Status {
	case status.OrderPaid:
		o.PaidAt = null.TimeFrom(at)
	case status.OrderCancelled, status.OrderRejected:
		o.CancelledAt = null.TimeFrom(at)
	case status.OrderRefunded:
		o.RefundedAt = null.TimeFrom(at)
	}
}

type BankAccount struct {
	ID            string      `db:"id" validate:"required"`
	BankName      string      `db:"bankName" validate:"required"`
	AccountHolder string      `db:"accountHolder" validate:"required"`
	AccountType   string      `db:"accountType" validate:"required"`
	AccountNumber string      `db:"accountNumber" validate:"required"`
	Currency      string      `db:"currency" validate:"oneof=USD UYU"`
	DisplayOrder  int         `db:"displayOrder" validate:"gte=0"`
	IsActive      bool        `db:"isActive"`
	Notes         null.String `db:"notes"`
	CreatedAt     time.Time   `db:"createdAt"`
	UpdatedAt     time.Time   `db:"updatedAt"`
}

type Coupon struct {
	ID                   string      `db:"id" validate:"required"`
	Code                 string      `db:"code" validate:"required"`
	DiscountPercent      float64     `db:"discountPercent" validate:"gte=0,lte=100"`
	MaxUses              null.Int    `db:"maxUses"`
	CurrentUses          int         `db:"currentUses" validate:"gte=0"`
	RestrictedToEmail    null.String `db:"restrictedToEmail"`
	RestrictedToCourseID null.String `db:"restrictedToCourseId"`
	ValidFrom            time.Time   `db:"validFrom"`
	ExpiresAt            null.Time   `db:"expiresAt"`
	IsActive             bool        `db:"isActive"`
	Description          null.String `db:"description"`
	CreatedAt            time.Time   `db:"createdAt"`
	UpdatedAt            time.Time   `db:"updatedAt"`
}

// KeyRow pairs a v4 id with its natural key.
type KeyRow struct {
	ID  string `db:"id"`
	Key string `db:"key"`
}

// StudentKey is one v4 user with its (possibly missing) student profile.
type StudentKey struct {
	UserID    string      `db:"userId"`
	StudentID null.String `db:"studentId"`
	Email     string      `db:"email"`
}

// CourseCount is a confirmed-enrollment count for one course.
type CourseCount struct {
	CourseID string `db:"courseId"`
	Count    int    `db:"count"`
}
