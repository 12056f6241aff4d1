// Package status translates v3 vocabularies into v4 ones and ranks v4 statuses for reconciliation.
package status

import (
	"strings"
	"time"
)

type (
	OrderStatus      string
	EnrollmentStatus string
	CourseType       string
	CourseStatus     string
	PaymentMethod    string
)

// Order statuses
const (
	OrderPaid           OrderStatus = "paid"
	OrderCreated        OrderStatus = "created"
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderRejected       OrderStatus = "rejected"
	OrderRefunded       OrderStatus = "refunded"
	OrderCancelled      OrderStatus = "cancelled"
)

// Enrollment statuses
const (
	EnrollmentConfirmed EnrollmentStatus = "confirmed"
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// Course types
const (
	CourseWSET   CourseType = "wset"
	CourseTaller CourseType = "taller"
	CourseCata   CourseType = "cata"
	CourseCurso  CourseType = "curso"
)

// Course statuses
const (
	CourseAnnounced CourseStatus = "announced"
	CourseEnrolling CourseStatus = "enrolling"
	CourseFinished  CourseStatus = "finished"
)

// Payment methods
const (
	PaymentMercadoPago  PaymentMethod = "mercadopago"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentPayPal       PaymentMethod = "paypal"
	PaymentCash         PaymentMethod = "cash"
)

// Defaults for unrecognized input.
const (
	DefaultOrderStatus      = OrderCreated
	DefaultEnrollmentStatus = EnrollmentPending
	DefaultCourseType       = CourseCurso
	DefaultCourseStatus     = CourseAnnounced
	DefaultPaymentMethod    = PaymentBankTransfer
)

// CourseKind is a translated v3 course type code.
type CourseKind struct {
	Type  CourseType
	Level int // WSET level, 0 otherwise
}

var (
	orderStatuses = map[string]OrderStatus{
		"Paid":        OrderPaid,
		"Created":     OrderCreated,
		"Pending":     OrderPendingPayment,
		"PaymentSent": OrderPendingPayment,
		"Rejected":    OrderRejected,
		"Refunded":    OrderRefunded,
		"Cancelled":   OrderCancelled,
	}

	enrollmentStatuses = map[string]EnrollmentStatus{
		"Paid":        EnrollmentConfirmed,
		"Created":     EnrollmentPending,
		"Pending":     EnrollmentPending,
		"PaymentSent": EnrollmentPending,
		"Rejected":    EnrollmentCancelled,
		"Refunded":    EnrollmentCancelled,
		"Cancelled":   EnrollmentCancelled,
	}

	courseKinds = map[string]CourseKind{
		"WSET_NIVEL_1": {Type: CourseWSET, Level: 1},
		"WSET_NIVEL_2": {Type: CourseWSET, Level: 2},
		"WSET_NIVEL_3": {Type: CourseWSET, Level: 3},
		"TALLER":       {Type: CourseTaller},
		"CATA":         {Type: CourseCata},
		"CURSO":        {Type: CourseCurso},
	}

	courseStatuses = map[string]CourseStatus{
		"Anunciado":    CourseAnnounced,
		"Inscribiendo": CourseEnrolling,
		"Finalizado":   CourseFinished,
	}

	// keys are lowercased with spaces, dashes and underscores removed
	paymentMethods = map[string]PaymentMethod{
		"mercadopago":   PaymentMercadoPago,
		"transferencia": PaymentBankTransfer,
		"banktransfer":  PaymentBankTransfer,
		"paypal":        PaymentPayPal,
		"efectivo":      PaymentCash,
		"cash":          PaymentCash,
	}

	orderRanks = map[OrderStatus]int{
		OrderPaid:           3,
		OrderCreated:        2,
		OrderPendingPayment: 2,
		OrderRejected:       1,
		OrderRefunded:       1,
		OrderCancelled:      1,
	}

	enrollmentRanks = map[EnrollmentStatus]int{
		EnrollmentConfirmed: 3,
		EnrollmentPending:   2,
		EnrollmentCancelled: 1,
	}
)

// SourceOrderStatuses lists every order status the v3 store knows.
var SourceOrderStatuses = []string{"Paid", "Created", "Pending", "PaymentSent", "Rejected", "Refunded", "Cancelled"}

func LookupOrderStatus(src string) (OrderStatus, bool) {
	st, ok := orderStatuses[strings.TrimSpace(src)]
	if !ok {
		return DefaultOrderStatus, false
	}
	return st, true
}

// LookupEnrollmentStatus derives the enrollment status from a v3 order status.
func LookupEnrollmentStatus(orderStatus string) (EnrollmentStatus, bool) {
	st, ok := enrollmentStatuses[strings.TrimSpace(orderStatus)]
	if !ok {
		return DefaultEnrollmentStatus, false
	}
	return st, true
}

func LookupCourseKind(code string) (CourseKind, bool) {
	kind, ok := courseKinds[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return CourseKind{Type: DefaultCourseType}, false
	}
	return kind, true
}

func LookupCourseStatus(src string) (CourseStatus, bool) {
	st, ok := courseStatuses[strings.TrimSpace(src)]
	if !ok {
		return DefaultCourseStatus, false
	}
	return st, true
}

func LookupPaymentMethod(src string) (PaymentMethod, bool) {
	key := strings.ToLower(src)
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	pm, ok := paymentMethods[key]
	if !ok {
		return DefaultPaymentMethod, false
	}
	return pm, true
}

// Rank orders order statuses: paid > created, pending_payment > rejected, refunded, cancelled.
// Unknown statuses rank 0.
func (s OrderStatus) Rank() int { return orderRanks[s] }

// Rank orders enrollment statuses: confirmed > pending > cancelled. Unknown statuses rank 0.
func (s EnrollmentStatus) Rank() int { return enrollmentRanks[s] }

// Ranked is a status with a precedence rank.
type Ranked interface {
	Rank() int
}

// Supersedes reports whether an incoming status observed at incomingAt should replace the existing
// one observed at existingAt: strictly higher rank, or equal rank and strictly later.
func Supersedes(incoming Ranked, incomingAt time.Time, existing Ranked, existingAt time.Time) bool {
	in, ex := incoming.Rank(), existing.Rank()
	if in != ex {
		return in > ex
	}
	return incomingAt.After(existingAt)
}
