package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	logsvc "github.com/tintaacademy/migrator/services/logger"
)

func TestLookupOrderStatus(t *testing.T) {
	tests := []struct {
		src    string
		want   OrderStatus
		wantOk bool
	}{
		{src: "Paid", want: OrderPaid, wantOk: true},
		{src: "Created", want: OrderCreated, wantOk: true},
		{src: "Pending", want: OrderPendingPayment, wantOk: true},
		{src: "PaymentSent", want: OrderPendingPayment, wantOk: true},
		{src: "Rejected", want: OrderRejected, wantOk: true},
		{src: "Refunded", want: OrderRefunded, wantOk: true},
		{src: "Cancelled", want: OrderCancelled, wantOk: true},
		{src: " Paid ", want: OrderPaid, wantOk: true},
		{src: "Weird", want: DefaultOrderStatus},
		{src: "", want: DefaultOrderStatus},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, ok := LookupOrderStatus(tt.src)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOk, ok)
		})
	}
}

func TestLookupEnrollmentStatus(t *testing.T) {
	tests := []struct {
		src  string
		want EnrollmentStatus
	}{
		{src: "Paid", want: EnrollmentConfirmed},
		{src: "Created", want: EnrollmentPending},
		{src: "Pending", want: EnrollmentPending},
		{src: "PaymentSent", want: EnrollmentPending},
		{src: "Rejected", want: EnrollmentCancelled},
		{src: "Refunded", want: EnrollmentCancelled},
		{src: "Cancelled", want: EnrollmentCancelled},
		{src: "Weird", want: EnrollmentPending},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, _ := LookupEnrollmentStatus(tt.src)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslationIsTotal(t *testing.T) {
	for _, src := range append(SourceOrderStatuses, "", "paid", "???") {
		order, _ := LookupOrderStatus(src)
		enrollment, _ := LookupEnrollmentStatus(src)
		assert.NotZero(t, order.Rank(), "order status %q", src)
		assert.NotZero(t, enrollment.Rank(), "enrollment status %q", src)
	}
}

func TestLookupCourseKind(t *testing.T) {
	tests := []struct {
		code   string
		want   CourseKind
		wantOk bool
	}{
		{code: "WSET_NIVEL_1", want: CourseKind{Type: CourseWSET, Level: 1}, wantOk: true},
		{code: "wset_nivel_2", want: CourseKind{Type: CourseWSET, Level: 2}, wantOk: true},
		{code: "WSET_NIVEL_3", want: CourseKind{Type: CourseWSET, Level: 3}, wantOk: true},
		{code: "TALLER", want: CourseKind{Type: CourseTaller}, wantOk: true},
		{code: "CATA", want: CourseKind{Type: CourseCata}, wantOk: true},
		{code: "CURSO", want: CourseKind{Type: CourseCurso}, wantOk: true},
		{code: "MASTERCLASS", want: CourseKind{Type: CourseCurso}},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := LookupCourseKind(tt.code)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOk, ok)
		})
	}
}

func TestLookupCourseStatus(t *testing.T) {
	tests := []struct {
		src  string
		want CourseStatus
	}{
		{src: "Anunciado", want: CourseAnnounced},
		{src: "Inscribiendo", want: CourseEnrolling},
		{src: "Finalizado", want: CourseFinished},
		{src: "Archivado", want: CourseAnnounced},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, _ := LookupCourseStatus(tt.src)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupPaymentMethod(t *testing.T) {
	tests := []struct {
		src  string
		want PaymentMethod
	}{
		{src: "MercadoPago", want: PaymentMercadoPago},
		{src: "mercado-pago", want: PaymentMercadoPago},
		{src: "Transferencia", want: PaymentBankTransfer},
		{src: "bank_transfer", want: PaymentBankTransfer},
		{src: "PayPal", want: PaymentPayPal},
		{src: "Efectivo", want: PaymentCash},
		{src: "", want: DefaultPaymentMethod},
		{src: "bitcoin", want: DefaultPaymentMethod},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, _ := LookupPaymentMethod(tt.src)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRanks(t *testing.T) {
	assert.Greater(t, EnrollmentConfirmed.Rank(), EnrollmentPending.Rank())
	assert.Greater(t, EnrollmentPending.Rank(), EnrollmentCancelled.Rank())

	assert.Greater(t, OrderPaid.Rank(), OrderCreated.Rank())
	assert.Equal(t, OrderCreated.Rank(), OrderPendingPayment.Rank())
	assert.Greater(t, OrderPendingPayment.Rank(), OrderRejected.Rank())
	assert.Equal(t, OrderRejected.Rank(), OrderRefunded.Rank())
	assert.Equal(t, OrderRefunded.Rank(), OrderCancelled.Rank())
}

func TestSupersedes(t *testing.T) {
	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	tests := []struct {
		name       string
		incoming   Ranked
		incomingAt time.Time
		existing   Ranked
		existingAt time.Time
		want       bool
	}{
		{"higher rank wins even if older", EnrollmentConfirmed, earlier, EnrollmentPending, later, true},
		{"lower rank loses even if newer", EnrollmentCancelled, later, EnrollmentConfirmed, earlier, false},
		{"equal rank, newer wins", EnrollmentPending, later, EnrollmentPending, earlier, true},
		{"equal rank, older loses", EnrollmentPending, earlier, EnrollmentPending, later, false},
		{"equal rank, same time keeps existing", OrderPaid, earlier, OrderPaid, earlier, false},
		{"created vs pending_payment ties on time", OrderPendingPayment, later, OrderCreated, earlier, true},
		{"refunded does not beat cancelled at same time", OrderRefunded, earlier, OrderCancelled, earlier, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Supersedes(tt.incoming, tt.incomingAt, tt.existing, tt.existingAt)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Applying a set of statuses in any order must end on the same winner.
func TestSupersedesIsOrderIndependent(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	type obs struct {
		st EnrollmentStatus
		at time.Time
	}
	set := []obs{
		{EnrollmentPending, base},
		{EnrollmentConfirmed, base.Add(time.Hour)},
		{EnrollmentCancelled, base.Add(2 * time.Hour)},
		{EnrollmentPending, base.Add(3 * time.Hour)},
	}
	apply := func(order []int) obs {
		cur := set[order[0]]
		for _, i := range order[1:] {
			if Supersedes(set[i].st, set[i].at, cur.st, cur.at) {
				cur = set[i]
			}
		}
		return cur
	}

	want := apply([]int{0, 1, 2, 3})
	for _, order := range [][]int{{3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}} {
		assert.Equal(t, want, apply(order), "order %v", order)
	}
	assert.Equal(t, EnrollmentConfirmed, want.st)
}

func TestTranslator_warnsOnDefaults(t *testing.T) {
	zcore, logs := observer.New(zapcore.DebugLevel)
	tr := NewTranslator(logsvc.NewZapLogger(zap.New(zcore)))

	assert.Equal(t, OrderPaid, tr.OrderStatus("Paid"))
	assert.Equal(t, CourseKind{Type: CourseCurso}, tr.CourseKind("MASTERCLASS"))
	assert.Equal(t, DefaultPaymentMethod, tr.PaymentMethod(""))
	assert.Equal(t, DefaultPaymentMethod, tr.PaymentMethod("crypto"))

	warnings := logs.FilterMessage("unknown source value, using default").All()
	if assert.Len(t, warnings, 2) {
		assert.Equal(t, "course_type", warnings[0].ContextMap()["vocabulary"])
		assert.Equal(t, "MASTERCLASS", warnings[0].ContextMap()["value"])
		assert.Equal(t, "payment_method", warnings[1].ContextMap()["vocabulary"])
	}
}
