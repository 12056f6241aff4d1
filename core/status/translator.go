package status

import "github.com/tintaacademy/migrator/core"

// Translator wraps the Lookup* functions and logs a warning whenever input falls back to a default.
// It never returns an error: one malformed row must not abort a batch.
type Translator struct {
	log core.Logger
}

func NewTranslator(log core.Logger) *Translator {
	return &Translator{log: log}
}

func (tr *Translator) warn(kind, value string, fallback interface{}) {
	tr.log.Warn("unknown source value, using default", "vocabulary", kind, "value", value, "default", fallback)
}

func (tr *Translator) OrderStatus(src string) OrderStatus {
	st, ok := LookupOrderStatus(src)
	if !ok {
		tr.warn("order_status", src, st)
	}
	return st
}

func (tr *Translator) EnrollmentStatus(orderStatus string) EnrollmentStatus {
	st, ok := LookupEnrollmentStatus(orderStatus)
	if !ok {
		tr.warn("enrollment_status", orderStatus, st)
	}
	return st
}

func (tr *Translator) CourseKind(code string) CourseKind {
	kind, ok := LookupCourseKind(code)
	if !ok {
		tr.warn("course_type", code, kind.Type)
	}
	return kind
}

func (tr *Translator) CourseStatus(src string) CourseStatus {
	st, ok := LookupCourseStatus(src)
	if !ok {
		tr.warn("course_status", src, st)
	}
	return st
}

// PaymentMethod maps an empty method to the default without warning: v3 left it blank for manual orders.
func (tr *Translator) PaymentMethod(src string) PaymentMethod {
	pm, ok := LookupPaymentMethod(src)
	if !ok && core.CleanString(src) != "" {
		tr.warn("payment_method", src, pm)
	}
	return pm
}
