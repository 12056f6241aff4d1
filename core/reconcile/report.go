package reconcile

import (
	"sort"

	"github.com/tintaacademy/migrator/core"
)

// Entity kinds
const (
	KindCourse        = "course"
	KindStudent       = "student"
	KindEnrollment    = "enrollment"
	KindOrder         = "order"
	KindBankAccount   = "bank_account"
	KindCoupon        = "coupon"
	KindEnrolledCount = "enrolled_count"
)

// Skip reasons
const (
	ReasonAlreadyMigrated   = "already_migrated"
	ReasonSuperseded        = "equal_or_better_state"
	ReasonCourseUnresolved  = "course_unresolved"
	ReasonStudentUnresolved = "student_unresolved"
	ReasonMissingSlug       = "missing_slug"
	ReasonMissingEmail      = "missing_email"
	ReasonMissingCode       = "missing_code"
)

// Report is the outcome of one stage over one entity kind.
type Report struct {
	Kind        string
	Created     int
	Updated     int
	Skipped     int
	Errors      int
	SkipReasons map[string]int
	Absent      bool // optional source table does not exist
}

func NewReport(kind string) Report {
	return Report{Kind: kind, SkipReasons: make(map[string]int)}
}

func (r *Report) skip(reason string) {
	r.Skipped++
	r.SkipReasons[reason]++
}

// Processed is the number of source records the stage looked at.
func (r Report) Processed() int {
	return r.Created + r.Updated + r.Skipped + r.Errors
}

// Clean reports a run with no write failures.
func (r Report) Clean() bool {
	return r.Errors == 0
}

// Log emits the stage summary as one structured event.
func (r Report) Log(log core.Logger) {
	kv := []interface{}{
		"kind", r.Kind,
		"created", r.Created,
		"updated", r.Updated,
		"skipped", r.Skipped,
		"errors", r.Errors,
	}
	reasons := make([]string, 0, len(r.SkipReasons))
	for reason := range r.SkipReasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		kv = append(kv, "skipped_"+reason, r.SkipReasons[reason])
	}
	if r.Absent {
		kv = append(kv, "absent", true)
	}

	if r.Errors > 0 {
		log.Warn("stage finished", kv...)
		return
	}
	log.Info("stage finished", kv...)
}
