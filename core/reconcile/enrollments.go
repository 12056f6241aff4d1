package reconcile

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/dest"
	"github.com/tintaacademy/migrator/core/identity"
	"github.com/tintaacademy/migrator/core/source"
	"github.com/tintaacademy/migrator/core/status"
)

// Enrollments derives one enrollment per (student, course) from the v3 orders. When several orders
// share a pair, the highest ranked status wins and ties go to the most recent order.
func (e *Engine) Enrollments(ctx context.Context, courses *identity.Map, students *identity.StudentMap) (Report, error) {
	r := NewReport(KindEnrollment)
	rows, err := e.src.Orders(ctx)
	if err != nil {
		return r, errors.Wrap(err, "reading source orders")
	}
	oldestFirst(rows, func(o source.Order) time.Time { return o.CreatedAt })

	for _, src := range rows {
		courseID, ok := courses.Lookup(src.CourseID)
		if !ok {
			e.skip(&r, ReasonCourseUnresolved, src.ID, "course_id", src.CourseID)
			continue
		}
		ref, ok := students.Lookup(src.StudentID)
		if !ok {
			e.skip(&r, ReasonStudentUnresolved, src.ID, "student_id", src.StudentID)
			continue
		}

		incoming := e.tr.EnrollmentStatus(src.Status)
		at := core.Timestamp(src.CreatedAt)

		existing, err := e.dst.FindEnrollment(ctx, ref.StudentID, courseID)
		found, err := probe(err)
		if err != nil {
			e.fail(&r, src.ID, err)
			continue
		}

		if !found {
			enr := dest.Enrollment{
				ID:         newIDFunc(),
				StudentID:  ref.StudentID,
				CourseID:   courseID,
				Status:     incoming,
				EnrolledAt: at,
				CreatedAt:  at,
				UpdatedAt:  e.now(),
			}
			if err := e.write(enr, func() error { return e.dst.InsertEnrollment(ctx, enr) }); err != nil {
				e.fail(&r, src.ID, errors.Wrap(err, "inserting enrollment"))
				continue
			}
			r.Created++
			continue
		}

		if !status.Supersedes(incoming, at, existing.Status, core.Timestamp(existing.EnrolledAt)) {
			e.skip(&r, ReasonSuperseded, src.ID, "status", incoming, "existing_status", existing.Status)
			continue
		}

		existing.Status = incoming
		existing.EnrolledAt = at
		existing.UpdatedAt = e.now()
		if err := e.write(existing, func() error { return e.dst.UpdateEnrollmentStatus(ctx, existing) }); err != nil {
			e.fail(&r, src.ID, errors.Wrap(err, "updating enrollment"))
			continue
		}
		r.Updated++
	}

	r.Log(e.log)
	return r, nil
}
