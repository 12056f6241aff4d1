// Package counts rebuilds the denormalized Course.enrolledCount column from confirmed enrollments.
package counts

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/dest"
	"github.com/tintaacademy/migrator/core/reconcile"
)

type Recalculator struct {
	repo dest.CountRepository
	log  core.Logger
}

func NewRecalculator(repo dest.CountRepository, log core.Logger) *Recalculator {
	return &Recalculator{repo: repo, log: log}
}

// Recalculate zeroes every course's count and then writes the confirmed-enrollment total per course,
// in one transaction. The result does not depend on previous counts, so it can run any number of times.
//
// Updated is the number of courses left with a non-zero count; Skipped is the number left at zero.
func (rc *Recalculator) Recalculate(ctx context.Context) (reconcile.Report, error) {
	r := reconcile.NewReport(reconcile.KindEnrolledCount)

	err := rc.repo.InTx(ctx, func(tx dest.CountRepository) error {
		total, err := tx.ResetEnrolledCounts(ctx)
		if err != nil {
			return errors.Wrap(err, "resetting enrolled counts")
		}

		counts, err := tx.ConfirmedEnrollmentCounts(ctx)
		if err != nil {
			return errors.Wrap(err, "counting confirmed enrollments")
		}
		updated := 0
		for _, c := range counts {
			if c.Count <= 0 {
				continue
			}
			if err := tx.SetEnrolledCount(ctx, c.CourseID, c.Count); err != nil {
				return errors.Wrapf(err, "setting enrolled count for course %s", c.CourseID)
			}
			updated++
		}

		r.Updated = updated
		if zero := total - updated; zero > 0 {
			r.Skipped = zero
			r.SkipReasons["no_confirmed_enrollments"] = zero
		}
		return nil
	})
	if err != nil {
		r.Errors++
		rc.log.Error("enrolled count recalculation rolled back", "error", err)
		return r, err
	}

	r.Log(rc.log)
	return r, nil
}
