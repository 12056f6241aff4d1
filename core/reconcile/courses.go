package reconcile

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/source"
)

// Courses inserts every v3 course whose slug is not in the destination yet. Existing courses are
// never rewritten.
func (e *Engine) Courses(ctx context.Context) (Report, error) {
	r := NewReport(KindCourse)
	rows, err := e.src.Courses(ctx)
	if err != nil {
		return r, errors.Wrap(err, "reading source courses")
	}
	oldestFirst(rows, func(c source.Course) time.Time { return c.CreatedAt })

	for _, src := range rows {
		c := e.norm.Course(src)
		if c.Slug == "" {
			e.skip(&r, ReasonMissingSlug, src.ID)
			continue
		}

		_, err := e.dst.FindCourseBySlug(ctx, c.Slug)
		found, err := probe(err)
		if err != nil {
			e.fail(&r, src.ID, err)
			continue
		}
		if found {
			e.skip(&r, ReasonAlreadyMigrated, src.ID, "slug", c.Slug)
			continue
		}

		now := e.now()
		c.ID = newIDFunc()
		c.CreatedAt = core.Timestamp(src.CreatedAt)
		c.UpdatedAt = now
		if err := e.write(c, func() error { return e.dst.InsertCourse(ctx, c) }); err != nil {
			e.fail(&r, src.ID, errors.Wrapf(err, "inserting course %q", c.Slug))
			continue
		}
		r.Created++
	}

	r.Log(e.log)
	return r, nil
}
