// Package pipeline runs the migration stages in dependency order. Each stage can also be run on its
// own; stages that need the student map read it from the mapping directory.
package pipeline

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/counts"
	"github.com/tintaacademy/migrator/core/identity"
	"github.com/tintaacademy/migrator/core/reconcile"
)

// Stage names, as accepted on the command line.
const (
	StageCourses      = "courses"
	StageStudents     = "students"
	StageEnrollments  = "enrollments"
	StageOrders       = "orders"
	StageCheckoutData = "checkout-data"
	StageCounts       = "counts"
)

// Stages in run order.
var Stages = []string{StageCourses, StageStudents, StageEnrollments, StageOrders, StageCheckoutData, StageCounts}

// PrerequisiteError halts a run: a stage needs an identity map that came out empty although the source
// had keys to map.
type PrerequisiteError struct {
	Stage     string
	Kind      string
	Unmatched int
}

func (err *PrerequisiteError) Error() string {
	return fmt.Sprintf("%s stage halted: no %s could be mapped (%d unmatched)", err.Stage, err.Kind, err.Unmatched)
}

// Summary collects stage reports in run order.
type Summary struct {
	Reports []reconcile.Report
}

func (s *Summary) add(reports ...reconcile.Report) {
	s.Reports = append(s.Reports, reports...)
}

// Errors is the total of per-record errors across stages.
func (s Summary) Errors() int {
	n := 0
	for _, r := range s.Reports {
		n += r.Errors
	}
	return n
}

type Pipeline struct {
	engine     *reconcile.Engine
	mapper     *identity.Mapper
	counts     *counts.Recalculator
	mappingDir string
	log        core.Logger
}

func New(engine *reconcile.Engine, mapper *identity.Mapper, rc *counts.Recalculator, mappingDir string, log core.Logger) *Pipeline {
	return &Pipeline{engine: engine, mapper: mapper, counts: rc, mappingDir: mappingDir, log: log}
}

// Run executes every stage. Per-record errors never halt it; only a failed stage read or a missing
// prerequisite map does.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	p.log.Info("migration started", "stages", len(Stages))

	r, err := p.engine.Courses(ctx)
	sum.add(r)
	if err != nil {
		return sum, err
	}
	courses, err := p.courseMap(ctx, StageEnrollments)
	if err != nil {
		return sum, err
	}

	r, err = p.engine.Students(ctx)
	sum.add(r)
	if err != nil {
		return sum, err
	}
	students, err := p.buildStudentMap(ctx)
	if err != nil {
		return sum, err
	}
	if err = requireStudents(students, StageEnrollments); err != nil {
		return sum, err
	}

	if r, err = p.engine.Enrollments(ctx, courses, students); err != nil {
		sum.add(r)
		return sum, err
	}
	sum.add(r)

	if r, err = p.engine.Orders(ctx, courses, students); err != nil {
		sum.add(r)
		return sum, err
	}
	sum.add(r)

	reports, err := p.engine.CheckoutData(ctx, courses)
	sum.add(reports...)
	if err != nil {
		return sum, err
	}

	r, err = p.counts.Recalculate(ctx)
	sum.add(r)
	if err != nil {
		return sum, err
	}

	p.log.Info("migration finished", "stages", len(sum.Reports), "errors", sum.Errors())
	return sum, nil
}

// RunStage executes a single stage by name.
func (p *Pipeline) RunStage(ctx context.Context, stage string) (Summary, error) {
	var sum Summary
	switch stage {
	case StageCourses:
		r, err := p.engine.Courses(ctx)
		sum.add(r)
		return sum, err

	case StageStudents:
		r, err := p.engine.Students(ctx)
		sum.add(r)
		if err != nil {
			return sum, err
		}
		_, err = p.buildStudentMap(ctx)
		return sum, err

	case StageEnrollments, StageOrders:
		courses, students, err := p.loadMaps(ctx, stage)
		if err != nil {
			return sum, err
		}
		run := p.engine.Enrollments
		if stage == StageOrders {
			run = p.engine.Orders
		}
		r, err := run(ctx, courses, students)
		sum.add(r)
		return sum, err

	case StageCheckoutData:
		courses, err := p.mapper.Courses(ctx)
		if err != nil {
			return sum, err
		}
		reports, err := p.engine.CheckoutData(ctx, courses)
		sum.add(reports...)
		return sum, err

	case StageCounts:
		r, err := p.counts.Recalculate(ctx)
		sum.add(r)
		return sum, err
	}
	return sum, errors.Errorf("unknown stage %q", stage)
}

func (p *Pipeline) courseMap(ctx context.Context, stage string) (*identity.Map, error) {
	courses, err := p.mapper.Courses(ctx)
	if err != nil {
		return nil, err
	}
	if courses.Len() == 0 && len(courses.Unmatched()) > 0 {
		return nil, &PrerequisiteError{Stage: stage, Kind: identity.KindCourse, Unmatched: len(courses.Unmatched())}
	}
	return courses, nil
}

// buildStudentMap maps students against the destination and saves the result for later stages.
func (p *Pipeline) buildStudentMap(ctx context.Context) (*identity.StudentMap, error) {
	students, err := p.mapper.Students(ctx)
	if err != nil {
		return nil, err
	}
	if err = identity.SaveStudentMap(p.mappingDir, students); err != nil {
		return nil, err
	}
	p.log.Info("student mapping saved", "path", identity.StudentMapPath(p.mappingDir), "entries", students.Len())
	return students, nil
}

// loadMaps rebuilds the course map from the live stores and reads the saved student map.
func (p *Pipeline) loadMaps(ctx context.Context, stage string) (*identity.Map, *identity.StudentMap, error) {
	students, err := identity.LoadStudentMap(p.mappingDir)
	if err != nil {
		return nil, nil, err
	}
	if err = requireStudents(students, stage); err != nil {
		return nil, nil, err
	}
	courses, err := p.courseMap(ctx, stage)
	if err != nil {
		return nil, nil, err
	}
	return courses, students, nil
}

func requireStudents(students *identity.StudentMap, stage string) error {
	if students.Len() == 0 && len(students.Unmatched()) > 0 {
		return &PrerequisiteError{Stage: stage, Kind: identity.KindStudent, Unmatched: len(students.Unmatched())}
	}
	return nil
}

func IsPrerequisiteError(err error) bool {
	_, ok := errors.Cause(err).(*PrerequisiteError)
	return ok
}
