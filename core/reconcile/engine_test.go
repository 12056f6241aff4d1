package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tintaacademy/migrator/core/dest"
	"github.com/tintaacademy/migrator/core/identity"
	inmemdb "github.com/tintaacademy/migrator/storage/database/inmem"
	testutil "github.com/tintaacademy/migrator/tests"
)

// runAt is the wall clock seen by the engine in tests.
var runAt = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	src  *inmemdb.Source
	dst  *inmemdb.Dest
	eng  *Engine
	logs *observer.ObservedLogs
}

// setup pins the clock and the id generator, then builds an engine over the given stores.
func setup(t *testing.T, src *inmemdb.Source, dst dest.Repository) (*Engine, *observer.ObservedLogs) {
	t.Helper()

	origNow, origID := nowFunc, newIDFunc
	t.Cleanup(func() { nowFunc, newIDFunc = origNow, origID })
	nowFunc = func() time.Time { return runAt }
	seq := 0
	newIDFunc = func() string {
		seq++
		return fmt.Sprintf("id-%04d", seq)
	}

	logger, logs := testutil.NewLogger()
	return NewEngine(src, dst, logger, Options{OrderNumberPrefix: "TA"}), logs
}

func newFixture(t *testing.T, src *inmemdb.Source) *fixture {
	t.Helper()
	dst := inmemdb.NewDest()
	eng, logs := setup(t, src, dst)
	return &fixture{src: src, dst: dst, eng: eng, logs: logs}
}

func maps(courses map[string]string, students map[string]identity.StudentRef) (*identity.Map, *identity.StudentMap) {
	cm := identity.NewMap(identity.KindCourse)
	for src, dst := range courses {
		cm.Set(src, dst)
	}
	sm := identity.NewStudentMap()
	for src, ref := range students {
		sm.Set(src, ref)
	}
	return cm, sm
}

func assertCounts(t *testing.T, r Report, created, updated, skipped, errs int) {
	t.Helper()
	assert.Equal(t, created, r.Created, "created")
	assert.Equal(t, updated, r.Updated, "updated")
	assert.Equal(t, skipped, r.Skipped, "skipped")
	assert.Equal(t, errs, r.Errors, "errors")
}

func TestReport(t *testing.T) {
	r := NewReport(KindOrder)
	r.Created = 2
	r.skip(ReasonCourseUnresolved)
	r.skip(ReasonCourseUnresolved)
	r.skip(ReasonAlreadyMigrated)
	r.Errors = 1

	assert.Equal(t, 6, r.Processed())
	assert.False(t, r.Clean())
	assert.Equal(t, map[string]int{ReasonCourseUnresolved: 2, ReasonAlreadyMigrated: 1}, r.SkipReasons)

	logger, logs := testutil.NewLogger()
	r.Log(logger)
	entries := logs.FilterMessage("stage finished").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, KindOrder, fields["kind"])
		assert.EqualValues(t, 2, fields["created"])
		assert.EqualValues(t, 2, fields["skipped_"+ReasonCourseUnresolved])
	}
}
