package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tintaacademy/migrator/core/dest"
	"github.com/tintaacademy/migrator/core/status"
	inmemdb "github.com/tintaacademy/migrator/storage/database/inmem"
	testutil "github.com/tintaacademy/migrator/tests"
)

func TestEngine_Courses(t *testing.T) {
	ctx := context.Background()
	src := inmemdb.NewSource().AddCourses(
		testutil.SourceCourse("c2", "cata-malbec", testutil.At(time.Hour)),
		testutil.SourceCourse("c1", "wset-2-marzo", testutil.At(0)),
		testutil.SourceCourse("c3", "  ", testutil.At(2*time.Hour)),
	)
	f := newFixture(t, src)

	// already in v4
	require.NoError(t, f.dst.InsertCourse(ctx, dest.Course{ID: "v4-x", Slug: "cata-malbec", Title: "Kept", CreatedAt: testutil.At(-time.Hour)}))

	r, err := f.eng.Courses(ctx)
	require.NoError(t, err)
	assertCounts(t, r, 1, 0, 2, 0)
	assert.Equal(t, 1, r.SkipReasons[ReasonAlreadyMigrated])
	assert.Equal(t, 1, r.SkipReasons[ReasonMissingSlug])

	courses := f.dst.Courses()
	require.Len(t, courses, 2)
	assert.Equal(t, "Kept", courses[0].Title, "existing course is never rewritten")

	created := courses[1]
	assert.Equal(t, "id-0001", created.ID)
	assert.Equal(t, "wset-2-marzo", created.Slug)
	assert.Equal(t, status.CourseWSET, created.Type)
	assert.Equal(t, testutil.At(0), created.CreatedAt)
	assert.Equal(t, runAt, created.UpdatedAt)
	assert.Zero(t, created.EnrolledCount)

	t.Run("second run changes nothing", func(t *testing.T) {
		r, err := f.eng.Courses(ctx)
		require.NoError(t, err)
		assertCounts(t, r, 0, 0, 3, 0)
		assert.Len(t, f.dst.Courses(), 2)
	})
}

func TestEngine_Courses_slugsAreCopiedVerbatim(t *testing.T) {
	ctx := context.Background()
	slugs := []string{"WSET_NIVEL_1", "Cata-Malbec", "curso-año", "ok-slug"}
	src := inmemdb.NewSource()
	for i, slug := range slugs {
		src.AddCourses(testutil.SourceCourse(fmt.Sprintf("c%d", i), slug, testutil.At(time.Duration(i)*time.Hour)))
	}
	f := newFixture(t, src)

	r, err := f.eng.Courses(ctx)
	require.NoError(t, err)
	assertCounts(t, r, 4, 0, 0, 0)

	for _, slug := range slugs {
		_, err := f.dst.FindCourseBySlug(ctx, slug)
		assert.NoError(t, err, slug)
	}

	r, err = f.eng.Courses(ctx)
	require.NoError(t, err)
	assertCounts(t, r, 0, 0, 4, 0)
}

func TestEngine_Courses_invalidRowIsAnError(t *testing.T) {
	untitled := testutil.SourceCourse("c1", "sin-titulo", testutil.At(0))
	untitled.Title = "   "
	src := inmemdb.NewSource().AddCourses(
		untitled,
		testutil.SourceCourse("c2", "ok-slug", testutil.At(time.Hour)),
	)
	f := newFixture(t, src)

	r, err := f.eng.Courses(context.Background())
	require.NoError(t, err)
	assertCounts(t, r, 1, 0, 0, 1)

	failed := f.logs.FilterMessage("record failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "c1", failed[0].ContextMap()["source_id"])
}

type failingCourseDest struct {
	*inmemdb.Dest
	slug string
}

func (d failingCourseDest) InsertCourse(ctx context.Context, c dest.Course) error {
	if c.Slug == d.slug {
		return errors.New("connection reset by peer")
	}
	return d.Dest.InsertCourse(ctx, c)
}

func TestEngine_Courses_writeFailureDoesNotStopTheStage(t *testing.T) {
	src := inmemdb.NewSource().AddCourses(
		testutil.SourceCourse("c1", "first", testutil.At(0)),
		testutil.SourceCourse("c2", "broken", testutil.At(time.Hour)),
		testutil.SourceCourse("c3", "third", testutil.At(2*time.Hour)),
	)
	dst := inmemdb.NewDest()
	eng, _ := setup(t, src, failingCourseDest{Dest: dst, slug: "broken"})

	r, err := eng.Courses(context.Background())
	require.NoError(t, err)
	assertCounts(t, r, 2, 0, 0, 1)
	assert.Len(t, dst.Courses(), 2)
}
