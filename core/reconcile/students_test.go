package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/tintaacademy/migrator/core/dest"
	inmemdb "github.com/tintaacademy/migrator/storage/database/inmem"
	testutil "github.com/tintaacademy/migrator/tests"
)

func TestEngine_Students(t *testing.T) {
	ctx := context.Background()
	withPhone := testutil.SourceStudent("s1", " Ana@Example.com", testutil.At(0))
	withPhone.Phone = null.StringFrom(" 099 123 456 ")
	blankName := testutil.SourceStudent("s5", "luis@example.com", testutil.At(4*time.Hour))
	blankName.FirstName = null.StringFrom("  ")

	src := inmemdb.NewSource().AddStudents(
		withPhone,
		testutil.SourceStudent("s2", "ana@example.com", testutil.At(time.Hour)), // same person, different case
		testutil.SourceStudent("s3", "", testutil.At(2*time.Hour)),
		testutil.SourceStudent("s4", "staff@example.com", testutil.At(3*time.Hour)),
		blankName,
	)
	f := newFixture(t, src)

	// a v4 user that has no student profile yet
	require.NoError(t, f.dst.InsertUser(ctx, dest.User{ID: "u-staff", Email: "Staff@example.com", Role: "admin", CreatedAt: testutil.At(-time.Hour)}))

	r, err := f.eng.Students(ctx)
	require.NoError(t, err)
	assertCounts(t, r, 2, 1, 2, 0)
	assert.Equal(t, 1, r.SkipReasons[ReasonMissingEmail])
	assert.Equal(t, 1, r.SkipReasons[ReasonAlreadyMigrated])

	users := f.dst.Users()
	require.Len(t, users, 3)
	ana := users[1]
	assert.Equal(t, "ana@example.com", ana.Email)
	assert.Equal(t, dest.RoleStudent, ana.Role)
	assert.Equal(t, null.StringFrom("Ana"), ana.FirstName)

	students := f.dst.Students()
	require.Len(t, students, 3)
	byUser := map[string]dest.Student{}
	for _, s := range students {
		byUser[s.UserID] = s
	}
	assert.Equal(t, null.StringFrom("099 123 456"), byUser[ana.ID].Phone)
	assert.Contains(t, byUser, "u-staff", "existing user got a profile")

	for _, u := range users {
		if u.Email == "luis@example.com" {
			assert.False(t, u.FirstName.Valid, "blank names are stored as NULL")
		}
	}

	t.Run("second run changes nothing", func(t *testing.T) {
		r, err := f.eng.Students(ctx)
		require.NoError(t, err)
		assertCounts(t, r, 0, 0, 5, 0)
		assert.Len(t, f.dst.Users(), 3)
		assert.Len(t, f.dst.Students(), 3)
	})
}

func TestEngine_Students_invalidEmail(t *testing.T) {
	src := inmemdb.NewSource().AddStudents(testutil.SourceStudent("s1", "not-an-email", testutil.At(0)))
	f := newFixture(t, src)

	r, err := f.eng.Students(context.Background())
	require.NoError(t, err)
	assertCounts(t, r, 0, 0, 0, 1)
	assert.Empty(t, f.dst.Users())
}

// flakyProfileDest fails the first profile insert.
type flakyProfileDest struct {
	*inmemdb.Dest
	failed bool
}

func (d *flakyProfileDest) InsertStudent(ctx context.Context, s dest.Student) error {
	if !d.failed {
		d.failed = true
		return errors.New("connection reset by peer")
	}
	return d.Dest.InsertStudent(ctx, s)
}

func TestEngine_Students_failedProfileIsAddedOnRerun(t *testing.T) {
	ctx := context.Background()
	src := inmemdb.NewSource().AddStudents(testutil.SourceStudent("s1", "ana@example.com", testutil.At(0)))
	dst := inmemdb.NewDest()
	eng, _ := setup(t, src, &flakyProfileDest{Dest: dst})

	r, err := eng.Students(ctx)
	require.NoError(t, err)
	assertCounts(t, r, 0, 0, 0, 1)
	require.Len(t, dst.Users(), 1)
	assert.Empty(t, dst.Students())

	r, err = eng.Students(ctx)
	require.NoError(t, err)
	assertCounts(t, r, 0, 1, 0, 0)
	require.Len(t, dst.Students(), 1)
	assert.Equal(t, dst.Users()[0].ID, dst.Students()[0].UserID)

	r, err = eng.Students(ctx)
	require.NoError(t, err)
	assertCounts(t, r, 0, 0, 1, 0)
}
