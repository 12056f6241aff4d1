package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/dest"
	"github.com/tintaacademy/migrator/core/identity"
	"github.com/tintaacademy/migrator/core/source"
	inmemdb "github.com/tintaacademy/migrator/storage/database/inmem"
	testutil "github.com/tintaacademy/migrator/tests"
)

var (
	srcRepo *inmemdb.Source
	dstRepo *inmemdb.Dest
)

// testContainer wires in-memory stores in place of Postgres.
func testContainer(_ context.Context, conf *core.Config, log core.Logger) *container {
	c := newBaseContainer(conf, log)
	must(c.Provide(func() source.Repository { return srcRepo }))
	must(c.Provide(func() dest.Repository { return dstRepo }))
	must(c.Provide(func() *sql.DB { return nil }))
	return c
}

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	srcRepo = inmemdb.NewSource().
		AddCourses(testutil.SourceCourse("c1", "wset-2", testutil.At(0))).
		AddStudents(testutil.SourceStudent("s1", "ana@example.com", testutil.At(0))).
		AddOrders(testutil.SourceOrder("o1", "s1", "c1", "Paid", 400, testutil.At(time.Hour)))
	dstRepo = inmemdb.NewDest()

	out := new(bytes.Buffer)
	return &commandLine{
		conf: &core.Config{
			SourceURL:         "postgres://v3",
			DestURL:           "postgres://v4",
			MappingDir:        t.TempDir(),
			OrderNumberPrefix: "TA",
		},
		log:       testutil.NopLogger(),
		out:       out,
		container: testContainer,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func Test_commandLine_run(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "stage with extra args", args: []string{"courses", "--force"}, wantErr: errHelp},
		{name: "enrollments without student mapping", args: []string{"enrollments"}, wantErrStr: "missing prerequisite artifact"},
		{name: "orders without student mapping", args: []string{"orders"}, wantErrStr: "missing prerequisite artifact"},
		{name: "courses", args: []string{"courses"}},
		{name: "students", args: []string{"students"}},
		{name: "enrollments", args: []string{"enrollments"}},
		{name: "orders", args: []string{"orders"}},
		{name: "checkout-data", args: []string{"checkout-data"}},
		{name: "counts", args: []string{"counts"}},
		{name: "all", args: []string{"all"}},
	}
	for _, tt := range tests {
		args := append([]string{"migrate"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(context.Background(), args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
				assert.True(t, core.IsConfigError(err))
			default:
				assert.NoError(t, err)
			}
		})
	}

	courses := dstRepo.Courses()
	require.Len(t, courses, 1)
	assert.Equal(t, 1, courses[0].EnrolledCount)
	assert.Len(t, dstRepo.Orders(), 1)
	assert.NoError(t, identity.StudentMapExists(cli.conf.MappingDir))
}

func Test_commandLine_migrate_config(t *testing.T) {
	cli, _ := setup(t)
	cli.conf.SourceURL = ""
	cli.conf.DestURL = ""
	cli.container = func(context.Context, *core.Config, core.Logger) *container {
		t.Fatal("no connection must be attempted on a configuration error")
		return nil
	}

	err := cli.run(context.Background(), []string{"migrate", "all"})
	require.Error(t, err)
	assert.True(t, core.IsConfigError(err))
	assert.EqualError(t, err, "missing required environment variables: V3_DATABASE_URL, DATABASE_URL")
}

func Test_commandLine_summary(t *testing.T) {
	cli, out := setup(t)

	require.NoError(t, cli.run(context.Background(), []string{"migrate", "all"}))

	summary := out.String()
	for _, want := range []string{"KIND", "course", "student", "enrollment", "order", "bank_account (absent)", "coupon (absent)", "enrolled_count"} {
		assert.Contains(t, summary, want)
	}
	lines := strings.Split(strings.TrimSpace(summary), "\n")
	assert.Len(t, lines, 9, "header, seven stages and a rule")
}

func Test_commandLine_schema(t *testing.T) {
	cli, _ := setup(t)

	var got []string
	orig := migrateFunc
	t.Cleanup(func() { migrateFunc = orig })
	migrateFunc = func(_ context.Context, _ *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "down", "status", "version", "redo", "reset":
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: %s VERSION", command, command)
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		got = append(got, strings.Join(append([]string{command}, args...), " "))
		return nil
	}

	tests := []cliTest{
		{name: "default is up", args: []string{"schema"}},
		{name: "status", args: []string{"schema", "status"}},
		{name: "up-to", args: []string{"schema", "up-to", "1"}},
		{name: "up-to: no args", args: []string{"schema", "up-to"}, wantErrStr: "up-to must be of form: up-to VERSION"},
		{name: "unknown", args: []string{"schema", "lol"}, wantErrStr: `"lol": no such command`},
	}
	for _, tt := range tests {
		args := append([]string{"migrate"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(context.Background(), args)
			if tt.wantErrStr != "" {
				assert.EqualError(t, err, tt.wantErrStr)
				return
			}
			assert.NoError(t, err)
		})
	}
	assert.Equal(t, []string{"up", "status", "up-to 1"}, got)

	t.Run("source url not required", func(t *testing.T) {
		cli.conf.SourceURL = ""
		assert.NoError(t, cli.run(context.Background(), []string{"migrate", "schema"}))
	})

	t.Run("destination url required", func(t *testing.T) {
		cli.conf.DestURL = ""
		err := cli.run(context.Background(), []string{"migrate", "schema"})
		assert.True(t, core.IsConfigError(err))
	})
}
