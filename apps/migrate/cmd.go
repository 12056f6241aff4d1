package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"go.uber.org/dig"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/identity"
	"github.com/tintaacademy/migrator/core/pipeline"
	"github.com/tintaacademy/migrator/storage/database"
)

const cmdAll = "all"

var (
	migrateFunc = database.Migrate // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf      *core.Config
	log       core.Logger
	out       io.Writer
	container containerFunc
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  courses        - migrate courses (by slug)")
	fmt.Fprintln(cli.out, "  students       - migrate students (by email) and save the student mapping")
	fmt.Fprintln(cli.out, "  enrollments    - derive enrollments from orders (needs the student mapping)")
	fmt.Fprintln(cli.out, "  orders         - migrate orders (needs the student mapping)")
	fmt.Fprintln(cli.out, "  checkout-data  - migrate bank accounts and coupons")
	fmt.Fprintln(cli.out, "  counts         - recalculate course enrolled counts")
	fmt.Fprintln(cli.out, "  all            - run every stage in order")
	fmt.Fprintln(cli.out, "  schema [CMD]   - run a goose command (default: up) on the destination schema")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch cmd := args[1]; cmd {
	case "schema":
		return cli.schema(ctx, args[2:])
	case cmdAll, pipeline.StageCourses, pipeline.StageStudents, pipeline.StageEnrollments,
		pipeline.StageOrders, pipeline.StageCheckoutData, pipeline.StageCounts:
		if len(args) > 2 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, cmd)
	default:
		cli.printUsage()
		return errHelp
	}
}

// migrate checks configuration and artifacts, then connects and runs one stage or all of them.
func (cli *commandLine) migrate(ctx context.Context, stage string) error {
	if err := cli.conf.Validate(); err != nil {
		return err
	}
	if stage == pipeline.StageEnrollments || stage == pipeline.StageOrders {
		if err := identity.StudentMapExists(cli.conf.MappingDir); err != nil {
			return err
		}
	}

	c := cli.container(ctx, cli.conf, cli.log)
	defer c.close()

	var sum pipeline.Summary
	err := c.Invoke(func(p *pipeline.Pipeline) error {
		var err error
		if stage == cmdAll {
			sum, err = p.Run(ctx)
		} else {
			sum, err = p.RunStage(ctx, stage)
		}
		return err
	})
	printSummary(cli.out, sum)
	if err != nil {
		return dig.RootCause(err)
	}
	if n := sum.Errors(); n > 0 {
		cli.log.Warn("migration finished with record errors, re-run to retry them", "errors", n)
	}
	return nil
}

func (cli *commandLine) schema(ctx context.Context, args []string) error {
	if err := cli.conf.ValidateDestination(); err != nil {
		return err
	}
	command := "up"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	c := cli.container(ctx, cli.conf, cli.log)
	defer c.close()

	err := c.Invoke(func(db *sql.DB) error {
		return migrateFunc(ctx, db, command, args...)
	})
	if err != nil {
		return dig.RootCause(err)
	}
	return nil
}

func printSummary(out io.Writer, sum pipeline.Summary) {
	if len(sum.Reports) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tCREATED\tUPDATED\tSKIPPED\tERRORS\t")
	for _, r := range sum.Reports {
		kind := r.Kind
		if r.Absent {
			kind += " (absent)"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t\n", kind, r.Created, r.Updated, r.Skipped, r.Errors)
	}
	_ = w.Flush()
	fmt.Fprintln(out, strings.Repeat("-", 48))
}
