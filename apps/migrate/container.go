package main

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/counts"
	"github.com/tintaacademy/migrator/core/dest"
	"github.com/tintaacademy/migrator/core/identity"
	"github.com/tintaacademy/migrator/core/pipeline"
	"github.com/tintaacademy/migrator/core/reconcile"
	"github.com/tintaacademy/migrator/core/source"
	"github.com/tintaacademy/migrator/storage/database"
	sqlxrepos "github.com/tintaacademy/migrator/storage/database/sqlx"
)

// container resolves dependencies lazily: a database is only opened when something needs it.
type container struct {
	*dig.Container
	closers []func() error
}

type sourceDBParam struct {
	dig.In
	DB *sqlx.DB `name:"sourceDB"`
}

type destDBParam struct {
	dig.In
	DB *sqlx.DB `name:"destDB"`
}

type containerFunc func(ctx context.Context, conf *core.Config, log core.Logger) *container

// newContainer wires the Postgres-backed stores.
func newContainer(ctx context.Context, conf *core.Config, log core.Logger) *container {
	c := newBaseContainer(conf, log)

	must(c.Provide(func() (*sqlx.DB, error) { return c.open(ctx, conf.SourceURL) }, dig.Name("sourceDB")))
	must(c.Provide(func() (*sqlx.DB, error) { return c.open(ctx, conf.DestinationURL()) }, dig.Name("destDB")))
	must(c.Provide(func(p destDBParam) *sql.DB { return p.DB.DB }))
	must(c.Provide(func(p sourceDBParam) source.Repository { return sqlxrepos.NewSourceRepository(p.DB) }))
	must(c.Provide(func(p destDBParam) dest.Repository { return sqlxrepos.NewDestRepository(p.DB) }))
	return c
}

func newBaseContainer(conf *core.Config, log core.Logger) *container {
	c := &container{Container: dig.New()}

	must(c.Provide(func() *core.Config { return conf }))
	must(c.Provide(func() core.Logger { return log }))
	must(c.Provide(newEngine))
	must(c.Provide(newMapper))
	must(c.Provide(newRecalculator))
	must(c.Provide(newPipeline))
	return c
}

func (c *container) open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := database.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, db.Close)
	return db, nil
}

func (c *container) close() {
	for _, fn := range c.closers {
		_ = fn()
	}
	c.closers = nil
}

func newEngine(src source.Repository, dst dest.Repository, conf *core.Config, log core.Logger) *reconcile.Engine {
	return reconcile.NewEngine(src, dst, log, reconcile.Options{OrderNumberPrefix: conf.OrderNumberPrefix})
}

func newMapper(src source.Repository, dst dest.Repository, log core.Logger) *identity.Mapper {
	return identity.NewMapper(src, dst, log)
}

func newRecalculator(dst dest.Repository, log core.Logger) *counts.Recalculator {
	return counts.NewRecalculator(dst, log)
}

func newPipeline(engine *reconcile.Engine, mapper *identity.Mapper, rc *counts.Recalculator, conf *core.Config, log core.Logger) *pipeline.Pipeline {
	return pipeline.New(engine, mapper, rc, conf.MappingDir, log)
}

// must panics if a constructor cannot be provided.
func must(err error) {
	if err != nil {
		panic(errors.Wrap(err, "failed to provide dependency"))
	}
}
