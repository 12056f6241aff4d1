// Package reconcile moves each v3 entity kind into the v4 store. For every source record it probes
// the destination by natural key and then inserts, updates by status precedence, or skips.
//
// Records are processed oldest first. A failing record is logged and counted under Report.Errors;
// it never stops the pass. Only a failure to read the source aborts a stage.
package reconcile

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tintaacademy/migrator/core"
	"github.com/tintaacademy/migrator/core/dest"
	"github.com/tintaacademy/migrator/core/normalize"
	"github.com/tintaacademy/migrator/core/source"
	"github.com/tintaacademy/migrator/core/status"
)

var (
	nowFunc   = time.Now         // mockable
	newIDFunc = uuid.NewString // mockable
)

type Engine struct {
	src          source.Repository
	dst          dest.Repository
	tr           *status.Translator
	norm         *normalize.Normalizer
	orderNumbers *normalize.OrderNumberGenerator
	validator    *core.Validator
	log          core.Logger
}

type Options struct {
	OrderNumberPrefix string
}

func NewEngine(src source.Repository, dst dest.Repository, log core.Logger, opts Options) *Engine {
	tr := status.NewTranslator(log)
	return &Engine{
		src:          src,
		dst:          dst,
		tr:           tr,
		norm:         normalize.New(tr),
		orderNumbers: normalize.NewOrderNumberGenerator(opts.OrderNumberPrefix, dst),
		validator:    core.NewValidator(),
		log:          log,
	}
}

func (e *Engine) now() time.Time {
	return core.Timestamp(nowFunc())
}

// fail counts and logs a per-record failure.
func (e *Engine) fail(r *Report, srcID string, err error) {
	r.Errors++
	e.log.Error("record failed", "kind", r.Kind, "source_id", srcID, "error", err)
}

// skip counts and logs a skipped record with the natural key involved.
func (e *Engine) skip(r *Report, reason, srcID string, keysAndValues ...interface{}) {
	r.skip(reason)
	kv := append([]interface{}{"kind", r.Kind, "source_id", srcID, "reason", reason}, keysAndValues...)
	if reason == ReasonAlreadyMigrated || reason == ReasonSuperseded {
		e.log.Debug("record skipped", kv...)
		return
	}
	e.log.Warn("record skipped", kv...)
}

// write validates a row then runs the write.
func (e *Engine) write(row interface{}, fn func() error) error {
	if err := e.validator.Struct(row); err != nil {
		return err
	}
	return fn()
}

// oldestFirst is a stable sort: equal timestamps keep store order.
func oldestFirst[T any](rows []T, createdAt func(T) time.Time) {
	sort.SliceStable(rows, func(i, j int) bool {
		return createdAt(rows[i]).Before(createdAt(rows[j]))
	})
}

// probe turns a Find* result into (found, err), treating core.ErrNotFound as a miss.
func probe(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if core.IsNotFound(err) {
		return false, nil
	}
	return false, errors.Wrap(err, "probing destination")
}
