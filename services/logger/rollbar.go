package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"

	"github.com/tintaacademy/migrator/core"
)

// rollbarForwarder reports error-level events; lower levels stay local.
type rollbarForwarder struct {
	fields map[string]interface{}
}

func newRollbarForwarder(conf *core.Config) *rollbarForwarder {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetEnabled(true)
	return &rollbarForwarder{fields: map[string]interface{}{}}
}

func (f *rollbarForwarder) with(keysAndValues []interface{}) *rollbarForwarder {
	if f == nil {
		return nil
	}
	fields := make(map[string]interface{}, len(f.fields)+len(keysAndValues)/2)
	for k, v := range f.fields {
		fields[k] = v
	}
	mergeFields(fields, keysAndValues)
	return &rollbarForwarder{fields: fields}
}

func (f *rollbarForwarder) extras(keysAndValues []interface{}) map[string]interface{} {
	extras := make(map[string]interface{}, len(f.fields)+len(keysAndValues)/2)
	for k, v := range f.fields {
		extras[k] = v
	}
	mergeFields(extras, keysAndValues)
	return extras
}

func (f *rollbarForwarder) error(msg string, keysAndValues []interface{}) {
	rollbar.Error(msg, f.extras(keysAndValues))
}

func (f *rollbarForwarder) critical(msg string, keysAndValues []interface{}) {
	rollbar.Critical(msg, f.extras(keysAndValues))
}

func (f *rollbarForwarder) wait() {
	rollbar.Wait()
}

// mergeFields copies alternating key/value pairs; errors are stringified so they serialize.
func mergeFields(dst map[string]interface{}, keysAndValues []interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		val := keysAndValues[i+1]
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		dst[key] = val
	}
}
