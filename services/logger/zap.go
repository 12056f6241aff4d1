package logsvc

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/tintaacademy/migrator/core"
)

var isTerminalFunc = term.IsTerminal // mockable

// ZapLogger is a core.Logger backed by a zap.SugaredLogger.
type ZapLogger struct {
	sugar   *zap.SugaredLogger
	rollbar *rollbarForwarder // nil when disabled
}

var _ core.Logger = (*ZapLogger)(nil) // interface compliance check

// NewLogger builds the process logger: console output on a terminal, JSON otherwise.
func NewLogger(conf *core.Config) (*ZapLogger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if conf.LogLevel != "" {
		if err := level.UnmarshalText([]byte(conf.LogLevel)); err != nil {
			return nil, errors.Wrapf(err, "parsing log level %q", conf.LogLevel)
		}
	}

	encoding := "json"
	if isTerminalFunc(int(os.Stdout.Fd())) {
		encoding = "console"
	}

	zapConf := zap.Config{
		Level:       level,
		Development: conf.Debug,
		Encoding:    encoding,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: !conf.Debug,
	}
	base, err := zapConf.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	base = base.With(zap.String("env", conf.Env), zap.String("build", conf.Build))

	l := NewZapLogger(base)
	if conf.RollbarToken != "" {
		l.rollbar = newRollbarForwarder(conf)
	}
	return l, nil
}

// NewZapLogger wraps an existing zap logger, e.g. zap.NewNop() or an observer in tests.
func NewZapLogger(base *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: base.Sugar()}
}

func (l *ZapLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *ZapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *ZapLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *ZapLogger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
	if l.rollbar != nil {
		l.rollbar.error(msg, keysAndValues)
	}
}

func (l *ZapLogger) Fatal(msg string, keysAndValues ...interface{}) {
	if l.rollbar != nil {
		l.rollbar.critical(msg, keysAndValues)
		l.rollbar.wait()
	}
	l.sugar.Fatalw(msg, keysAndValues...)
}

func (l *ZapLogger) With(keysAndValues ...interface{}) core.Logger {
	return &ZapLogger{sugar: l.sugar.With(keysAndValues...), rollbar: l.rollbar.with(keysAndValues)}
}

// Sync flushes buffered log entries.
func (l *ZapLogger) Sync() {
	_ = l.sugar.Sync()
	if l.rollbar != nil {
		l.rollbar.wait()
	}
}
