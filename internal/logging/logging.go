// Package logging provides the structured logger shared by the build
// and query pipelines. It wraps zap instead of hand-rolling a
// mutex-guarded io.Writer: one package-level logger, a quiet-mode
// toggle for scripted CLI use, and named child loggers per component
// (build, merge, query) so log lines can be filtered by component the
// same way the teacher tool filtered by "[DEBUG:COMPONENT]" tags.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	base   *zap.Logger
	quiet  bool
)

func init() {
	base = newLogger(false)
}

func newLogger(q bool) *zap.Logger {
	level := zapcore.InfoLevel
	if q {
		level = zapcore.ErrorLevel
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// SetQuiet suppresses everything below error level. Used by batch
// build/query invocations (-s stats mode, scripted pipelines) the way
// the teacher suppressed debug output in MCP mode.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
	_ = base.Sync()
	base = newLogger(q)
}

// For returns a named child logger, e.g. logging.For("merge").
func For(component string) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base.Named(component)
}

// Sync flushes any buffered log entries; call before process exit.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
}
