// Package logging wraps zap for the rest of the module.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level  string
	Format string // console or json
	// Output is a zap sink path; stdout is reserved for command output so the default is stderr.
	Output string
}

// Logger wraps zap.SugaredLogger with daylist-specific helpers.
type Logger struct {
	*zap.SugaredLogger
}

func New(cfg Config) (*Logger, error) {
	var zc zap.Config
	if strings.EqualFold(cfg.Format, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	}

	lvl := strings.TrimSpace(cfg.Level)
	if lvl == "" {
		lvl = "warn"
	}
	level, err := zapcore.ParseLevel(lvl)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	out := strings.TrimSpace(cfg.Output)
	if out == "" {
		out = "stderr"
	}
	zc.OutputPaths = []string{out}
	zc.ErrorOutputPaths = []string{"stderr"}

	zl, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Logger{SugaredLogger: zl.Sugar()}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) WithFields(fields ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(fields...)}
}

func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

func (l *Logger) WithWorkspace(wsID string) *Logger {
	return l.WithFields("workspace_id", wsID)
}

// LogStorageCall records the outcome of one adapter call.
func (l *Logger) LogStorageCall(op, wsID, date, todoID string, err error) {
	fields := []interface{}{
		"op", op,
		"workspace_id", wsID,
		"date", date,
		"todo_id", todoID,
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
		l.Errorw("storage call failed", fields...)
		return
	}
	l.Debugw("storage call", fields...)
}

// Sync flushes buffered entries; errors from syncing terminals are ignored.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}
