// Package logsink writes the proxy's line-oriented append-only log file
// (spec §6). It is the only shared mutable resource workers touch, and
// its cross-goroutine safety comes from the zapcore.Lock mutex wrapped
// around the underlying WriteSyncer (spec §5: "a single kernel-level concurrency
// primitive ... to serialize writes").
//
// The teacher module only ever logs through the standard library's log
// package in its example programs; the structured-logger-with-custom-sink
// pattern here is grounded on caddyserver-caddy's zap-based Logging type.
package logsink

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultPath is the fixed log file path from spec §6, relative to the
// working directory.
const DefaultPath = "proxy_server_log.txt"

// Logger appends fixed-shape records to a log file.
type Logger struct {
	zl    *zap.Logger
	sugar *zap.SugaredLogger
	file  *os.File
}

// Open opens (creating if necessary) the append-only log file at path and
// returns a Logger writing to it. The file is never rotated or truncated.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(
		newRecordEncoder(),
		zapcore.Lock(zapcore.AddSync(f)),
		zapcore.DebugLevel,
	)

	zl := zap.New(core)
	return &Logger{
		zl:    zl,
		sugar: zl.Sugar(),
		file:  f,
	}, nil
}

// Log appends one record with the given message.
func (l *Logger) Log(msg string) {
	l.zl.Info(msg)
}

// Logf appends one record formatted per format/args. The SugaredLogger
// is built once in Open rather than per call, since every worker
// connection logs through this on a hot path.
func (l *Logger) Logf(format string, args ...any) {
	l.sugar.Infof(format, args...)
}

// Close flushes and closes the underlying log file.
func (l *Logger) Close() error {
	_ = l.zl.Sync()
	return l.file.Close()
}
