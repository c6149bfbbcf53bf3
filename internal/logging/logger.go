// Package logging builds the charmbracelet logger behind chdisasm's slog
// output. Everything is configured from CHDISASM_LOG_* variables.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// Env is the logging configuration read from the environment.
type Env struct {
	Level  log.Level     // CHDISASM_LOG_LEVEL, info when unset or unknown
	Prefix string        // CHDISASM_LOG_PREFIX, "chdisasm " when unset
	Format log.Formatter // CHDISASM_LOG_FORMAT: text, json or logfmt
	ToFile bool          // CHDISASM_LOG_TO_FILE=1
	Dir    string        // CHDISASM_LOG_DIR, where log files go
}

// ReadEnv snapshots the CHDISASM_LOG_* variables.
func ReadEnv() Env {
	e := Env{
		Level:  ParseLevel(os.Getenv("CHDISASM_LOG_LEVEL")),
		Prefix: os.Getenv("CHDISASM_LOG_PREFIX"),
		ToFile: os.Getenv("CHDISASM_LOG_TO_FILE") == "1",
		Dir:    os.Getenv("CHDISASM_LOG_DIR"),
	}
	if e.Prefix == "" {
		e.Prefix = "chdisasm "
	}
	switch os.Getenv("CHDISASM_LOG_FORMAT") {
	case "json":
		e.Format = log.JSONFormatter
	case "logfmt":
		e.Format = log.LogfmtFormatter
	default:
		e.Format = log.TextFormatter
	}
	return e
}

// LogFile names the file a run started at t logs to.
func (e Env) LogFile(t time.Time) string {
	return filepath.Join(e.Dir, fmt.Sprintf("chdisasm-%s.log", t.Format("20060102-150405")))
}

// LoggerCloser is a logger that may own its output file.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close releases the log file, if any. Standard streams are never closed.
func (lc *LoggerCloser) Close() error {
	if lc.closer == nil {
		return nil
	}
	err := lc.closer.Close()
	lc.closer = nil
	return err
}

// ParseLevel accepts any level name charmbracelet/log knows, in any case.
func ParseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// NewLoggerWithWriter logs to w using the environment's level, prefix and
// format. w is closed by Close unless it is stdout or stderr.
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	return newLogger(w, ReadEnv())
}

func newLogger(w io.Writer, e Env) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		Level:           e.Level,
		Prefix:          e.Prefix,
		Formatter:       e.Format,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr && w != os.Stdout {
		closer = c
	}
	return &LoggerCloser{Logger: lg, closer: closer}
}

// NewLogger logs to stderr, or to a timestamped file when
// CHDISASM_LOG_TO_FILE=1. A file that cannot be created leaves logging on
// stderr.
func NewLogger() *LoggerCloser {
	e := ReadEnv()
	if !e.ToFile {
		return newLogger(os.Stderr, e)
	}

	f, err := os.OpenFile(e.LogFile(time.Now()), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		lg := newLogger(os.Stderr, e)
		lg.Warn("Could not open log file", "error", err)
		return lg
	}
	return newLogger(f, e)
}

// IsDebug reports whether the environment asks for debug logging.
func IsDebug() bool {
	return ReadEnv().Level == log.DebugLevel
}
