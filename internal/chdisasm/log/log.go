// Package log wires the process-wide slog default to the charmbracelet
// logger and guards goroutines against unhandled panics.
package log

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	charmlog "github.com/charmbracelet/log"

	"chdisasm/internal/logging"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
	active      *logging.LoggerCloser
)

// Setup installs the slog default handler. Debug forces debug level and
// caller reporting regardless of CHDISASM_LOG_LEVEL.
func Setup(debug bool) {
	initOnce.Do(func() {
		lg := logging.NewLogger()
		if debug || logging.IsDebug() {
			lg.SetLevel(charmlog.DebugLevel)
			lg.SetReportCaller(true)
		}

		active = lg
		slog.SetDefault(slog.New(lg.Logger))
		initialized.Store(true)
	})
}

// Close releases the log file, if logging to one.
func Close() error {
	if active == nil {
		return nil
	}
	return active.Close()
}

func Initialized() bool {
	return initialized.Load()
}

func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		if Initialized() {
			slog.Error(fmt.Sprintf("Panic in %s", name),
				"panic", r,
				"stack", string(debug.Stack()))
		}
		if cleanup != nil {
			cleanup()
		}
	}
}
