// Package logging provides a single shared, structured logger for
// every collaborator package. The core dsp package never logs: it has
// no syscalls and no allocation on the hot path, so logging belongs
// entirely to the ambient layer around it.
package logging

import (
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var base = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	ReportCaller:    false,
})

var (
	mu      sync.Mutex
	loggers []*log.Logger
)

// For backs a named sub-logger, e.g. logging.For("catbridge").
func For(component string) *log.Logger {
	l := base.With("component", component)
	mu.Lock()
	loggers = append(loggers, l)
	mu.Unlock()
	return l
}

// SetLevel adjusts verbosity for every logger returned by For, past
// and future: each sub-logger carries its own copy of the level, so
// the ones already handed out are updated one by one.
func SetLevel(level log.Level) {
	mu.Lock()
	defer mu.Unlock()
	base.SetLevel(level)
	for _, l := range loggers {
		l.SetLevel(level)
	}
}
