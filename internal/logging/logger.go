// Package logging holds the package-level logger used by pkg/storage and
// pkg/exec for informational, non-error events (chunk opened, column range
// read, scan skipped). The one error it records is a failed file Close on
// the storage read path, which runutil.CloseWithLogOnErr logs instead of
// returning; every other failure is returned to the caller.
package logging

import (
	"sync"

	"github.com/go-kit/kit/log"
)

var (
	mu     sync.RWMutex
	logger = log.NewNopLogger()
)

// SetLogger replaces the package-level logger. Safe to call concurrently
// with Logger, but intended to be called once at process start.
func SetLogger(l log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = log.NewNopLogger()
	}
	logger = l
}

// Logger returns the current package-level logger.
func Logger() log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
