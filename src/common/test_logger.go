package common

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// TestLogLevel is the level used by package tests. Raise it to Debug when
// chasing a failure.
var TestLogLevel = logrus.InfoLevel

// testLoggerAdapter maps log output into calls to testing.T.Log, so that
// logs only show up for failed tests. Entries written once the test has
// finished its cleanup are dropped, since t.Log would panic.
type testLoggerAdapter struct {
	t testing.TB

	mu   sync.Mutex
	done bool
}

func newTestLoggerAdapter(t testing.TB) *testLoggerAdapter {
	a := &testLoggerAdapter{t: t}
	t.Cleanup(func() {
		a.mu.Lock()
		a.done = true
		a.mu.Unlock()
	})
	return a
}

func (a *testLoggerAdapter) Write(d []byte) (int, error) {
	n := len(d)
	if n > 0 && d[n-1] == '\n' {
		d = d[:n-1]
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.done {
		a.t.Log(string(d))
	}
	return n, nil
}

// NewTestLogger returns a logger that writes through t.Log.
func NewTestLogger(t testing.TB, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.Out = newTestLoggerAdapter(t)
	logger.Level = level
	return logger
}

// NewTestEntry is NewTestLogger wrapped in an entry carrying the test name.
func NewTestEntry(t testing.TB, level logrus.Level) *logrus.Entry {
	return NewTestLogger(t, level).WithField("test", t.Name())
}
