package relay

import (
	"io"
	"sync"
	"time"

	"github.com/belltown/termrelay/internal/pool"
	"github.com/belltown/termrelay/logger"
)

// DefaultDisplayLockTimeout bounds how long a writer waits for the display
// guard before proceeding unguarded.
const DefaultDisplayLockTimeout = 5 * time.Second

// Display serializes writes from multiple workers onto a single write
// surface that can only safely support one blocking write at a time.
//
// The guard is held only for the duration of one write call. Acquisition is
// bounded by a short timeout: if the guard cannot be acquired in time, the
// write proceeds unguarded so a stuck writer cannot wedge the whole session.
type Display struct {
	w           io.Writer
	sem         chan struct{}
	lockTimeout time.Duration
	logger      logger.Logger
}

// NewDisplay wraps w with a write guard. A non-positive lockTimeout selects
// DefaultDisplayLockTimeout.
func NewDisplay(w io.Writer, lockTimeout time.Duration, l logger.Logger) *Display {
	if lockTimeout <= 0 {
		lockTimeout = DefaultDisplayLockTimeout
	}
	if l == nil {
		l = logger.GetLogger()
	}

	return &Display{
		w:           w,
		sem:         make(chan struct{}, 1),
		lockTimeout: lockTimeout,
		logger:      l,
	}
}

// Write writes s to the display surface under the guard.
//
// A write failure is returned to the caller; whether it is fatal is the
// caller's policy. The session keeps running after an isolated failure.
func (d *Display) Write(s string) error {
	if d.acquire() {
		defer d.release()
	}

	_, err := io.WriteString(d.w, s)

	return err
}

// WriteLine writes s followed by a line feed.
func (d *Display) WriteLine(s string) error {
	return d.Write(s + "\n")
}

func (d *Display) acquire() bool {
	timer := pool.GetTimer(d.lockTimeout)
	defer pool.PutTimer(timer)

	select {
	case d.sem <- struct{}{}:
		return true
	case <-timer.C:
		d.logger.Warn("display guard acquisition timed out, writing unguarded", "timeout", d.lockTimeout)
		return false
	}
}

func (d *Display) release() {
	<-d.sem
}

// TrafficLog is an append-only binary sink receiving an exact byte-for-byte
// copy of session traffic. It never receives the escaped display form.
//
// Log-write errors are recovered locally: on the first failure the log
// disables itself for the remainder of the session. Logging is never fatal
// to the relay.
//
// A TrafficLog is safe for concurrent use by multiple workers.
type TrafficLog struct {
	mu      sync.Mutex
	w       io.Writer
	logger  logger.Logger
	onError func()
}

// NewTrafficLog creates a traffic log over w. A nil writer yields a disabled
// log whose Write is a no-op.
func NewTrafficLog(w io.Writer, l logger.Logger) *TrafficLog {
	if l == nil {
		l = logger.GetLogger()
	}

	return &TrafficLog{w: w, logger: l}
}

// SetErrorHook registers a callback invoked once when the log disables
// itself after a write failure.
func (t *TrafficLog) SetErrorHook(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onError = fn
}

// Write appends b to the log.
func (t *TrafficLog) Write(b []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.w == nil {
		return
	}

	if _, err := t.w.Write(b); err != nil {
		t.logger.Warn("traffic log write failed, logging disabled for this session", "error", err)
		t.w = nil
		if t.onError != nil {
			t.onError()
		}
	}
}

// Enabled reports whether the log is still accepting writes.
func (t *TrafficLog) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.w != nil
}

// Close flushes and closes the underlying writer when it implements
// io.Closer, and disables the log.
func (t *TrafficLog) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.w
	t.w = nil

	if closer, ok := w.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
