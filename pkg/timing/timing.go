// Package timing measures how long a worker spends dialing the upstream
// and handling a connection end to end, trimmed from the teacher's
// request-timing Timer: there is no DNS phase distinct from dial
// (net.Dialer resolves inline), no TLS handshake (the proxy never
// terminates TLS), and no TTFB (the proxy never parses the response).
package timing

import (
	"fmt"
	"time"
)

// Metrics captures the durations this proxy can actually observe.
type Metrics struct {
	DialTime  time.Duration
	TotalTime time.Duration
}

// String provides a human-readable representation of the metrics, for
// log lines.
func (m Metrics) String() string {
	return fmt.Sprintf("dial=%v total=%v", m.DialTime, m.TotalTime)
}

// Timer measures one connection's lifecycle.
type Timer struct {
	start     time.Time
	dialStart time.Time
	dialEnd   time.Time
}

// NewTimer starts a timing session.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// StartDial marks the beginning of the upstream dial.
func (t *Timer) StartDial() {
	t.dialStart = time.Now()
}

// EndDial marks the end of the upstream dial.
func (t *Timer) EndDial() {
	t.dialEnd = time.Now()
}

// GetMetrics returns the durations measured so far.
func (t *Timer) GetMetrics() Metrics {
	m := Metrics{TotalTime: time.Since(t.start)}
	if !t.dialStart.IsZero() && !t.dialEnd.IsZero() {
		m.DialTime = t.dialEnd.Sub(t.dialStart)
	}
	return m
}
