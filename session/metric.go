package session

import (
	"sync/atomic"
)

// SessionMetrics contains atomic metrics for a session.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type SessionMetrics struct {
	// RemoteBytesRecv indicates the number of bytes received from the remote device.
	RemoteBytesRecv atomic.Uint64
	// RemoteBytesSent indicates the number of bytes sent to the remote device.
	RemoteBytesSent atomic.Uint64

	// LinesRelayed indicates the number of operator command lines relayed.
	LinesRelayed atomic.Uint64
	// BreaksSent indicates the number of break control bytes sent.
	BreaksSent atomic.Uint64

	// DisplayErrCount indicates the number of display write errors.
	DisplayErrCount atomic.Uint64
	// LogErrCount indicates the number of traffic log write errors.
	LogErrCount atomic.Uint64

	// HeldbackBytes indicates the number of bytes of an incomplete UTF-8
	// sequence currently held back by the reassembler, 0 to 3.
	HeldbackBytes atomic.Uint64
}

func (m *SessionMetrics) addRemoteBytesRecv(n int) {
	m.RemoteBytesRecv.Add(uint64(n)) //nolint:gosec
}

func (m *SessionMetrics) addRemoteBytesSent(n int) {
	m.RemoteBytesSent.Add(uint64(n)) //nolint:gosec
}

func (m *SessionMetrics) incLinesRelayed() {
	m.LinesRelayed.Add(1)
}

func (m *SessionMetrics) incBreaksSent() {
	m.BreaksSent.Add(1)
}

func (m *SessionMetrics) incDisplayErrCount() {
	m.DisplayErrCount.Add(1)
}

func (m *SessionMetrics) incLogErrCount() {
	m.LogErrCount.Add(1)
}

func (m *SessionMetrics) setHeldbackBytes(n int) {
	m.HeldbackBytes.Store(uint64(n)) //nolint:gosec
}
