package link

import "sync/atomic"

// Metrics contains atomic counters for a link.
type Metrics struct {
	// FrameSentCount indicates the number of frames written to the medium.
	FrameSentCount atomic.Uint64
	// FrameRecvCount indicates the number of intact frames received.
	FrameRecvCount atomic.Uint64
	// ParseErrCount indicates the number of received frames that failed to parse.
	ParseErrCount atomic.Uint64
	// DroppedCount indicates the number of oversized or non-data KISS frames and
	// non-binary websocket messages that were ignored.
	DroppedCount atomic.Uint64
	// WriteErrCount indicates the number of failed writes.
	WriteErrCount atomic.Uint64

	// BytesSentCount indicates the number of bytes written, framing included.
	BytesSentCount atomic.Uint64
	// BytesRecvCount indicates the number of bytes read, framing included.
	BytesRecvCount atomic.Uint64
}

func (m *Metrics) incFrameSentCount() {
	m.FrameSentCount.Add(1)
}

func (m *Metrics) incFrameRecvCount() {
	m.FrameRecvCount.Add(1)
}

func (m *Metrics) incParseErrCount() {
	m.ParseErrCount.Add(1)
}

func (m *Metrics) addDroppedCount(n int) {
	if n > 0 {
		m.DroppedCount.Add(uint64(n))
	}
}

func (m *Metrics) incWriteErrCount() {
	m.WriteErrCount.Add(1)
}

func (m *Metrics) addBytesSent(n int) {
	if n > 0 {
		m.BytesSentCount.Add(uint64(n))
	}
}

func (m *Metrics) addBytesRecv(n int) {
	if n > 0 {
		m.BytesRecvCount.Add(uint64(n))
	}
}
