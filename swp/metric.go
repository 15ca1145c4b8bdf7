package swp

import (
	"sync/atomic"

	"github.com/arloliu/go-swp/frame"
)

// Metrics contains atomic counters for a Protocol.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// DataSentCount indicates the number of DATA frames sent, retransmissions included.
	DataSentCount atomic.Uint64
	// AckSentCount indicates the number of standalone ACK frames sent.
	AckSentCount atomic.Uint64
	// NakSentCount indicates the number of NAK frames sent.
	NakSentCount atomic.Uint64
	// RetransmitCount indicates the number of DATA frames sent again after a timeout or NAK.
	RetransmitCount atomic.Uint64
	// SendErrCount indicates the number of frames the physical layer failed to send.
	SendErrCount atomic.Uint64

	// FrameRecvCount indicates the number of intact frames received.
	FrameRecvCount atomic.Uint64
	// ChecksumErrCount indicates the number of corrupted frames reported by the physical layer.
	ChecksumErrCount atomic.Uint64
	// InvalidFrameCount indicates the number of frames with sequence numbers outside the sequence space.
	InvalidFrameCount atomic.Uint64
	// OutOfWindowCount indicates the number of DATA frames dropped as duplicates or outside the receive window.
	OutOfWindowCount atomic.Uint64

	// PacketSentCount indicates the number of packets accepted from the network layer.
	PacketSentCount atomic.Uint64
	// PacketDeliveredCount indicates the number of packets delivered to the network layer.
	PacketDeliveredCount atomic.Uint64

	// StaleTimeoutCount indicates the number of timeouts for already acknowledged frames.
	StaleTimeoutCount atomic.Uint64
	// RefusedSendCount indicates the number of NetworkLayerReady events refused on a full window.
	RefusedSendCount atomic.Uint64
	// UndefinedEventCount indicates the number of events with an unknown type.
	UndefinedEventCount atomic.Uint64

	// OutstandingGauge indicates the number of unacknowledged DATA frames.
	OutstandingGauge atomic.Int32
}

func (m *Metrics) incSent(kind frame.Kind) {
	switch kind {
	case frame.Data:
		m.DataSentCount.Add(1)
	case frame.Ack:
		m.AckSentCount.Add(1)
	case frame.Nak:
		m.NakSentCount.Add(1)
	}
}

func (m *Metrics) incRetransmitCount() {
	m.RetransmitCount.Add(1)
}

func (m *Metrics) incSendErrCount() {
	m.SendErrCount.Add(1)
}

func (m *Metrics) incFrameRecvCount() {
	m.FrameRecvCount.Add(1)
}

func (m *Metrics) incChecksumErrCount() {
	m.ChecksumErrCount.Add(1)
}

func (m *Metrics) incInvalidFrameCount() {
	m.InvalidFrameCount.Add(1)
}

func (m *Metrics) incOutOfWindowCount() {
	m.OutOfWindowCount.Add(1)
}

func (m *Metrics) incPacketSentCount() {
	m.PacketSentCount.Add(1)
}

func (m *Metrics) incPacketDeliveredCount() {
	m.PacketDeliveredCount.Add(1)
}

func (m *Metrics) incStaleTimeoutCount() {
	m.StaleTimeoutCount.Add(1)
}

func (m *Metrics) incRefusedSendCount() {
	m.RefusedSendCount.Add(1)
}

func (m *Metrics) incUndefinedEventCount() {
	m.UndefinedEventCount.Add(1)
}

func (m *Metrics) setOutstandingGauge(n int) {
	m.OutstandingGauge.Store(int32(n)) //nolint:gosec // bounded by the window size
}
