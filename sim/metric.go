package sim

import "sync/atomic"

// Metrics contains atomic counters for a Medium.
type Metrics struct {
	// FrameCount indicates the number of frames handed to the medium.
	FrameCount atomic.Uint64
	// LostCount indicates the number of frames dropped.
	LostCount atomic.Uint64
	// DuplicatedCount indicates the number of frames delivered twice.
	DuplicatedCount atomic.Uint64
	// CorruptedCount indicates the number of copies damaged in transit.
	CorruptedCount atomic.Uint64
	// DeliveredCount indicates the number of copies handed to a receiver, damaged ones included.
	DeliveredCount atomic.Uint64
}

func (m *Metrics) incFrameCount() {
	m.FrameCount.Add(1)
}

func (m *Metrics) incLostCount() {
	m.LostCount.Add(1)
}

func (m *Metrics) incDuplicatedCount() {
	m.DuplicatedCount.Add(1)
}

func (m *Metrics) incCorruptedCount() {
	m.CorruptedCount.Add(1)
}

func (m *Metrics) incDeliveredCount() {
	m.DeliveredCount.Add(1)
}
