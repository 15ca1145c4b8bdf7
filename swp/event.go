package swp

import (
	"context"
	"fmt"

	"github.com/arloliu/go-swp/frame"
	"github.com/arloliu/go-swp/internal/queue"
	"github.com/arloliu/go-swp/seqnum"
)

// EventType identifies the kind of an Event.
type EventType uint8

const (
	// NetworkLayerReady: the network layer has a packet to send and send credit.
	NetworkLayerReady EventType = iota
	// FrameArrival: an intact frame arrived; Event.Frame carries it.
	FrameArrival
	// ChecksumError: a damaged frame arrived.
	ChecksumError
	// Timeout: the retransmission timer for Event.Seq expired.
	Timeout
	// AckTimeout: the delayed-ACK timer expired.
	AckTimeout
)

// String implements fmt.Stringer.
func (t EventType) String() string {
	switch t {
	case NetworkLayerReady:
		return "NetworkLayerReady"
	case FrameArrival:
		return "FrameArrival"
	case ChecksumError:
		return "ChecksumError"
	case Timeout:
		return "Timeout"
	case AckTimeout:
		return "AckTimeout"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(t))
	}
}

// Event is one input of the protocol loop.
//
// Seq is only meaningful for Timeout, Frame only for FrameArrival.
type Event struct {
	Type  EventType
	Seq   seqnum.Seq
	Frame *frame.Frame
}

// NetworkLayerReadyEvent returns a NetworkLayerReady event.
func NetworkLayerReadyEvent() Event { return Event{Type: NetworkLayerReady} }

// FrameArrivalEvent returns a FrameArrival event carrying f.
func FrameArrivalEvent(f *frame.Frame) Event { return Event{Type: FrameArrival, Frame: f} }

// ChecksumErrorEvent returns a ChecksumError event.
func ChecksumErrorEvent() Event { return Event{Type: ChecksumError} }

// TimeoutEvent returns a Timeout event for seq.
func TimeoutEvent(seq seqnum.Seq) Event { return Event{Type: Timeout, Seq: seq} }

// AckTimeoutEvent returns an AckTimeout event.
func AckTimeoutEvent() Event { return Event{Type: AckTimeout} }

// Notifier is the set of hooks through which the collaborators of a Protocol
// (physical layer, network layer, timers) inject events. Implementations must
// be safe for concurrent use and must not block.
type Notifier interface {
	NotifyNetworkLayerReady()
	NotifyFrameArrival(f *frame.Frame)
	NotifyChecksumError()
	NotifyTimeout(seq seqnum.Seq)
	NotifyAckTimeout()
}

// EventQueue is the single ordered event source of a Protocol.
//
// Any number of goroutines may Post; exactly one goroutine consumes with Next.
// Post never blocks, so two protocol engines that feed each other's queues
// cannot deadlock.
type EventQueue struct {
	q    queue.Queue[Event]
	wake chan struct{}
}

var _ Notifier = (*EventQueue)(nil)

// NewEventQueue creates an empty event queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{
		q:    queue.NewLockFreeQueue[Event](),
		wake: make(chan struct{}, 1),
	}
}

// Post appends ev to the queue and wakes the consumer.
func (eq *EventQueue) Post(ev Event) {
	eq.q.Enqueue(ev)

	select {
	case eq.wake <- struct{}{}:
	default: // a wake-up is already pending
	}
}

// Next removes and returns the oldest event, blocking until one is available
// or ctx is done.
func (eq *EventQueue) Next(ctx context.Context) (Event, error) {
	for {
		if ev, ok := eq.q.Dequeue(); ok {
			return ev, nil
		}

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-eq.wake:
		}
	}
}

// Len returns the number of pending events.
func (eq *EventQueue) Len() int {
	return eq.q.Length()
}

// NotifyNetworkLayerReady posts a NetworkLayerReady event.
func (eq *EventQueue) NotifyNetworkLayerReady() { eq.Post(NetworkLayerReadyEvent()) }

// NotifyFrameArrival posts a FrameArrival event carrying f.
func (eq *EventQueue) NotifyFrameArrival(f *frame.Frame) { eq.Post(FrameArrivalEvent(f)) }

// NotifyChecksumError posts a ChecksumError event.
func (eq *EventQueue) NotifyChecksumError() { eq.Post(ChecksumErrorEvent()) }

// NotifyTimeout posts a Timeout event for seq.
func (eq *EventQueue) NotifyTimeout(seq seqnum.Seq) { eq.Post(TimeoutEvent(seq)) }

// NotifyAckTimeout posts an AckTimeout event.
func (eq *EventQueue) NotifyAckTimeout() { eq.Post(AckTimeoutEvent()) }
