// Package netlayer provides a network layer for the sliding window protocol:
// an application-facing packet queue that follows the engine's credit-based
// flow control.
package netlayer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arloliu/go-swp/frame"
	"github.com/arloliu/go-swp/internal/queue"
	"github.com/arloliu/go-swp/internal/util"
	"github.com/arloliu/go-swp/logger"
	"github.com/arloliu/go-swp/swp"
)

var (
	// ErrPacketTooLarge indicates a packet that does not fit a single frame.
	ErrPacketTooLarge = errors.New("netlayer: packet exceeds maximum frame payload")
	// ErrNilNotifier indicates that New was called without a Notifier.
	ErrNilNotifier = errors.New("netlayer: notifier is nil")
)

// Layer is a swp.NetworkLayer.
//
// Packets passed to Send are queued until the protocol grants send credit.
// Each packet released against one unit of credit is announced with exactly
// one NetworkLayerReady event, so the engine never sees more ready events
// than it has free buffers. Packets delivered by the engine are read with
// Recv, or handed to the function set by WithDeliverFunc.
type Layer struct {
	cfg      *Config
	logger   logger.Logger
	notifier swp.Notifier

	mu       sync.Mutex
	credit   int
	pending  queue.Queue[frame.Packet] // waiting for credit
	released queue.Queue[frame.Packet] // announced, not yet pulled

	delivered queue.Queue[frame.Packet]
	wake      chan struct{}
}

var _ swp.NetworkLayer = (*Layer)(nil)

// New creates a network layer that posts its ready events to n.
func New(n swp.Notifier, opts ...Option) (*Layer, error) {
	if n == nil {
		return nil, ErrNilNotifier
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	return &Layer{
		cfg:       cfg,
		logger:    cfg.logger,
		notifier:  n,
		pending:   queue.NewSliceQueue[frame.Packet](cfg.queueSize),
		released:  queue.NewSliceQueue[frame.Packet](cfg.queueSize),
		delivered: queue.NewLockFreeQueue[frame.Packet](),
		wake:      make(chan struct{}, 1),
	}, nil
}

// Send queues a copy of p for transmission. It never blocks.
func (l *Layer) Send(p frame.Packet) error {
	if len(p) > frame.MaxInfoSize {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(p))
	}

	l.mu.Lock()
	l.pending.Enqueue(frame.Packet(util.CloneSlice([]byte(p), 0)))
	n := l.releaseLocked()
	l.mu.Unlock()

	l.announce(n)

	return nil
}

// EnableNetworkLayer implements swp.NetworkLayer.
func (l *Layer) EnableNetworkLayer(n int) {
	l.mu.Lock()
	l.credit += n
	released := l.releaseLocked()
	l.mu.Unlock()

	l.logger.Debug("netlayer: credit granted", "name", l.cfg.name, "n", n, "released", released)
	l.announce(released)
}

// releaseLocked moves pending packets to the released queue while credit is
// available and returns how many were moved.
func (l *Layer) releaseLocked() int {
	n := 0
	for l.credit > 0 {
		p, ok := l.pending.Dequeue()
		if !ok {
			break
		}
		l.released.Enqueue(p)
		l.credit--
		n++
	}

	return n
}

func (l *Layer) announce(n int) {
	for i := 0; i < n; i++ {
		l.notifier.NotifyNetworkLayerReady()
	}
}

// FromNetworkLayer implements swp.NetworkLayer.
func (l *Layer) FromNetworkLayer() (frame.Packet, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.released.Dequeue()
	if !ok {
		l.logger.Warn("netlayer: no released packet", "name", l.cfg.name)
		return nil, false
	}

	return p, true
}

// ToNetworkLayer implements swp.NetworkLayer.
func (l *Layer) ToNetworkLayer(p frame.Packet) {
	if l.cfg.deliverFunc != nil {
		l.cfg.deliverFunc(p)
		return
	}

	l.delivered.Enqueue(p)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Recv returns the next delivered packet, blocking until one is available or
// ctx is done. Recv must not be used together with WithDeliverFunc.
func (l *Layer) Recv(ctx context.Context) (frame.Packet, error) {
	for {
		if p, ok := l.delivered.Dequeue(); ok {
			return p, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-l.wake:
		}
	}
}

// Pending returns the number of packets waiting for send credit.
func (l *Layer) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.pending.Length()
}

// Credit returns the unused send credit.
func (l *Layer) Credit() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.credit
}
