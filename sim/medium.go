// Package sim provides an unreliable simulated medium for running two sliding
// window protocol engines against each other.
//
// The medium loses, damages, duplicates and delays frames at configurable
// rates. Frames travel in their packed wire form, so a damaged copy is
// reported to the receiver as a checksum error exactly like on a real link.
package sim

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-swp/frame"
	"github.com/arloliu/go-swp/internal/pool"
	"github.com/arloliu/go-swp/internal/queue"
	"github.com/arloliu/go-swp/internal/task"
	"github.com/arloliu/go-swp/logger"
	"github.com/arloliu/go-swp/swp"
)

var (
	// ErrClosed is returned when sending on a closed Medium.
	ErrClosed = errors.New("sim: medium closed")
	// ErrNilNotifier is returned when a Medium is created without both Notifiers.
	ErrNilNotifier = errors.New("sim: notifier is nil")
)

// Medium is a duplex point-to-point channel with two ends, A and B.
type Medium struct {
	cfg     *Config
	logger  logger.Logger
	taskMgr *task.Manager

	rngMu sync.Mutex
	rng   *rand.Rand

	a, b   *End
	closed atomic.Bool

	metrics Metrics
}

// End is one end of a Medium. It implements swp.PhysicalLayer; frames sent on
// it are reported to the Notifier of the other end.
//
// With a fixed delay every copy passes through the end's FIFO, so frames
// arrive in the order they were sent. With a delay spread each copy travels
// on its own and may overtake others.
type End struct {
	m    *Medium
	name string
	peer swp.Notifier

	fifo queue.Queue[delivery]
	wake chan struct{}
}

type delivery struct {
	due  time.Time
	data []byte
}

var _ swp.PhysicalLayer = (*End)(nil)

// NewMedium creates a medium whose end A delivers to b and whose end B
// delivers to a. Pending deliveries are abandoned when ctx is done.
func NewMedium(ctx context.Context, a, b swp.Notifier, opts ...Option) (*Medium, error) {
	if a == nil || b == nil {
		return nil, ErrNilNotifier
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	m := &Medium{
		cfg:     cfg,
		logger:  cfg.logger,
		taskMgr: task.NewManager(ctx, cfg.logger),
		rng:     rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x9E3779B97F4A7C15)), //nolint:gosec // simulation only
	}
	m.a = newEnd(m, cfg.name+"-A", b)
	m.b = newEnd(m, cfg.name+"-B", a)

	if cfg.minDelay == cfg.maxDelay {
		for _, e := range []*End{m.a, m.b} {
			if err := m.taskMgr.Start(e.name+"-pump", e.pump, nil); err != nil {
				m.Close()
				return nil, err
			}
		}
	}

	return m, nil
}

func newEnd(m *Medium, name string, peer swp.Notifier) *End {
	return &End{
		m:    m,
		name: name,
		peer: peer,
		fifo: queue.NewLockFreeQueue[delivery](),
		wake: make(chan struct{}, 1),
	}
}

// A returns end A, the physical layer of the engine notified by a.
func (m *Medium) A() *End { return m.a }

// B returns end B, the physical layer of the engine notified by b.
func (m *Medium) B() *End { return m.b }

// Metrics returns the medium metrics.
func (m *Medium) Metrics() *Metrics {
	return &m.metrics
}

// Close abandons frames in flight and waits for their goroutines to exit.
func (m *Medium) Close() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}

	m.taskMgr.Stop()
	m.taskMgr.Wait()
}

// ToPhysicalLayer implements swp.PhysicalLayer.
func (e *End) ToPhysicalLayer(f *frame.Frame) error {
	m := e.m
	if m.closed.Load() {
		return ErrClosed
	}

	data, err := f.Pack()
	if err != nil {
		return err
	}
	m.metrics.incFrameCount()

	plan := m.plan(len(data))
	if plan.lost {
		m.metrics.incLostCount()
		m.logger.Debug("sim: frame lost", "name", e.name, "frame", f.String())

		return nil
	}
	if len(plan.copies) > 1 {
		m.metrics.incDuplicatedCount()
	}

	for _, c := range plan.copies {
		buf := data
		if c.corruptAt >= 0 {
			buf = append([]byte(nil), data...)
			buf[c.corruptAt] ^= c.corruptMask
			m.metrics.incCorruptedCount()
		}

		if !e.send(buf, c.delay) {
			return ErrClosed
		}
	}

	return nil
}

func (e *End) send(data []byte, delay time.Duration) bool {
	m := e.m
	if m.cfg.minDelay == m.cfg.maxDelay {
		e.fifo.Enqueue(delivery{due: time.Now().Add(delay), data: data})
		select {
		case e.wake <- struct{}{}:
		default:
		}

		return !m.closed.Load()
	}

	return m.taskMgr.Go(func(ctx context.Context) {
		if pool.Sleep(ctx, delay) != nil {
			return
		}
		e.deliver(data)
	})
}

// pump delivers the next FIFO entry once it is due.
func (e *End) pump(ctx context.Context) bool {
	d, ok := e.fifo.Dequeue()
	if !ok {
		select {
		case <-ctx.Done():
			return false
		case <-e.wake:
			return true
		}
	}

	if pool.Sleep(ctx, time.Until(d.due)) != nil {
		return false
	}
	e.deliver(d.data)

	return true
}

func (e *End) deliver(data []byte) {
	e.m.metrics.incDeliveredCount()

	f, err := frame.Parse(data)
	if err != nil {
		e.peer.NotifyChecksumError()
		return
	}
	e.peer.NotifyFrameArrival(f)
}

type copyPlan struct {
	delay       time.Duration
	corruptAt   int // -1 for an intact copy
	corruptMask byte
}

type transmitPlan struct {
	lost   bool
	copies []copyPlan
}

// plan draws the fate of one frame of size n from the channel model.
func (m *Medium) plan(n int) transmitPlan {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()

	cfg := m.cfg
	if m.rng.Float64() < cfg.lossRate {
		return transmitPlan{lost: true}
	}

	count := 1
	if m.rng.Float64() < cfg.duplicateRate {
		count = 2
	}

	p := transmitPlan{copies: make([]copyPlan, count)}
	for i := range p.copies {
		c := copyPlan{delay: cfg.minDelay, corruptAt: -1}
		if spread := cfg.maxDelay - cfg.minDelay; spread > 0 {
			c.delay += time.Duration(m.rng.Int64N(int64(spread) + 1))
		}
		if m.rng.Float64() < cfg.corruptRate {
			c.corruptAt = m.rng.IntN(n)
			c.corruptMask = byte(1 + m.rng.IntN(255)) //nolint:gosec // 1..255
		}
		p.copies[i] = c
	}

	return p
}
