package swp

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-swp/frame"
	"github.com/arloliu/go-swp/logger"
	"github.com/arloliu/go-swp/seqnum"
)

// NetworkLayer is the upper layer served by a Protocol.
//
// All methods are called from the protocol loop goroutine.
type NetworkLayer interface {
	// EnableNetworkLayer grants n more units of send credit. The network
	// layer posts one NetworkLayerReady event per packet it wants to send
	// and may never have more of them pending than the credit it was granted.
	EnableNetworkLayer(n int)
	// FromNetworkLayer returns the packet announced by the NetworkLayerReady
	// event being handled. It reports false when no packet was announced.
	FromNetworkLayer() (frame.Packet, bool)
	// ToNetworkLayer delivers a packet upward, in order and without duplicates.
	ToNetworkLayer(p frame.Packet)
}

// PhysicalLayer transmits frames to the peer.
//
// ToPhysicalLayer is called from the protocol loop goroutine. The frame and
// its payload must not be retained or modified after the call returns.
// A returned error is logged and the frame is treated as lost.
type PhysicalLayer interface {
	ToPhysicalLayer(f *frame.Frame) error
}

// window holds all sender and receiver state of a Protocol. It is owned by
// the goroutine running the protocol loop.
type window struct {
	// sender
	ackExpected     seqnum.Seq     // lower edge of the send window
	nextFrameToSend seqnum.Seq     // upper edge of the send window + 1
	nbuffered       int            // outstanding frames, Distance(ackExpected, nextFrameToSend)
	outBuf          []frame.Packet // indexed by seq % NR_BUFS

	// receiver
	frameExpected seqnum.Seq     // lower edge of the receive window
	tooFar        seqnum.Seq     // upper edge of the receive window + 1
	inBuf         []frame.Packet // indexed by seq % NR_BUFS
	arrived       []bool         // inBuf slot holds an undelivered packet

	// noNak is true while no NAK has been sent since the last in-order delivery.
	noNak bool

	// ackOwed is true when Run stopped with the delayed-ACK timer armed.
	ackOwed bool
}

func newWindow(space seqnum.Space) *window {
	nrBufs := space.WindowSize()

	return &window{
		tooFar:  seqnum.Seq(nrBufs),
		outBuf:  make([]frame.Packet, nrBufs),
		inBuf:   make([]frame.Packet, nrBufs),
		arrived: make([]bool, nrBufs),
		noNak:   true,
	}
}

// Protocol is a sliding-window selective-repeat protocol engine for one end
// of a point-to-point link.
type Protocol struct {
	cfg    *Config
	logger logger.Logger
	space  seqnum.Space
	nrBufs int

	events *EventQueue
	timers *timerSet
	net    NetworkLayer
	phy    PhysicalLayer

	win *window

	initOnce sync.Once
	running  atomic.Bool

	metrics Metrics
}

// NewProtocol creates a protocol engine.
//
// events is the queue the collaborators post to; net and phy are the upper
// and lower layers. The protocol's own timers post to events as well.
func NewProtocol(cfg *Config, events *EventQueue, net NetworkLayer, phy PhysicalLayer) (*Protocol, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if events == nil {
		return nil, ErrNilEventQueue
	}
	if net == nil || phy == nil {
		return nil, ErrNilLayer
	}

	return &Protocol{
		cfg:    cfg,
		logger: cfg.logger,
		space:  cfg.space,
		nrBufs: cfg.space.WindowSize(),
		events: events,
		timers: newTimerSet(cfg, events),
		net:    net,
		phy:    phy,
		win:    newWindow(cfg.space),
	}, nil
}

// Metrics returns the protocol metrics.
func (p *Protocol) Metrics() *Metrics {
	return &p.metrics
}

// Events returns the event queue of the protocol.
func (p *Protocol) Events() *EventQueue {
	return p.events
}

// Run executes the protocol loop until ctx is done.
//
// On the first call the network layer is granted NR_BUFS units of send
// credit. Each iteration handles exactly one event to completion. Run returns
// ctx.Err() after cancelling all timers; the window state is kept, so Run may
// be called again to resume. A resumed Run re-arms the retransmission timer of
// every outstanding frame and the delayed-ACK timer if an ACK was owed.
func (p *Protocol) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer p.running.Store(false)
	defer p.suspend()

	p.logger.Info("swp: protocol loop started",
		"name", p.cfg.name,
		"maxSeq", p.space.MaxSeq(),
		"window", p.nrBufs,
	)
	p.init()
	p.resume()

	for {
		ev, err := p.events.Next(ctx)
		if err != nil {
			p.logger.Info("swp: protocol loop stopped", "name", p.cfg.name, "reason", err)
			return err
		}

		p.handleEvent(ev)
	}
}

// init grants the initial send credit, once per Protocol.
func (p *Protocol) init() {
	p.initOnce.Do(func() {
		p.net.EnableNetworkLayer(p.nrBufs)
	})
}

// resume re-arms the timers cancelled by the previous Run.
func (p *Protocol) resume() {
	w := p.win
	for s := w.ackExpected; s != w.nextFrameToSend; s = p.space.Inc(s) {
		p.timers.startRetransmit(s)
	}
	if w.ackOwed {
		w.ackOwed = false
		p.timers.startAck()
	}

	if w.nbuffered > 0 {
		p.logger.Debug("swp: timers re-armed", "name", p.cfg.name, "outstanding", w.nbuffered)
	}
}

func (p *Protocol) suspend() {
	p.win.ackOwed = p.timers.ackArmed()
	p.timers.stopAll()
}

func (p *Protocol) handleEvent(ev Event) {
	switch ev.Type {
	case NetworkLayerReady:
		p.onNetworkLayerReady()
	case FrameArrival:
		p.onFrameArrival(ev.Frame)
	case ChecksumError:
		p.onChecksumError()
	case Timeout:
		p.onTimeout(ev.Seq)
	case AckTimeout:
		p.onAckTimeout()
	default:
		p.metrics.incUndefinedEventCount()
		p.logger.Warn("swp: undefined event type", "name", p.cfg.name, "type", uint8(ev.Type))
	}
}

// onNetworkLayerReady accepts, saves and transmits a new frame.
func (p *Protocol) onNetworkLayerReady() {
	w := p.win
	if w.nbuffered >= p.nrBufs {
		p.metrics.incRefusedSendCount()
		p.logger.Warn("swp: send window full, packet refused",
			"name", p.cfg.name,
			"ackExpected", w.ackExpected,
			"nextFrameToSend", w.nextFrameToSend,
		)

		return
	}

	pkt, ok := p.net.FromNetworkLayer()
	if !ok {
		p.metrics.incRefusedSendCount()
		p.logger.Warn("swp: network layer ready without a packet", "name", p.cfg.name)

		return
	}

	w.nbuffered++
	w.outBuf[p.space.Slot(w.nextFrameToSend)] = pkt
	p.metrics.incPacketSentCount()
	p.metrics.setOutstandingGauge(w.nbuffered)

	p.sendFrame(frame.Data, w.nextFrameToSend)
	w.nextFrameToSend = p.space.Inc(w.nextFrameToSend)
}

// onFrameArrival handles an intact DATA, ACK or NAK frame.
func (p *Protocol) onFrameArrival(r *frame.Frame) {
	if r == nil {
		p.metrics.incInvalidFrameCount()
		p.logger.Warn("swp: frame arrival without frame", "name", p.cfg.name)

		return
	}
	if !p.space.Contains(r.Seq) || !p.space.Contains(r.Ack) {
		// a peer with a different sequence space; handled like a damaged frame
		p.metrics.incInvalidFrameCount()
		p.logger.Warn("swp: frame outside sequence space", "name", p.cfg.name, "frame", r.String())
		p.onChecksumError()

		return
	}

	p.metrics.incFrameRecvCount()
	w := p.win

	if r.Kind == frame.Data {
		if r.Seq != w.frameExpected && w.noNak {
			p.sendFrame(frame.Nak, 0)
		} else {
			p.timers.startAck()
		}

		slot := p.space.Slot(r.Seq)
		if seqnum.Between(w.frameExpected, r.Seq, w.tooFar) && !w.arrived[slot] {
			// frames may be accepted in any order
			w.arrived[slot] = true
			w.inBuf[slot] = r.Info
			p.deliverInOrder()
		} else {
			p.metrics.incOutOfWindowCount()
			p.logger.Debug("swp: data frame dropped",
				"name", p.cfg.name,
				"seq", r.Seq,
				"frameExpected", w.frameExpected,
				"tooFar", w.tooFar,
			)
		}
	}

	if r.Kind == frame.Nak {
		nakked := p.space.Inc(r.Ack)
		if seqnum.Between(w.ackExpected, nakked, w.nextFrameToSend) {
			p.metrics.incRetransmitCount()
			p.sendFrame(frame.Data, nakked)
		}
	}

	p.processAck(r.Ack)
}

// deliverInOrder passes buffered packets upward and advances the receive window.
func (p *Protocol) deliverInOrder() {
	w := p.win
	for {
		slot := p.space.Slot(w.frameExpected)
		if !w.arrived[slot] {
			return
		}

		p.net.ToNetworkLayer(w.inBuf[slot])
		p.metrics.incPacketDeliveredCount()

		w.noNak = true
		w.arrived[slot] = false
		w.inBuf[slot] = nil
		w.frameExpected = p.space.Inc(w.frameExpected)
		w.tooFar = p.space.Inc(w.tooFar)

		// a separate ack is sent if no reverse traffic picks this one up
		p.timers.startAck()
	}
}

// processAck handles a piggybacked cumulative acknowledgement.
func (p *Protocol) processAck(ack seqnum.Seq) {
	w := p.win
	for seqnum.Between(w.ackExpected, ack, w.nextFrameToSend) {
		w.nbuffered--
		p.net.EnableNetworkLayer(1)
		p.timers.stopRetransmit(w.ackExpected)
		w.outBuf[p.space.Slot(w.ackExpected)] = nil
		w.ackExpected = p.space.Inc(w.ackExpected)
	}
	p.metrics.setOutstandingGauge(w.nbuffered)
}

func (p *Protocol) onChecksumError() {
	p.metrics.incChecksumErrCount()
	if p.win.noNak {
		p.sendFrame(frame.Nak, 0)
	}
}

// onTimeout retransmits the frame whose timer expired. A timeout for a frame
// that has been acknowledged in the meantime is ignored: its slot may already
// hold a newer frame whose timer must not be disturbed.
func (p *Protocol) onTimeout(seq seqnum.Seq) {
	w := p.win
	if !seqnum.Between(w.ackExpected, seq, w.nextFrameToSend) {
		p.metrics.incStaleTimeoutCount()
		p.logger.Debug("swp: stale timeout ignored",
			"name", p.cfg.name,
			"seq", seq,
			"ackExpected", w.ackExpected,
			"nextFrameToSend", w.nextFrameToSend,
		)

		return
	}

	p.metrics.incRetransmitCount()
	p.sendFrame(frame.Data, seq)
}

func (p *Protocol) onAckTimeout() {
	p.sendFrame(frame.Ack, 0)
}
