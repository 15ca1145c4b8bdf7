package swp

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-swp/seqnum"
	"github.com/puzpuzpuz/xsync/v3"
)

// slotTimer is an armed retransmission timer of one send-window slot.
type slotTimer struct {
	seq   seqnum.Seq
	gen   uint64
	timer *time.Timer
}

// timerSet is the timer subsystem of a Protocol: one retransmission timer per
// send-window slot and one shared delayed-ACK timer.
//
// Expiry callbacks run on their own goroutines and only call the Notifier
// hooks. Every armed timer carries a generation number; a callback whose
// timer has been cancelled or re-armed in the meantime does not post.
// A Timeout may still be observed after cancellation when the callback
// posted just before the cancel, the protocol loop treats that as stale.
type timerSet struct {
	space             seqnum.Space
	retransmitTimeout time.Duration
	ackTimeout        time.Duration
	notifier          Notifier

	retx *xsync.MapOf[int, *slotTimer] // keyed by slot, seq % NR_BUFS
	gen  atomic.Uint64

	ackMu    sync.Mutex
	ackTimer *time.Timer
	ackGen   uint64
}

func newTimerSet(cfg *Config, n Notifier) *timerSet {
	return &timerSet{
		space:             cfg.space,
		retransmitTimeout: cfg.retransmitTimeout,
		ackTimeout:        cfg.ackTimeout,
		notifier:          n,
		retx:              xsync.NewMapOf[int, *slotTimer](),
	}
}

// startRetransmit (re)arms the retransmission timer of seq's slot.
// Any timer already armed for the slot is cancelled first.
func (ts *timerSet) startRetransmit(seq seqnum.Seq) {
	slot := ts.space.Slot(seq)
	gen := ts.gen.Add(1)

	ts.retx.Compute(slot, func(old *slotTimer, loaded bool) (*slotTimer, bool) {
		if loaded {
			old.timer.Stop()
		}

		st := &slotTimer{seq: seq, gen: gen}
		// the callback's Compute on this slot waits until this one returns
		st.timer = time.AfterFunc(ts.retransmitTimeout, func() {
			ts.fireRetransmit(slot, gen, seq)
		})

		return st, false
	})
}

// stopRetransmit cancels the retransmission timer of seq's slot, if armed.
func (ts *timerSet) stopRetransmit(seq seqnum.Seq) {
	ts.retx.Compute(ts.space.Slot(seq), func(old *slotTimer, loaded bool) (*slotTimer, bool) {
		if loaded {
			old.timer.Stop()
		}

		return nil, true
	})
}

func (ts *timerSet) fireRetransmit(slot int, gen uint64, seq seqnum.Seq) {
	fired := false
	ts.retx.Compute(slot, func(old *slotTimer, loaded bool) (*slotTimer, bool) {
		if !loaded {
			return nil, true
		}
		if old.gen != gen {
			return old, false // re-armed for a newer transmission
		}
		fired = true

		return nil, true
	})

	if fired {
		ts.notifier.NotifyTimeout(seq)
	}
}

// retransmitArmed reports whether a retransmission timer for seq is armed.
func (ts *timerSet) retransmitArmed(seq seqnum.Seq) bool {
	st, ok := ts.retx.Load(ts.space.Slot(seq))

	return ok && st.seq == seq
}

// startAck arms the delayed-ACK timer unless it is already armed.
func (ts *timerSet) startAck() {
	ts.ackMu.Lock()
	defer ts.ackMu.Unlock()

	if ts.ackTimer != nil {
		return
	}

	ts.ackGen++
	gen := ts.ackGen
	ts.ackTimer = time.AfterFunc(ts.ackTimeout, func() {
		ts.fireAck(gen)
	})
}

// stopAck cancels the delayed-ACK timer, if armed.
func (ts *timerSet) stopAck() {
	ts.ackMu.Lock()
	defer ts.ackMu.Unlock()

	if ts.ackTimer != nil {
		ts.ackTimer.Stop()
		ts.ackTimer = nil
	}
}

func (ts *timerSet) fireAck(gen uint64) {
	ts.ackMu.Lock()
	if ts.ackTimer == nil || ts.ackGen != gen {
		ts.ackMu.Unlock()
		return
	}
	ts.ackTimer = nil
	ts.ackMu.Unlock()

	ts.notifier.NotifyAckTimeout()
}

// ackArmed reports whether the delayed-ACK timer is armed.
func (ts *timerSet) ackArmed() bool {
	ts.ackMu.Lock()
	defer ts.ackMu.Unlock()

	return ts.ackTimer != nil
}

// stopAll cancels every armed timer.
func (ts *timerSet) stopAll() {
	ts.retx.Range(func(slot int, _ *slotTimer) bool {
		ts.retx.Compute(slot, func(old *slotTimer, loaded bool) (*slotTimer, bool) {
			if loaded {
				old.timer.Stop()
			}

			return nil, true
		})

		return true
	})
	ts.stopAck()
}
