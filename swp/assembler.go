package swp

import (
	"github.com/arloliu/go-swp/frame"
	"github.com/arloliu/go-swp/seqnum"
)

// sendFrame constructs and transmits a DATA, ACK or NAK frame.
//
// Every frame piggybacks ack = Prev(frameExpected), acknowledging all frames
// received before the lower edge of the receive window. frameNr is only
// meaningful for DATA frames, whose payload is taken from the outbound slot
// frameNr % NR_BUFS.
//
// Sending a NAK clears noNak. Sending DATA (re)arms the slot's retransmission
// timer. Any transmission carries a current ack, so the delayed-ACK timer is
// always cancelled.
func (p *Protocol) sendFrame(kind frame.Kind, frameNr seqnum.Seq) {
	w := p.win
	s := &frame.Frame{
		Kind: kind,
		Seq:  frameNr,
		Ack:  p.space.Prev(w.frameExpected),
	}
	if kind == frame.Data {
		s.Info = w.outBuf[p.space.Slot(frameNr)]
	}
	if kind == frame.Nak {
		w.noNak = false // at most one NAK per error episode
	}

	p.logger.Debug("swp: sending frame",
		"name", p.cfg.name,
		"kind", kind.String(),
		"seq", s.Seq,
		"ack", s.Ack,
		"info", len(s.Info),
	)

	if err := p.phy.ToPhysicalLayer(s); err != nil {
		p.metrics.incSendErrCount()
		p.logger.Warn("swp: physical layer send failed", "name", p.cfg.name, "kind", kind.String(), "error", err)
	} else {
		p.metrics.incSent(kind)
	}

	if kind == frame.Data {
		p.timers.startRetransmit(frameNr)
	}
	p.timers.stopAck()
}
