package swp

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-swp/frame"
	"github.com/arloliu/go-swp/seqnum"
	"github.com/stretchr/testify/require"
)

// fakeNetwork is a NetworkLayer that hands out numbered packets and records
// deliveries and credit.
type fakeNetwork struct {
	mu        sync.Mutex
	credit    int
	next      int
	empty     bool // FromNetworkLayer has nothing to hand out
	delivered []frame.Packet
}

func (n *fakeNetwork) EnableNetworkLayer(k int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.credit += k
}

func (n *fakeNetwork) FromNetworkLayer() (frame.Packet, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.empty {
		return nil, false
	}
	n.credit--
	p := frame.Packet("pkt-" + strconv.Itoa(n.next))
	n.next++

	return p, true
}

func (n *fakeNetwork) ToNetworkLayer(p frame.Packet) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, p)
}

func (n *fakeNetwork) SetEmpty(empty bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.empty = empty
}

func (n *fakeNetwork) Credit() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.credit
}

func (n *fakeNetwork) Delivered() []frame.Packet {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]frame.Packet(nil), n.delivered...)
}

// fakePhysical is a PhysicalLayer recording every transmitted frame.
type fakePhysical struct {
	mu     sync.Mutex
	frames []frame.Frame
	err    error
}

func (ph *fakePhysical) ToPhysicalLayer(f *frame.Frame) error {
	ph.mu.Lock()
	defer ph.mu.Unlock()

	if ph.err != nil {
		return ph.err
	}
	c := *f
	c.Info = f.Info.Clone()
	ph.frames = append(ph.frames, c)

	return nil
}

func (ph *fakePhysical) Frames() []frame.Frame {
	ph.mu.Lock()
	defer ph.mu.Unlock()
	return append([]frame.Frame(nil), ph.frames...)
}

// Take returns the recorded frames and forgets them.
func (ph *fakePhysical) Take() []frame.Frame {
	ph.mu.Lock()
	defer ph.mu.Unlock()
	out := ph.frames
	ph.frames = nil
	return out
}

func (ph *fakePhysical) Fail(err error) {
	ph.mu.Lock()
	defer ph.mu.Unlock()
	ph.err = err
}

var errLinkDown = errors.New("link down")

// newTestProtocol creates a protocol with sequence space 0..7 and timers long
// enough never to fire during a test, unless opts override them. The initial
// credit has been granted.
func newTestProtocol(t *testing.T, opts ...Option) (*Protocol, *fakeNetwork, *fakePhysical) {
	t.Helper()

	defaults := []Option{
		WithName("test"),
		WithRetransmitTimeout(time.Hour),
		WithAckTimeout(30 * time.Minute),
	}
	cfg, err := NewConfig(append(defaults, opts...)...)
	require.NoError(t, err)

	net := &fakeNetwork{}
	phy := &fakePhysical{}
	p, err := NewProtocol(cfg, NewEventQueue(), net, phy)
	require.NoError(t, err)
	t.Cleanup(p.timers.stopAll)

	p.init()

	return p, net, phy
}

// sendPackets handles n NetworkLayerReady events.
func sendPackets(p *Protocol, n int) {
	for i := 0; i < n; i++ {
		p.handleEvent(NetworkLayerReadyEvent())
	}
}

func dataFrame(seq, ack seqnum.Seq, info string) *frame.Frame {
	return &frame.Frame{Kind: frame.Data, Seq: seq, Ack: ack, Info: frame.Packet(info)}
}

// noAck is the ack field sent by a peer that has not received anything yet
// in sequence space 0..7.
const noAck seqnum.Seq = 7
