package sim_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/arloliu/go-swp/frame"
	"github.com/arloliu/go-swp/netlayer"
	"github.com/arloliu/go-swp/seqnum"
	"github.com/arloliu/go-swp/sim"
	"github.com/arloliu/go-swp/swp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type endpoint struct {
	proto *swp.Protocol
	net   *netlayer.Layer
}

func newEndpoint(t *testing.T, name string, eq *swp.EventQueue, phy swp.PhysicalLayer, maxSeq seqnum.Seq) *endpoint {
	t.Helper()

	nl, err := netlayer.New(eq, netlayer.WithName(name))
	require.NoError(t, err)

	cfg, err := swp.NewConfig(
		swp.WithName(name),
		swp.WithMaxSeq(maxSeq),
		swp.WithRetransmitTimeout(40*time.Millisecond),
		swp.WithAckTimeout(10*time.Millisecond),
	)
	require.NoError(t, err)

	p, err := swp.NewProtocol(cfg, eq, nl, phy)
	require.NoError(t, err)

	return &endpoint{proto: p, net: nl}
}

// exchange runs two engines over a medium built with opts, sends n packets in
// each direction and checks that each side receives the other's packets
// exactly once and in order.
func exchange(t *testing.T, n int, maxSeq seqnum.Seq, opts ...sim.Option) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	eqA, eqB := swp.NewEventQueue(), swp.NewEventQueue()
	medium, err := sim.NewMedium(ctx, eqA, eqB, opts...)
	require.NoError(t, err)
	defer medium.Close()

	a := newEndpoint(t, "A", eqA, medium.A(), maxSeq)
	b := newEndpoint(t, "B", eqB, medium.B(), maxSeq)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 2)
	go func() { done <- a.proto.Run(runCtx) }()
	go func() { done <- b.proto.Run(runCtx) }()
	defer func() {
		stop()
		<-done
		<-done
	}()

	for i := 0; i < n; i++ {
		require.NoError(t, a.net.Send(frame.Packet(fmt.Sprintf("a->b %d", i))))
		require.NoError(t, b.net.Send(frame.Packet(fmt.Sprintf("b->a %d", i))))
	}

	recvAll := func(ep *endpoint, prefix string) {
		for i := 0; i < n; i++ {
			p, err := ep.net.Recv(ctx)
			require.NoError(t, err, "packet %d", i)
			require.Equal(t, fmt.Sprintf("%s %d", prefix, i), string(p))
		}
	}
	recvAll(b, "a->b")
	recvAll(a, "b->a")

	// nothing beyond the sent packets shows up
	extraCtx, extraCancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer extraCancel()
	_, err = b.net.Recv(extraCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, uint64(n), a.proto.Metrics().PacketDeliveredCount.Load())
	assert.Equal(t, uint64(n), b.proto.Metrics().PacketDeliveredCount.Load())
	assert.Equal(t, uint64(0), a.proto.Metrics().RefusedSendCount.Load())
	assert.Equal(t, uint64(0), b.proto.Metrics().RefusedSendCount.Load())
}

func TestExchange_PerfectChannel(t *testing.T) {
	exchange(t, 50, swp.DefaultMaxSeq, sim.WithSeed(1))
}

func TestExchange_LossyChannelWraparound(t *testing.T) {
	// fixed delay keeps each direction in order while the sequence numbers
	// wrap many times
	exchange(t, 100, swp.DefaultMaxSeq,
		sim.WithSeed(7),
		sim.WithLossRate(0.1),
		sim.WithCorruptRate(0.05),
		sim.WithDuplicateRate(0.05),
		sim.WithDelay(time.Millisecond, time.Millisecond),
	)
}

func TestExchange_ReorderingChannel(t *testing.T) {
	// no sequence number is reused, so late copies can never alias a new frame
	exchange(t, 100, 255,
		sim.WithSeed(42),
		sim.WithLossRate(0.1),
		sim.WithCorruptRate(0.05),
		sim.WithDuplicateRate(0.1),
		sim.WithDelay(0, 5*time.Millisecond),
	)
}
