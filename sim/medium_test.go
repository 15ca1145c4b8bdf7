package sim

import (
	"context"
	"testing"
	"time"

	"github.com/arloliu/go-swp/frame"
	"github.com/arloliu/go-swp/swp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMedium(t *testing.T, opts ...Option) (*Medium, *swp.EventQueue, *swp.EventQueue) {
	t.Helper()

	a, b := swp.NewEventQueue(), swp.NewEventQueue()
	m, err := NewMedium(context.Background(), a, b, append([]Option{WithSeed(1)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	return m, a, b
}

// drain returns the events posted to eq within d.
func drain(eq *swp.EventQueue, d time.Duration) []swp.Event {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	var out []swp.Event
	for {
		ev, err := eq.Next(ctx)
		if err != nil {
			return out
		}
		out = append(out, ev)
	}
}

var testFrame = &frame.Frame{Kind: frame.Data, Seq: 2, Ack: 1, Info: frame.Packet("data")}

func TestNewMedium_Invalid(t *testing.T) {
	_, err := NewMedium(context.Background(), nil, swp.NewEventQueue())
	assert.ErrorIs(t, err, ErrNilNotifier)

	eq := swp.NewEventQueue()
	for _, opt := range []Option{
		WithLossRate(-0.1),
		WithCorruptRate(1.5),
		WithDuplicateRate(2),
		WithDelay(-time.Millisecond, time.Millisecond),
		WithDelay(2*time.Millisecond, time.Millisecond),
		WithDelay(0, time.Minute),
		WithName(""),
		WithLogger(nil),
	} {
		_, err := NewMedium(context.Background(), eq, eq, opt)
		assert.Error(t, err)
	}
}

func TestMedium_PerfectChannel(t *testing.T) {
	m, a, b := newTestMedium(t)

	require.NoError(t, m.A().ToPhysicalLayer(testFrame))
	events := drain(b, 50*time.Millisecond)
	require.Len(t, events, 1)
	assert.Equal(t, swp.FrameArrival, events[0].Type)
	assert.Equal(t, testFrame, events[0].Frame)
	assert.NotSame(t, testFrame, events[0].Frame)

	require.NoError(t, m.B().ToPhysicalLayer(&frame.Frame{Kind: frame.Ack, Ack: 2}))
	events = drain(a, 50*time.Millisecond)
	require.Len(t, events, 1)
	assert.Equal(t, frame.Ack, events[0].Frame.Kind)

	assert.Equal(t, uint64(2), m.Metrics().FrameCount.Load())
	assert.Equal(t, uint64(2), m.Metrics().DeliveredCount.Load())
}

func TestMedium_Loss(t *testing.T) {
	m, _, b := newTestMedium(t, WithLossRate(1))

	for i := 0; i < 10; i++ {
		require.NoError(t, m.A().ToPhysicalLayer(testFrame))
	}

	assert.Empty(t, drain(b, 30*time.Millisecond))
	assert.Equal(t, uint64(10), m.Metrics().LostCount.Load())
}

func TestMedium_Corruption(t *testing.T) {
	m, _, b := newTestMedium(t, WithCorruptRate(1))

	for i := 0; i < 20; i++ {
		require.NoError(t, m.A().ToPhysicalLayer(testFrame))
	}

	events := drain(b, 50*time.Millisecond)
	require.Len(t, events, 20)
	for _, ev := range events {
		assert.Equal(t, swp.ChecksumError, ev.Type)
	}
	assert.Equal(t, uint64(20), m.Metrics().CorruptedCount.Load())
}

func TestMedium_Duplication(t *testing.T) {
	m, _, b := newTestMedium(t, WithDuplicateRate(1))

	require.NoError(t, m.A().ToPhysicalLayer(testFrame))

	events := drain(b, 50*time.Millisecond)
	require.Len(t, events, 2)
	assert.Equal(t, testFrame, events[0].Frame)
	assert.Equal(t, testFrame, events[1].Frame)
	assert.Equal(t, uint64(1), m.Metrics().DuplicatedCount.Load())
}

func TestMedium_Delay(t *testing.T) {
	m, _, b := newTestMedium(t, WithDelay(30*time.Millisecond, 40*time.Millisecond))

	start := time.Now()
	require.NoError(t, m.A().ToPhysicalLayer(testFrame))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := b.Next(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestMedium_Close(t *testing.T) {
	m, _, b := newTestMedium(t, WithDelay(time.Second, time.Second))

	require.NoError(t, m.A().ToPhysicalLayer(testFrame))
	m.Close()
	m.Close()

	assert.Empty(t, drain(b, 20*time.Millisecond), "frames in flight are abandoned")
	assert.ErrorIs(t, m.A().ToPhysicalLayer(testFrame), ErrClosed)
}

func TestMedium_SameSeedSamePlan(t *testing.T) {
	opts := []Option{WithLossRate(0.3), WithCorruptRate(0.3), WithDuplicateRate(0.3), WithDelay(0, time.Millisecond)}

	m1, _, _ := newTestMedium(t, opts...)
	m2, _, _ := newTestMedium(t, opts...)

	for i := 0; i < 50; i++ {
		assert.Equal(t, m1.plan(20), m2.plan(20))
	}
}
