package swp

import (
	"testing"
	"time"

	"github.com/arloliu/go-swp/logger"
	"github.com/arloliu/go-swp/seqnum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxSeq, cfg.MaxSeq())
	assert.Equal(t, 4, cfg.WindowSize())
	assert.Equal(t, 8, cfg.Space().Modulus())
	assert.Equal(t, DefaultRetransmitTimeout, cfg.RetransmitTimeout())
	assert.Equal(t, DefaultAckTimeout, cfg.AckTimeout())
	assert.Equal(t, "swp", cfg.Name())
	assert.NotNil(t, cfg.GetLogger())
}

func TestNewConfig_WithOptions(t *testing.T) {
	l := logger.NewMockLogger()
	cfg, err := NewConfig(
		WithMaxSeq(15),
		WithRetransmitTimeout(time.Second),
		WithAckTimeout(100*time.Millisecond),
		WithName("A"),
		WithLogger(l),
	)
	require.NoError(t, err)

	assert.Equal(t, seqnum.Seq(15), cfg.MaxSeq())
	assert.Equal(t, 8, cfg.WindowSize())
	assert.Equal(t, time.Second, cfg.RetransmitTimeout())
	assert.Equal(t, 100*time.Millisecond, cfg.AckTimeout())
	assert.Equal(t, "A", cfg.Name())
	assert.Same(t, l, cfg.GetLogger())
}

func TestNewConfig_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		msg  string
	}{
		{"even max seq", WithMaxSeq(6), "max sequence number"},
		{"zero max seq", WithMaxSeq(0), "max sequence number"},
		{"retransmit too short", WithRetransmitTimeout(time.Microsecond), "retransmit timeout"},
		{"retransmit too long", WithRetransmitTimeout(2 * time.Hour), "retransmit timeout"},
		{"ack too short", WithAckTimeout(0), "ack timeout"},
		{"empty name", WithName(""), "name"},
		{"nil logger", WithLogger(nil), "logger"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.opt)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestNewConfig_AckTimeoutBelowRetransmit(t *testing.T) {
	_, err := NewConfig(WithRetransmitTimeout(50*time.Millisecond), WithAckTimeout(50*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be less than")

	_, err = NewConfig(WithRetransmitTimeout(50*time.Millisecond), WithAckTimeout(49*time.Millisecond))
	require.NoError(t, err)
}

func TestWithMaxSeq_Largest(t *testing.T) {
	cfg, err := NewConfig(WithMaxSeq(255))
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.WindowSize())
}
