package swp

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-swp/logger"
	"github.com/arloliu/go-swp/seqnum"
)

// Default protocol parameters.
const (
	DefaultMaxSeq            seqnum.Seq = 7                      // sequence space 0..7, window 4
	DefaultRetransmitTimeout            = 200 * time.Millisecond // per-frame retransmission timer
	DefaultAckTimeout                   = 50 * time.Millisecond  // delayed-ACK timer
)

// Parameter limits.
const (
	MinTimeout = time.Millisecond
	MaxTimeout = time.Hour
)

// Config holds the parameters of a Protocol.
type Config struct {
	space seqnum.Space

	retransmitTimeout time.Duration
	ackTimeout        time.Duration

	// name identifies the link end in log records.
	name string

	logger logger.Logger
}

// NewConfig creates a protocol configuration.
//
// opts are functional options applied in order; see With* functions.
// The delayed-ACK timeout must stay below the retransmission timeout,
// otherwise the peer would retransmit before a standalone ACK is sent.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		space:             seqnum.MustSpace(DefaultMaxSeq),
		retransmitTimeout: DefaultRetransmitTimeout,
		ackTimeout:        DefaultAckTimeout,
		name:              "swp",
		logger:            logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.ackTimeout >= cfg.retransmitTimeout {
		return nil, fmt.Errorf("swp: ack timeout %v must be less than retransmit timeout %v",
			cfg.ackTimeout, cfg.retransmitTimeout)
	}

	return cfg, nil
}

// Space returns the sequence space.
func (cfg *Config) Space() seqnum.Space { return cfg.space }

// MaxSeq returns the largest sequence number.
func (cfg *Config) MaxSeq() seqnum.Seq { return cfg.space.MaxSeq() }

// WindowSize returns NR_BUFS, the number of frames that may be outstanding.
func (cfg *Config) WindowSize() int { return cfg.space.WindowSize() }

// RetransmitTimeout returns the retransmission timer interval.
func (cfg *Config) RetransmitTimeout() time.Duration { return cfg.retransmitTimeout }

// AckTimeout returns the delayed-ACK timer interval.
func (cfg *Config) AckTimeout() time.Duration { return cfg.ackTimeout }

// Name returns the name used in log records.
func (cfg *Config) Name() string { return cfg.name }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithMaxSeq sets the largest sequence number. maxSeq+1 must be even, so
// maxSeq is odd and in [1, 255]. The window size becomes (maxSeq+1)/2.
func WithMaxSeq(maxSeq seqnum.Seq) Option {
	return optFunc(func(cfg *Config) error {
		space, err := seqnum.NewSpace(maxSeq)
		if err != nil {
			return fmt.Errorf("swp: invalid max sequence number %d: %w", maxSeq, err)
		}
		cfg.space = space

		return nil
	})
}

// WithRetransmitTimeout sets the retransmission timer interval.
func WithRetransmitTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinTimeout || d > MaxTimeout {
			return fmt.Errorf("swp: retransmit timeout %v out of range [%v, %v]", d, MinTimeout, MaxTimeout)
		}
		cfg.retransmitTimeout = d

		return nil
	})
}

// WithAckTimeout sets the delayed-ACK timer interval.
func WithAckTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinTimeout || d > MaxTimeout {
			return fmt.Errorf("swp: ack timeout %v out of range [%v, %v]", d, MinTimeout, MaxTimeout)
		}
		cfg.ackTimeout = d

		return nil
	})
}

// WithName sets the name identifying this end of the link in log records.
func WithName(name string) Option {
	return optFunc(func(cfg *Config) error {
		if name == "" {
			return errors.New("swp: name must not be empty")
		}
		cfg.name = name

		return nil
	})
}

// WithLogger sets the logger for the protocol.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("swp: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
