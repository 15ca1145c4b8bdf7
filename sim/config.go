package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-swp/logger"
)

// MaxDelay is the largest accepted propagation delay.
const MaxDelay = 10 * time.Second

// Config holds the channel model of a Medium.
type Config struct {
	name string

	lossRate      float64
	corruptRate   float64
	duplicateRate float64

	minDelay time.Duration
	maxDelay time.Duration

	seed uint64

	logger logger.Logger
}

func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		name:   "sim",
		seed:   uint64(time.Now().UnixNano()), //nolint:gosec // not negative
		logger: logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option is a functional option for configuring a Medium.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

func checkRate(name string, rate float64) error {
	if rate < 0 || rate > 1 {
		return fmt.Errorf("sim: %s rate %v out of range [0, 1]", name, rate)
	}

	return nil
}

// WithName sets the name used in log records.
func WithName(name string) Option {
	return optFunc(func(cfg *Config) error {
		if name == "" {
			return errors.New("sim: name must not be empty")
		}
		cfg.name = name

		return nil
	})
}

// WithLossRate sets the probability that a frame is lost.
func WithLossRate(rate float64) Option {
	return optFunc(func(cfg *Config) error {
		if err := checkRate("loss", rate); err != nil {
			return err
		}
		cfg.lossRate = rate

		return nil
	})
}

// WithCorruptRate sets the probability that a delivered copy is damaged.
func WithCorruptRate(rate float64) Option {
	return optFunc(func(cfg *Config) error {
		if err := checkRate("corrupt", rate); err != nil {
			return err
		}
		cfg.corruptRate = rate

		return nil
	})
}

// WithDuplicateRate sets the probability that a frame is delivered twice.
func WithDuplicateRate(rate float64) Option {
	return optFunc(func(cfg *Config) error {
		if err := checkRate("duplicate", rate); err != nil {
			return err
		}
		cfg.duplicateRate = rate

		return nil
	})
}

// WithDelay sets the propagation delay range. Each copy is delayed by a
// uniformly distributed duration in [minDelay, maxDelay], so a spread between
// the two reorders frames. With minDelay == maxDelay each direction stays in
// order.
//
// The protocol assumes no frame outlives the reuse of its sequence number.
// Keep the spread small relative to the round trip, or use a sequence space
// larger than the number of frames exchanged.
func WithDelay(minDelay, maxDelay time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if minDelay < 0 || maxDelay < minDelay || maxDelay > MaxDelay {
			return fmt.Errorf("sim: invalid delay range [%v, %v]", minDelay, maxDelay)
		}
		cfg.minDelay = minDelay
		cfg.maxDelay = maxDelay

		return nil
	})
}

// WithSeed sets the seed of the random channel model, for reproducible runs.
func WithSeed(seed uint64) Option {
	return optFunc(func(cfg *Config) error {
		cfg.seed = seed
		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("sim: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
