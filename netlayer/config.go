package netlayer

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-swp/frame"
	"github.com/arloliu/go-swp/logger"
)

const (
	// DefaultQueueSize is the initial capacity of the send queues.
	DefaultQueueSize = 16
	// MaxQueueSize is the largest accepted initial queue capacity.
	MaxQueueSize = 1 << 16
)

// Config holds the parameters of a Layer.
type Config struct {
	name        string
	queueSize   int
	deliverFunc func(frame.Packet)
	logger      logger.Logger
}

func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		name:      "netlayer",
		queueSize: DefaultQueueSize,
		logger:    logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option is a functional option for configuring a Layer.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithName sets the name used in log records.
func WithName(name string) Option {
	return optFunc(func(cfg *Config) error {
		if name == "" {
			return errors.New("netlayer: name must not be empty")
		}
		cfg.name = name

		return nil
	})
}

// WithQueueSize sets the initial capacity of the send queues.
func WithQueueSize(size int) Option {
	return optFunc(func(cfg *Config) error {
		if size < 1 || size > MaxQueueSize {
			return fmt.Errorf("netlayer: queue size %d out of range [1, %d]", size, MaxQueueSize)
		}
		cfg.queueSize = size

		return nil
	})
}

// WithDeliverFunc makes the layer hand every delivered packet to fn instead
// of queueing it for Recv. fn runs on the protocol loop goroutine and must
// not block.
func WithDeliverFunc(fn func(frame.Packet)) Option {
	return optFunc(func(cfg *Config) error {
		if fn == nil {
			return errors.New("netlayer: deliver func must not be nil")
		}
		cfg.deliverFunc = fn

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("netlayer: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
