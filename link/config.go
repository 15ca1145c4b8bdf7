package link

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/arloliu/go-swp/frame"
	"github.com/arloliu/go-swp/logger"
)

const (
	// DefaultReadBufferSize is the size of a single read from a byte stream.
	DefaultReadBufferSize = 4096
	// DefaultSerialReadTimeout bounds a single serial port read.
	DefaultSerialReadTimeout = 100 * time.Millisecond
	// DefaultWriteTimeout bounds a single write.
	DefaultWriteTimeout = 5 * time.Second
)

// maxEncodedFrameSize is the largest KISS frame body a valid frame can
// produce: the command byte plus every byte of the packed frame escaped.
const maxEncodedFrameSize = 1 + 2*(frame.MinFrameSize+frame.MaxInfoSize)

// Config holds the parameters shared by all link types.
type Config struct {
	name              string
	readBufferSize    int
	serialReadTimeout time.Duration
	writeTimeout      time.Duration
	checkOrigin       func(r *http.Request) bool
	logger            logger.Logger
}

func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		name:              "link",
		readBufferSize:    DefaultReadBufferSize,
		serialReadTimeout: DefaultSerialReadTimeout,
		writeTimeout:      DefaultWriteTimeout,
		logger:            logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option is a functional option for configuring a link.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithName sets the name used in log records.
func WithName(name string) Option {
	return optFunc(func(cfg *Config) error {
		if name == "" {
			return errors.New("link: name must not be empty")
		}
		cfg.name = name

		return nil
	})
}

// WithReadBufferSize sets the size of a single read from a byte stream.
func WithReadBufferSize(size int) Option {
	return optFunc(func(cfg *Config) error {
		if size < 64 || size > 1<<20 {
			return fmt.Errorf("link: read buffer size %d out of range [64, %d]", size, 1<<20)
		}
		cfg.readBufferSize = size

		return nil
	})
}

// WithSerialReadTimeout sets the read timeout of a serial port.
func WithSerialReadTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < time.Millisecond || d > time.Minute {
			return fmt.Errorf("link: serial read timeout %v out of range [1ms, 1m]", d)
		}
		cfg.serialReadTimeout = d

		return nil
	})
}

// WithWriteTimeout sets the deadline of a single websocket or network write.
func WithWriteTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < time.Millisecond || d > time.Hour {
			return fmt.Errorf("link: write timeout %v out of range [1ms, 1h]", d)
		}
		cfg.writeTimeout = d

		return nil
	})
}

// WithCheckOrigin sets the origin check of WebSocketHandler. By default
// cross-origin requests are rejected.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return optFunc(func(cfg *Config) error {
		cfg.checkOrigin = fn
		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("link: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
