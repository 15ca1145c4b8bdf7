package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-swp/frame"
	"github.com/arloliu/go-swp/internal/task"
	"github.com/arloliu/go-swp/logger"
	"github.com/arloliu/go-swp/swp"
)

// Stream is a KISS-framed link over a byte stream.
type Stream struct {
	cfg    *Config
	logger logger.Logger
	rwc    io.ReadWriteCloser
	recv   *receiver

	writeMu sync.Mutex

	startMu sync.Mutex
	taskMgr *task.Manager

	decoder *kissDecoder
	readBuf []byte

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	metrics Metrics
}

// NewStream creates a link over rwc that reports received frames to n.
// The reader is not running until Start is called.
func NewStream(rwc io.ReadWriteCloser, n swp.Notifier, opts ...Option) (*Stream, error) {
	if rwc == nil {
		return nil, errors.New("link: stream is nil")
	}
	if n == nil {
		return nil, ErrNilNotifier
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		cfg:     cfg,
		logger:  cfg.logger,
		rwc:     rwc,
		decoder: newKISSDecoder(maxEncodedFrameSize),
		readBuf: make([]byte, cfg.readBufferSize),
	}
	s.recv = &receiver{name: cfg.name, notifier: n, logger: cfg.logger, metrics: &s.metrics}

	return s, nil
}

// Metrics returns the link metrics.
func (s *Stream) Metrics() *Metrics {
	return &s.metrics
}

// Start starts the reader task.
func (s *Stream) Start(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.closed.Load() {
		return ErrLinkClosed
	}
	if s.taskMgr != nil {
		return ErrAlreadyStarted
	}

	s.taskMgr = task.NewManager(ctx, s.logger)
	// a blocked Read only returns once the stream is closed
	context.AfterFunc(s.taskMgr.Context(), func() { _ = s.closeStream() })

	return s.taskMgr.Start(s.cfg.name+"-reader", s.readOnce, func() {
		s.logger.Debug("link: stream reader exited", "name", s.cfg.name)
	})
}

// ToPhysicalLayer implements swp.PhysicalLayer.
func (s *Stream) ToPhysicalLayer(f *frame.Frame) error {
	if s.closed.Load() {
		return ErrLinkClosed
	}

	data, err := f.Pack()
	if err != nil {
		return err
	}
	buf := encodeKISS(data)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	n, err := s.rwc.Write(buf)
	s.metrics.addBytesSent(n)
	if err != nil {
		s.metrics.incWriteErrCount()
		return fmt.Errorf("link: write %s: %w", f, err)
	}
	s.metrics.incFrameSentCount()

	return nil
}

// Close closes the stream and waits for the reader to exit.
func (s *Stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.startMu.Lock()
	mgr := s.taskMgr
	s.startMu.Unlock()

	if mgr != nil {
		mgr.Stop()
	}
	err := s.closeStream()
	if mgr != nil {
		mgr.Wait()
	}

	s.logger.Debug("link: stream closed", "name", s.cfg.name)

	return err
}

func (s *Stream) closeStream() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.rwc.Close()
	})

	return s.closeErr
}

func (s *Stream) readOnce(ctx context.Context) bool {
	n, err := s.rwc.Read(s.readBuf)
	if n > 0 {
		s.metrics.addBytesRecv(n)
		for _, payload := range s.decoder.feed(s.readBuf[:n]) {
			s.recv.deliver(payload)
		}
		s.metrics.addDroppedCount(s.decoder.takeDropped())
	}

	if err == nil {
		// serial ports report a read timeout as (0, nil)
		return true
	}

	if s.closed.Load() || ctx.Err() != nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, io.EOF) {
		s.logger.Info("link: stream closed by peer", "name", s.cfg.name)
	} else {
		s.logger.Warn("link: stream read failed", "name", s.cfg.name, "error", err)
	}

	return false
}
