// Package link provides physical layers for the sliding window protocol.
//
// A link writes packed frames to a medium and reads frames from it on a
// background task. Every received frame is reported to a swp.Notifier: an
// intact frame as FrameArrival, anything that fails to parse as
// ChecksumError.
//
// Byte streams (TCP connections, serial ports) delimit frames with KISS
// framing. WebSocket links send one binary message per frame.
package link

import (
	"context"

	"github.com/arloliu/go-swp/frame"
	"github.com/arloliu/go-swp/logger"
	"github.com/arloliu/go-swp/swp"
)

// Link is a physical layer with a lifecycle.
type Link interface {
	swp.PhysicalLayer
	// Start starts the background reader. It stops when ctx is done or
	// the link is closed.
	Start(ctx context.Context) error
	// Close closes the medium and waits for the reader to exit.
	Close() error
	// Metrics returns the link metrics.
	Metrics() *Metrics
}

var (
	_ Link = (*Stream)(nil)
	_ Link = (*WebSocket)(nil)
)

// receiver reports received frame payloads to a Notifier.
type receiver struct {
	name     string
	notifier swp.Notifier
	logger   logger.Logger
	metrics  *Metrics
}

func (r *receiver) deliver(payload []byte) {
	f, err := frame.Parse(payload)
	if err != nil {
		r.metrics.incParseErrCount()
		r.logger.Debug("link: damaged frame", "name", r.name, "size", len(payload), "error", err)
		r.notifier.NotifyChecksumError()

		return
	}

	r.metrics.incFrameRecvCount()
	r.notifier.NotifyFrameArrival(f)
}
