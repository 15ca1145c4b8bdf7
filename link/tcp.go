package link

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/arloliu/go-swp/swp"
)

// DialTCP connects to addr and returns a Stream over the connection.
func DialTCP(ctx context.Context, addr string, n swp.Notifier, opts ...Option) (*Stream, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("link: dial %s: %w", addr, err)
	}

	s, err := NewStream(conn, n, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// AcceptTCP waits for one connection on ln and returns a Stream over it.
// It returns ctx.Err() if ctx is done first; the listener is left open.
func AcceptTCP(ctx context.Context, ln net.Listener, n swp.Notifier, opts ...Option) (*Stream, error) {
	if dl, ok := ln.(deadliner); ok {
		stop := context.AfterFunc(ctx, func() { _ = dl.SetDeadline(time.Now()) })
		defer func() {
			if !stop() {
				_ = dl.SetDeadline(time.Time{})
			}
		}()
	}

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, fmt.Errorf("link: accept: %w", err)
	}

	s, err := NewStream(conn, n, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}
