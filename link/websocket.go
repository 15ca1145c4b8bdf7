package link

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-swp/frame"
	"github.com/arloliu/go-swp/internal/task"
	"github.com/arloliu/go-swp/logger"
	"github.com/arloliu/go-swp/swp"
	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
)

const (
	webSocketReadBufferSize  = 8192
	webSocketWriteBufferSize = 8192
)

// WebSocket is a link carrying one frame per binary websocket message.
type WebSocket struct {
	cfg    *Config
	logger logger.Logger
	conn   *websocket.Conn
	recv   *receiver

	writeMu sync.Mutex

	startMu sync.Mutex
	taskMgr *task.Manager

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	metrics Metrics
}

// NewWebSocket creates a link over an established websocket connection.
// The reader is not running until Start is called.
func NewWebSocket(conn *websocket.Conn, n swp.Notifier, opts ...Option) (*WebSocket, error) {
	if conn == nil {
		return nil, errors.New("link: websocket connection is nil")
	}
	if n == nil {
		return nil, ErrNilNotifier
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(int64(frame.MinFrameSize + frame.MaxInfoSize))

	ws := &WebSocket{
		cfg:    cfg,
		logger: cfg.logger,
		conn:   conn,
	}
	ws.recv = &receiver{name: cfg.name, notifier: n, logger: cfg.logger, metrics: &ws.metrics}

	return ws, nil
}

// DialWebSocket connects to the websocket endpoint at url.
func DialWebSocket(ctx context.Context, url string, n swp.Notifier, opts ...Option) (*WebSocket, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   webSocketReadBufferSize,
		WriteBufferSize:  webSocketWriteBufferSize,
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("link: dial %s: %w (status %d)", url, err, resp.StatusCode)
		}

		return nil, fmt.Errorf("link: dial %s: %w", url, err)
	}

	ws, err := NewWebSocket(conn, n, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return ws, nil
}

// WebSocketHandler returns an HTTP handler that upgrades a request to a
// websocket link reporting to n, and hands the unstarted link to accept.
// A panic in accept is recovered and logged.
func WebSocketHandler(n swp.Notifier, accept func(ws *WebSocket), opts ...Option) (http.Handler, error) {
	if n == nil {
		return nil, ErrNilNotifier
	}
	if accept == nil {
		return nil, errors.New("link: accept func is nil")
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  webSocketReadBufferSize,
		WriteBufferSize: webSocketWriteBufferSize,
		CheckOrigin:     cfg.checkOrigin,
	}

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied with an HTTP error
			cfg.logger.Warn("link: websocket upgrade failed", "name", cfg.name, "remote", r.RemoteAddr, "error", err)
			return
		}

		ws, err := NewWebSocket(conn, n, opts...)
		if err != nil {
			cfg.logger.Error("link: websocket link setup failed", "name", cfg.name, "error", err)
			_ = conn.Close()

			return
		}

		cfg.logger.Info("link: websocket accepted", "name", cfg.name, "remote", r.RemoteAddr)
		accept(ws)
	})

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{l: cfg.logger, name: cfg.name}),
		handlers.PrintRecoveryStack(false),
	)

	return recovery(h), nil
}

// recoveryLogger adapts a Logger to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	l    logger.Logger
	name string
}

func (r recoveryLogger) Println(v ...any) {
	r.l.Error("link: websocket handler panic", "name", r.name, "panic", fmt.Sprint(v...))
}

// Metrics returns the link metrics.
func (ws *WebSocket) Metrics() *Metrics {
	return &ws.metrics
}

// Start starts the reader task.
func (ws *WebSocket) Start(ctx context.Context) error {
	ws.startMu.Lock()
	defer ws.startMu.Unlock()

	if ws.closed.Load() {
		return ErrLinkClosed
	}
	if ws.taskMgr != nil {
		return ErrAlreadyStarted
	}

	ws.taskMgr = task.NewManager(ctx, ws.logger)
	context.AfterFunc(ws.taskMgr.Context(), func() { _ = ws.closeConn() })

	return ws.taskMgr.Start(ws.cfg.name+"-reader", ws.readOnce, func() {
		ws.logger.Debug("link: websocket reader exited", "name", ws.cfg.name)
	})
}

// ToPhysicalLayer implements swp.PhysicalLayer.
func (ws *WebSocket) ToPhysicalLayer(f *frame.Frame) error {
	if ws.closed.Load() {
		return ErrLinkClosed
	}

	data, err := f.Pack()
	if err != nil {
		return err
	}

	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()

	_ = ws.conn.SetWriteDeadline(time.Now().Add(ws.cfg.writeTimeout))
	if err := ws.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		ws.metrics.incWriteErrCount()
		return fmt.Errorf("link: write %s: %w", f, err)
	}
	ws.metrics.addBytesSent(len(data))
	ws.metrics.incFrameSentCount()

	return nil
}

// Close sends a close message, closes the connection and waits for the
// reader to exit.
func (ws *WebSocket) Close() error {
	if !ws.closed.CompareAndSwap(false, true) {
		return nil
	}

	ws.writeMu.Lock()
	_ = ws.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	ws.writeMu.Unlock()

	ws.startMu.Lock()
	mgr := ws.taskMgr
	ws.startMu.Unlock()

	if mgr != nil {
		mgr.Stop()
	}
	err := ws.closeConn()
	if mgr != nil {
		mgr.Wait()
	}

	ws.logger.Debug("link: websocket closed", "name", ws.cfg.name)

	return err
}

func (ws *WebSocket) closeConn() error {
	ws.closeOnce.Do(func() {
		ws.closeErr = ws.conn.Close()
	})

	return ws.closeErr
}

func (ws *WebSocket) readOnce(ctx context.Context) bool {
	mt, data, err := ws.conn.ReadMessage()
	if err != nil {
		if ws.closed.Load() || ctx.Err() != nil {
			return false
		}

		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			ws.logger.Info("link: websocket closed by peer", "name", ws.cfg.name)
		} else {
			ws.logger.Warn("link: websocket read failed", "name", ws.cfg.name, "error", err)
		}

		return false
	}

	ws.metrics.addBytesRecv(len(data))
	if mt != websocket.BinaryMessage {
		ws.metrics.addDroppedCount(1)
		ws.logger.Debug("link: non-binary websocket message ignored", "name", ws.cfg.name, "type", mt)

		return true
	}
	ws.recv.deliver(data)

	return true
}
