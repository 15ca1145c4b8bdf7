// Package task manages the goroutines that pump bytes between a physical
// medium and a protocol engine.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-swp/logger"
)

// ErrStopped is returned when starting a task on a stopped Manager.
var ErrStopped = errors.New("task: manager already stopped")

// startTimeout bounds how long Start waits for a goroutine to come up.
const startTimeout = 5 * time.Second

// Func is one iteration of a task loop. It returns false to end the task.
// The context is cancelled when the manager is stopped.
type Func func(ctx context.Context) bool

// CancelFunc is called once when a task exits, whatever the reason.
type CancelFunc func()

// Manager runs named goroutines under a shared cancellable context and waits
// for them on shutdown.
//
//	mgr := task.NewManager(ctx, logger)
//	_ = mgr.Start("reader", func(ctx context.Context) bool {
//	    // ... one read ...
//	    return true
//	}, nil)
//	mgr.Stop()
//	mgr.Wait()
type Manager struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger logger.Logger
	count  atomic.Int32
	mu     sync.Mutex // orders wg.Add against Wait
}

// NewManager creates a Manager whose tasks stop when ctx is done or Stop is called.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	mgr := &Manager{logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

// Context returns the context shared by all tasks of the manager.
func (mgr *Manager) Context() context.Context {
	return mgr.ctx
}

// Start runs fn in a loop on a new goroutine until it returns false or the
// manager is stopped. onExit, if not nil, runs when the goroutine exits.
func (mgr *Manager) Start(name string, fn Func, onExit CancelFunc) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	select {
	case <-mgr.ctx.Done():
		return fmt.Errorf("%w: cannot start %s", ErrStopped, name)
	default:
	}

	started := make(chan struct{})
	mgr.wg.Add(1)
	mgr.count.Add(1)

	go func() {
		defer mgr.wg.Done()
		defer func() {
			mgr.count.Add(-1)
			mgr.logger.Debug("task terminated", "name", name, "task_count", mgr.TaskCount())
		}()
		if onExit != nil {
			defer onExit()
		}

		close(started)
		mgr.runLoop(name, fn)
	}()

	select {
	case <-started:
		mgr.logger.Debug("task started", "name", name)
		return nil
	case <-time.After(startTimeout):
		return fmt.Errorf("task: timeout waiting for %s to start", name)
	}
}

// Go runs fn once on a new goroutine tracked by the manager.
// It returns false if the manager has already been stopped.
func (mgr *Manager) Go(fn func(ctx context.Context)) bool {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if mgr.ctx.Err() != nil {
		return false
	}

	mgr.wg.Add(1)
	mgr.count.Add(1)
	go func() {
		defer mgr.wg.Done()
		defer mgr.count.Add(-1)
		defer mgr.recoverPanic("go")

		fn(mgr.ctx)
	}()

	return true
}

// Stop signals all running tasks to terminate.
func (mgr *Manager) Stop() {
	mgr.cancel()
}

// Wait blocks until every task has terminated. Call it after Stop or after
// the parent context is done, otherwise new tasks may keep arriving.
func (mgr *Manager) Wait() {
	// a Start or Go holding mu has either registered with wg or will observe
	// the cancelled context
	mgr.mu.Lock()
	mgr.mu.Unlock() //nolint:staticcheck // barrier

	mgr.wg.Wait()
}

// TaskCount returns the number of currently running goroutines.
func (mgr *Manager) TaskCount() int {
	return int(mgr.count.Load())
}

func (mgr *Manager) runLoop(name string, fn Func) {
	defer mgr.recoverPanic(name)

	for {
		select {
		case <-mgr.ctx.Done():
			return
		default:
			if !fn(mgr.ctx) {
				return
			}
		}
	}
}

func (mgr *Manager) recoverPanic(name string) {
	if r := recover(); r != nil {
		mgr.logger.Error("panic in task", "name", name, "panic", r)
	}
}
