package logger

import "sync/atomic"

var defLogger atomic.Pointer[Logger]

func init() {
	l := NewSlog(InfoLevel, false)
	defLogger.Store(&l)
}

// GetLogger returns the package default logger. Components created without
// an explicit logger option use it.
func GetLogger() Logger {
	return *defLogger.Load()
}

// SetDefault replaces the package default logger. It affects components
// created afterwards. A nil l is ignored.
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defLogger.Store(&l)
}
