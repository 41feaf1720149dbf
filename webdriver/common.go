package webdriver

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	debugFlag atomic.Bool
	logger    atomic.Pointer[zap.Logger]
)

func init() {
	logger.Store(zap.NewNop())
}

// SetDebug turns wire-level logging of every request and reply on or off.
func SetDebug(debug bool) {
	debugFlag.Store(debug)
}

// SetLogger sets the logger used for wire-level logging. A nil logger
// discards output.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l.Named("webdriver"))
}

func debugLog(msg string, fields ...zap.Field) {
	if !debugFlag.Load() {
		return
	}
	logger.Load().Debug(msg, fields...)
}
