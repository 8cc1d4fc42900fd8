package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once     sync.Once
	mu       sync.RWMutex
	instance *zap.Logger
)

// Init builds the shared logger. Only the first call has an effect.
func Init(cfg Config) {
	once.Do(func() {
		l := build(cfg)
		mu.Lock()
		instance = l
		mu.Unlock()
	})
}

// L returns the shared logger, initialising a dev/info logger on first use.
func L() *zap.Logger {
	Init(Config{Env: "dev", Level: "info"})
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Replace swaps the shared logger and returns a func restoring the previous one.
// Intended for tests and for commands that build their own zap core.
func Replace(l *zap.Logger) func() {
	Init(Config{Env: "dev", Level: "info"})
	mu.Lock()
	prev := instance
	if l == nil {
		l = zap.NewNop()
	}
	instance = l
	mu.Unlock()
	return func() {
		mu.Lock()
		instance = prev
		mu.Unlock()
	}
}

// Named returns the shared logger with a component name.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushes buffered entries.
func Sync() error {
	mu.RLock()
	l := instance
	mu.RUnlock()
	if l == nil {
		return nil
	}
	return l.Sync()
}
