// Package logger provides structured logging using Zap.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu    sync.RWMutex
	sugar *zap.SugaredLogger
)

// Init initializes the global logger for the given environment, replacing
// any logger set up earlier. For "production", it uses a JSON encoder. For
// all other environments, it uses a human-readable console encoder.
func Init(env string) {
	var base *zap.Logger
	var err error

	if env == "production" {
		base, err = zap.NewProduction()
	} else {
		base, err = zap.NewDevelopment()
	}

	if err != nil {
		base = zap.NewNop()
	}

	mu.Lock()
	previous := sugar
	sugar = base.Sugar()
	mu.Unlock()

	if previous != nil {
		_ = previous.Sync()
	}
}

// Get returns the global sugared logger.
// If Init has not been called, it initializes a development logger.
func Get() *zap.SugaredLogger {
	mu.RLock()
	s := sugar
	mu.RUnlock()
	if s != nil {
		return s
	}

	mu.Lock()
	defer mu.Unlock()
	if sugar == nil {
		base, err := zap.NewDevelopment()
		if err != nil {
			base = zap.NewNop()
		}
		sugar = base.Sugar()
	}
	return sugar
}

// Sync flushes any buffered log entries. Call this before application exit.
func Sync() {
	mu.RLock()
	s := sugar
	mu.RUnlock()
	if s != nil {
		_ = s.Sync()
	}
}
