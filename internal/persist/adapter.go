package persist

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds every backend call.
const DefaultTimeout = 2 * time.Second

// Adapter serializes state to JSON and hands it to a Backend. It never
// returns an error: the first backend failure is logged and switches the
// adapter to a memory-only backend for the rest of the session.
type Adapter struct {
	mu       sync.Mutex
	backend  Backend
	fallback *MemoryBackend
	degraded bool
	timeout  time.Duration
	logger   *zap.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithTimeout bounds backend calls. Zero or negative keeps the default.
func WithTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithAdapterLogger sets the logger.
func WithAdapterLogger(l *zap.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l }
}

// NewAdapter wraps a backend. A nil backend starts the adapter degraded.
func NewAdapter(b Backend, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		backend:  b,
		fallback: NewMemoryBackend(),
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if b == nil {
		a.degraded = true
	}
	return a
}

// Degraded reports whether the adapter has fallen back to memory.
func (a *Adapter) Degraded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.degraded
}

func (a *Adapter) active() Backend {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.degraded {
		return a.fallback
	}
	return a.backend
}

func (a *Adapter) degrade(op, key string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.degraded {
		return
	}
	a.degraded = true
	a.logger.Warn("state backend failed, continuing in memory",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err))
}

// Load decodes the document stored under key into v and reports whether it
// did. Missing keys and undecodable documents leave v untouched.
func (a *Adapter) Load(ctx context.Context, key string, v any) bool {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	data, err := a.active().Load(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return false
	case errors.Is(err, ErrInvalidKey):
		a.logger.Warn("refusing to load state", zap.String("key", key), zap.Error(err))
		return false
	case err != nil:
		a.degrade("load", key, err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		a.logger.Warn("discarding unreadable state", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Save encodes v and stores it under key.
func (a *Adapter) Save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		a.logger.Warn("state is not serializable", zap.String("key", key), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	b := a.active()
	err = b.Save(ctx, key, data)
	switch {
	case err == nil:
		return
	case errors.Is(err, ErrInvalidKey):
		a.logger.Warn("refusing to save state", zap.String("key", key), zap.Error(err))
		return
	}
	a.degrade("save", key, err)
	if b != Backend(a.fallback) {
		if err := a.fallback.Save(ctx, key, data); err != nil {
			a.logger.Warn("in-memory save failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// Close releases the primary backend.
func (a *Adapter) Close() error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}
