// Package store holds the durable favorites backends and the process-wide
// connector that owns their lifecycle.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/pkg/logger"
)

// Backend is a connected durable store
type Backend interface {
	domain.FavoriteStore
	Ping(ctx context.Context) error
	Close() error
}

// Dialer establishes a backend connection
type Dialer func(ctx context.Context) (Backend, error)

var errClosed = errors.New("connector closed")

// Unconfigured returns a dialer that always fails with reason
func Unconfigured(reason string) Dialer {
	return func(context.Context) (Backend, error) {
		return nil, errors.New(reason)
	}
}

// Connector lazily dials the durable store and memoizes the first successful
// backend until Close. Failed dials are never memoized; the breaker only
// spaces them out. Concurrent callers share one in-flight dial, and mu is
// never held while dialing.
type Connector struct {
	name    string
	dial    Dialer
	breaker *CircuitBreaker
	dials   singleflight.Group

	mu      sync.Mutex
	backend Backend
	traced  domain.FavoriteStore
	closed  bool
}

// NewConnector creates a connector. breaker may be nil to dial on every attempt.
func NewConnector(name string, dial Dialer, breaker *CircuitBreaker) *Connector {
	return &Connector{name: name, dial: dial, breaker: breaker}
}

// Name identifies the backend kind (redis, postgres, none)
func (c *Connector) Name() string {
	return c.name
}

// Connect returns the shared store. Every failure wraps domain.ErrStoreUnavailable.
func (c *Connector) Connect(ctx context.Context) (domain.FavoriteStore, error) {
	c.mu.Lock()
	traced, closed := c.traced, c.closed
	c.mu.Unlock()

	if traced != nil {
		return traced, nil
	}
	if closed {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, errClosed)
	}

	ch := c.dials.DoChan(c.name, func() (interface{}, error) {
		return c.connectOnce(ctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(domain.FavoriteStore), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, ctx.Err())
	}
}

func (c *Connector) connectOnce(ctx context.Context) (domain.FavoriteStore, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return nil, fmt.Errorf("%w: %s circuit open", domain.ErrStoreUnavailable, c.name)
	}

	backend, err := c.dialSafely(ctx)
	if err != nil {
		if c.breaker != nil {
			c.breaker.RecordFailure()
		}
		logger.Warn(ctx).Err(err).Str("backend", c.name).Msg("Favorites store unavailable")
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		_ = backend.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, errClosed)
	}
	if c.traced == nil {
		c.backend = backend
		c.traced = WithTracing(c.name, backend)
	}
	return c.traced, nil
}

// dialSafely turns a panicking driver into an ordinary error
func (c *Connector) dialSafely(ctx context.Context) (backend Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			backend, err = nil, fmt.Errorf("dial panicked: %v", r)
		}
	}()
	return c.dial(ctx)
}

// Ping checks the backend, connecting first if needed
func (c *Connector) Ping(ctx context.Context) error {
	if _, err := c.Connect(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	backend := c.backend
	c.mu.Unlock()
	if backend == nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, errClosed)
	}
	if err := backend.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the backend. Later Connect calls fail.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.traced = nil
	if c.backend == nil {
		return nil
	}
	err := c.backend.Close()
	c.backend = nil
	return err
}
