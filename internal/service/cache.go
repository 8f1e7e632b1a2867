package service

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"earnings-rag/internal/router"
)

// BuildFunc constructs an engine.
type BuildFunc func(ctx context.Context) (*router.Engine, error)

// EngineCache keeps one built engine per config fingerprint. Concurrent
// first callers for a key share a single build. Failed builds are not kept.
type EngineCache struct {
	group singleflight.Group

	mu      sync.Mutex
	engines map[string]*router.Engine
}

func NewEngineCache() *EngineCache {
	return &EngineCache{engines: make(map[string]*router.Engine)}
}

// Get returns the engine for key, building it at most once at a time.
// The shared build keeps the starting caller's values but not its
// cancellation, so one caller giving up never fails the others. A caller
// whose own context ends stops waiting and gets its context error.
func (c *EngineCache) Get(ctx context.Context, key string, build BuildFunc) (*router.Engine, error) {
	if e := c.lookup(key); e != nil {
		return e, nil
	}
	buildCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if e := c.lookup(key); e != nil {
			return e, nil
		}
		e, err := build(buildCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.engines[key] = e
		c.mu.Unlock()
		return e, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*router.Engine), nil
	}
}

// Forget drops the cached engine for key so the next Get rebuilds it.
func (c *EngineCache) Forget(key string) {
	c.mu.Lock()
	delete(c.engines, key)
	c.mu.Unlock()
}

func (c *EngineCache) lookup(key string) *router.Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engines[key]
}
