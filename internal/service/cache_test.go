package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earnings-rag/internal/router"
	"earnings-rag/internal/testutil"
)

func TestEngineCache_ConcurrentCallersShareOneBuild(t *testing.T) {
	c := NewEngineCache()
	var builds atomic.Int32
	release := make(chan struct{})
	build := func(context.Context) (*router.Engine, error) {
		builds.Add(1)
		<-release
		return router.New(&testutil.Generator{}), nil
	}

	const callers = 8
	results := make([]*router.Engine, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := c.Get(context.Background(), "fp", build)
			assert.NoError(t, err)
			results[i] = e
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, e := range results {
		assert.Same(t, results[0], e)
	}

	e, err := c.Get(context.Background(), "fp", build)
	require.NoError(t, err)
	assert.Same(t, results[0], e)
	assert.Equal(t, int32(1), builds.Load())
}

func TestEngineCache_FailedBuildIsRetried(t *testing.T) {
	c := NewEngineCache()
	var builds atomic.Int32
	build := func(context.Context) (*router.Engine, error) {
		if builds.Add(1) == 1 {
			return nil, errors.New("qdrant unavailable")
		}
		return router.New(&testutil.Generator{}), nil
	}

	_, err := c.Get(context.Background(), "fp", build)
	require.Error(t, err)

	e, err := c.Get(context.Background(), "fp", build)
	require.NoError(t, err)
	assert.NotNil(t, e)
	assert.Equal(t, int32(2), builds.Load())
}

func TestEngineCache_KeysAreIndependent(t *testing.T) {
	c := NewEngineCache()
	build := func(context.Context) (*router.Engine, error) { return router.New(&testutil.Generator{}), nil }

	a, err := c.Get(context.Background(), "a", build)
	require.NoError(t, err)
	b, err := c.Get(context.Background(), "b", build)
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	c.Forget("a")
	a2, err := c.Get(context.Background(), "a", build)
	require.NoError(t, err)
	assert.NotSame(t, a, a2)
}

func TestEngineCache_CallerCancellation(t *testing.T) {
	c := NewEngineCache()
	release := make(chan struct{})
	defer close(release)
	build := func(context.Context) (*router.Engine, error) {
		<-release
		return router.New(&testutil.Generator{}), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, "fp", build)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngineCache_StarterCancellationDoesNotFailOtherWaiters(t *testing.T) {
	c := NewEngineCache()
	started := make(chan struct{})
	release := make(chan struct{})
	var builds atomic.Int32
	build := func(ctx context.Context) (*router.Engine, error) {
		builds.Add(1)
		close(started)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return router.New(&testutil.Generator{}), nil
		}
	}

	starterCtx, cancelStarter := context.WithCancel(context.Background())
	starterErr := make(chan error, 1)
	go func() {
		_, err := c.Get(starterCtx, "fp", build)
		starterErr <- err
	}()
	<-started

	waiter := make(chan *router.Engine, 1)
	waiterErr := make(chan error, 1)
	go func() {
		e, err := c.Get(context.Background(), "fp", build)
		waiterErr <- err
		waiter <- e
	}()
	time.Sleep(20 * time.Millisecond)

	cancelStarter()
	assert.ErrorIs(t, <-starterErr, context.Canceled)

	close(release)
	require.NoError(t, <-waiterErr)
	e := <-waiter
	require.NotNil(t, e)
	assert.Equal(t, int32(1), builds.Load())

	again, err := c.Get(context.Background(), "fp", build)
	require.NoError(t, err)
	assert.Same(t, e, again)
}
