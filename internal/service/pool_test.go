package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rm-hull/blur-overlay/internal/blur"
	"github.com/rm-hull/blur-overlay/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletion_FiresOnce(t *testing.T) {
	var calls atomic.Int32
	var got *raster.Raster
	c := NewCompletion(func(r *raster.Raster) {
		calls.Add(1)
		got = r
	})

	first := raster.New(1, 1)
	assert.True(t, c.Fire(first))
	// A second completion is silently ignored.
	assert.False(t, c.Fire(nil))
	assert.False(t, c.Fire(raster.New(2, 2)))

	assert.Equal(t, int32(1), calls.Load())
	assert.Same(t, first, got)
}

func TestCompletion_NilCallback(t *testing.T) {
	c := NewCompletion(nil)
	assert.True(t, c.Fire(nil))
	assert.False(t, c.Fire(nil))
}

func await(t *testing.T, ch <-chan *raster.Raster) *raster.Raster {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
		return nil
	}
}

func TestBlurAsync(t *testing.T) {
	svc := New(WithLogger(quiet))

	t.Run("delivers the result", func(t *testing.T) {
		ch := make(chan *raster.Raster, 2)
		req := svc.BlurAsync(context.Background(), checkerboard(32, 32), DefaultParams(), func(r *raster.Raster) {
			ch <- r
		})
		r := await(t, ch)
		require.NotNil(t, r)
		assert.Equal(t, 8, r.Width)
		assert.Equal(t, Done, req.State())
		assert.Empty(t, ch)
	})

	t.Run("zero width delivers nil", func(t *testing.T) {
		ch := make(chan *raster.Raster, 2)
		req := svc.BlurAsync(context.Background(), raster.New(0, 40), DefaultParams(), func(r *raster.Raster) {
			ch <- r
		})
		assert.Nil(t, await(t, ch))
		assert.Equal(t, Failed, req.State())
		assert.Empty(t, ch)
	})

	t.Run("cancelled before start delivers nil", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ch := make(chan *raster.Raster, 2)
		req := svc.BlurAsync(ctx, checkerboard(32, 32), DefaultParams(), func(r *raster.Raster) {
			ch <- r
		})
		assert.Nil(t, await(t, ch))
		assert.Equal(t, Failed, req.State())
	})

	t.Run("panic delivers nil", func(t *testing.T) {
		acc := &MockAccelerator{
			NameFunc: func() string { panic("broken driver") },
			OpenFunc: func() (blur.Device, error) { return nil, errors.New("no device") },
		}
		svc := New(WithLogger(quiet), WithAccelerator(acc))
		params := DefaultParams()
		params.UseAccelerated = true

		ch := make(chan *raster.Raster, 2)
		req := svc.BlurAsync(context.Background(), checkerboard(32, 32), params, func(r *raster.Raster) {
			ch <- r
		})
		assert.Nil(t, await(t, ch))
		assert.Equal(t, Failed, req.State())
	})
}

func TestPool(t *testing.T) {
	t.Run("invalid size", func(t *testing.T) {
		_, err := NewPool(New(), 0)
		assert.Error(t, err)
	})

	t.Run("every job is delivered once", func(t *testing.T) {
		pool, err := NewPool(New(WithLogger(quiet)), 3)
		require.NoError(t, err)
		pool.Start()

		const jobs = 20
		var mu sync.Mutex
		delivered := make(map[int]int)
		var wg sync.WaitGroup
		wg.Add(jobs)
		for i := 0; i < jobs; i++ {
			i := i
			src := raster.New(8+i, 8)
			src.Fill(0xff336699)
			_, err := pool.Submit(context.Background(), src, DefaultParams(), func(r *raster.Raster) {
				defer wg.Done()
				assert.NotNil(t, r)
				mu.Lock()
				delivered[i]++
				mu.Unlock()
			})
			require.NoError(t, err)
		}
		wg.Wait()
		pool.Shutdown()

		assert.Len(t, delivered, jobs)
		for i, n := range delivered {
			assert.Equal(t, 1, n, "job %d", i)
		}
	})

	t.Run("submit after shutdown", func(t *testing.T) {
		pool, err := NewPool(New(WithLogger(quiet)), 1)
		require.NoError(t, err)
		pool.Start()
		pool.Shutdown()
		pool.Shutdown()

		called := 0
		got := raster.New(1, 1)
		req, err := pool.Submit(context.Background(), checkerboard(8, 8), DefaultParams(), func(r *raster.Raster) {
			called++
			got = r
		})
		assert.ErrorIs(t, err, ErrPoolClosed)
		assert.Equal(t, 1, called)
		assert.Nil(t, got)
		assert.Equal(t, Failed, req.State())
	})

	t.Run("cancelled while queued", func(t *testing.T) {
		// Never started, so nothing receives from the job queue.
		pool, err := NewPool(New(WithLogger(quiet)), 1)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		called := 0
		req, err := pool.Submit(ctx, checkerboard(8, 8), DefaultParams(), func(r *raster.Raster) {
			called++
			assert.Nil(t, r)
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, called)
		assert.Equal(t, Failed, req.State())
	})

	t.Run("shutdown releases a blocked submit", func(t *testing.T) {
		// Never started, so Submit blocks until the pool shuts down.
		pool, err := NewPool(New(WithLogger(quiet)), 1)
		require.NoError(t, err)

		var called atomic.Int32
		errc := make(chan error, 1)
		go func() {
			_, err := pool.Submit(context.Background(), checkerboard(8, 8), DefaultParams(), func(r *raster.Raster) {
				called.Add(1)
				assert.Nil(t, r)
			})
			errc <- err
		}()

		time.Sleep(20 * time.Millisecond)
		shutdown := make(chan struct{})
		go func() {
			pool.Shutdown()
			close(shutdown)
		}()

		select {
		case <-shutdown:
		case <-time.After(5 * time.Second):
			t.Fatal("Shutdown blocked behind a pending Submit")
		}

		select {
		case err := <-errc:
			assert.ErrorIs(t, err, ErrPoolClosed)
		case <-time.After(5 * time.Second):
			t.Fatal("Submit did not return after Shutdown")
		}
		assert.Equal(t, int32(1), called.Load())
		assert.True(t, pool.Closed())
	})
}
