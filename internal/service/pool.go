package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rm-hull/blur-overlay/internal/raster"
)

var ErrPoolClosed = errors.New("pool is shut down")

type job struct {
	ctx        context.Context
	req        *Request
	completion *Completion
}

// Pool runs blur requests on a fixed number of worker goroutines.
type Pool struct {
	svc  *Service
	size int
	jobs chan job
	done chan struct{}
	wg   sync.WaitGroup

	closeOnce sync.Once
	closed    atomic.Bool
}

func NewPool(svc *Service, size int) (*Pool, error) {
	if size < 1 {
		return nil, errors.New("pool size must be at least 1")
	}
	return &Pool{
		svc:  svc,
		size: size,
		jobs: make(chan job),
		done: make(chan struct{}),
	}, nil
}

func (p *Pool) Start() {
	p.svc.logger.Info("starting blur workers", "pool_size", p.size)
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *Pool) worker(i int) {
	defer p.wg.Done()
	p.svc.logger.Debug("worker started", "worker", i)
	for {
		select {
		case j := <-p.jobs:
			p.svc.deliver(j.ctx, j.req, j.completion)
		case <-p.done:
			p.svc.logger.Debug("worker finished", "worker", i)
			return
		}
	}
}

// Submit hands a request to a worker, blocking until one picks it up, ctx is
// done or the pool shuts down. done is called exactly once: with the result,
// or with nil if the request fails, is cancelled, or cannot be queued.
func (p *Pool) Submit(ctx context.Context, src *raster.Raster, params Params, done Callback) (*Request, error) {
	req := NewRequest(src, params)
	c := NewCompletion(done)

	fail := func(err error) (*Request, error) {
		req.setState(Failed)
		c.Fire(nil)
		return req, err
	}

	if p.closed.Load() {
		return fail(ErrPoolClosed)
	}

	select {
	case p.jobs <- job{ctx: ctx, req: req, completion: c}:
		return req, nil
	case <-p.done:
		return fail(ErrPoolClosed)
	case <-ctx.Done():
		return fail(ctx.Err())
	}
}

// Closed reports whether Shutdown has been called.
func (p *Pool) Closed() bool {
	return p.closed.Load()
}

// Shutdown stops accepting requests and waits for the ones already handed to
// a worker to finish. Submit calls blocked waiting for a worker fail with
// ErrPoolClosed.
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.done)
	})
	p.wg.Wait()
}
