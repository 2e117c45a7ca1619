package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rm-hull/blur-overlay/internal/raster"
)

// Callback receives the blurred raster, or nil when the request failed or was
// cancelled.
type Callback func(*raster.Raster)

// Completion delivers a result to its callback exactly once. Later calls to
// Fire are ignored.
type Completion struct {
	once sync.Once
	fn   Callback
}

func NewCompletion(fn Callback) *Completion {
	return &Completion{fn: fn}
}

// Fire invokes the callback with r and reports whether this call delivered
// the result.
func (c *Completion) Fire(r *raster.Raster) bool {
	fired := false
	c.once.Do(func() {
		fired = true
		if c.fn != nil {
			c.fn(r)
		}
	})
	return fired
}

// BlurAsync runs the request on a new goroutine and hands the result to done
// exactly once. The returned request can be used to observe its state.
func (s *Service) BlurAsync(ctx context.Context, src *raster.Raster, params Params, done Callback) *Request {
	req := NewRequest(src, params)
	c := NewCompletion(done)
	go s.deliver(ctx, req, c)
	return req
}

// deliver runs the request and fires the completion. Panics are reported as
// a nil result.
func (s *Service) deliver(ctx context.Context, req *Request, c *Completion) {
	defer func() {
		if r := recover(); r != nil {
			req.setState(Failed)
			s.logger.Error("blur request panicked", "error", fmt.Sprint(r))
			c.Fire(nil)
		}
	}()

	out, err := s.Run(ctx, req)
	if err != nil {
		s.logger.Warn("blur request failed", "error", err)
		c.Fire(nil)
		return
	}
	c.Fire(out)
}
