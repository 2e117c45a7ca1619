package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rm-hull/blur-overlay/internal/blur"
	"github.com/rm-hull/blur-overlay/internal/raster"
	"github.com/rm-hull/blur-overlay/internal/raster/stage"
)

var (
	// ErrInvalidSource is returned for an empty or malformed captured raster.
	ErrInvalidSource = errors.New("captured raster is empty or malformed")

	ErrResourceExhausted = errors.New("raster exceeds the pixel limit")

	// ErrBlurFailed is returned when the accelerated kernel was unavailable
	// and the stack blur fallback failed as well.
	ErrBlurFailed = errors.New("blur failed")
)

// DefaultMaxPixels bounds the size of a captured raster (256MiB of pixels).
const DefaultMaxPixels = raster.DefaultMaxPixels

// Kernel names reported by Request.Kernel.
const (
	KernelNone      = "none"
	KernelStackBlur = "stackblur"
)

// Service runs blur requests: downscale, tint, then blur with the stack blur
// kernel or an accelerator, falling back to stack blur when the accelerator
// is unavailable.
type Service struct {
	accelerator blur.Accelerator
	logger      *slog.Logger
	maxPixels   int
}

type Option func(*Service)

// WithAccelerator selects the accelerator used when Params.UseAccelerated is
// set. A nil accelerator is always unavailable.
func WithAccelerator(acc blur.Accelerator) Option {
	return func(s *Service) { s.accelerator = acc }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMaxPixels(n int) Option {
	return func(s *Service) { s.maxPixels = n }
}

func New(opts ...Option) *Service {
	s := &Service{
		accelerator: blur.Lookup(blur.DefaultAccelerator),
		logger:      slog.Default(),
		maxPixels:   DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request is a single blur of a captured raster. Ownership of the source
// raster passes to the request; it is released once downscaled.
type Request struct {
	src    *raster.Raster
	params Params
	state  atomic.Int32
	kernel atomic.Value
}

func NewRequest(src *raster.Raster, params Params) *Request {
	req := &Request{src: src, params: params.Normalize()}
	req.kernel.Store(KernelNone)
	return req
}

func (r *Request) State() State {
	return State(r.state.Load())
}

// Kernel names the kernel that produced the result.
func (r *Request) Kernel() string {
	return r.kernel.Load().(string)
}

func (r *Request) Params() Params {
	return r.params
}

func (r *Request) setState(s State) {
	r.state.Store(int32(s))
}

// enter is a pass-through pipeline stage that records the request state.
type enter struct {
	req   *Request
	state State
}

func (e *enter) Process(r *raster.Raster) (*raster.Raster, error) {
	e.req.setState(e.state)
	return r, nil
}

// Blur runs a request for src synchronously.
func (s *Service) Blur(ctx context.Context, src *raster.Raster, params Params) (*raster.Raster, error) {
	return s.Run(ctx, NewRequest(src, params))
}

// Run executes the request. On success the request ends Done, otherwise
// Failed. A radius of 0 on the stack blur path skips the blur and yields the
// tinted raster.
func (s *Service) Run(ctx context.Context, req *Request) (*raster.Raster, error) {
	start := time.Now()
	params := req.params

	out, err := s.run(ctx, req)
	if err != nil {
		req.setState(Failed)
		if params.Debug {
			s.logger.Info("blur failed", "radius", params.Radius, "downscale", params.DownScale,
				"elapsed", time.Since(start), "error", err)
		}
		return nil, err
	}
	req.setState(Done)

	if params.Debug {
		attrs := []any{
			"kernel", req.Kernel(),
			"radius", params.Radius,
			"downscale", params.DownScale,
			"elapsed", time.Since(start),
			"width", out.Width,
			"height", out.Height,
			"result_bytes", out.SizeBytes(),
		}
		if req.Kernel() == KernelStackBlur {
			attrs = append(attrs, "scratch_bytes", blur.ScratchBytes(out.Width, out.Height, params.Radius))
		}
		s.logger.Info("blur complete", attrs...)
	}
	return out, nil
}

func (s *Service) run(ctx context.Context, req *Request) (*raster.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, params := req.src, req.params
	if !src.Valid() {
		if src == nil {
			return nil, fmt.Errorf("%w: no raster", ErrInvalidSource)
		}
		return nil, fmt.Errorf("%w: %dx%d with %d pixels", ErrInvalidSource, src.Width, src.Height, len(src.Pix))
	}
	if src.Width*src.Height > s.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d > %d", ErrResourceExhausted, src.Width, src.Height, s.maxPixels)
	}
	if params.Debug {
		s.logger.Info("captured raster", "width", src.Width, "height", src.Height,
			"row_bytes", src.RowBytes(), "source_bytes", src.SizeBytes())
	}

	overlay, err := src.Pipeline(
		&enter{req, Downscaling},
		&stage.DownscaleStage{Factor: params.DownScale},
		&enter{req, Tinting},
		&stage.TintStage{Overlay: params.Overlay},
	)
	src.Release()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare overlay: %w", err)
	}

	req.setState(Blurring)
	return s.blur(ctx, req, overlay)
}

func (s *Service) blur(ctx context.Context, req *Request, overlay *raster.Raster) (*raster.Raster, error) {
	radius := req.params.Radius

	if req.params.UseAccelerated {
		out, err := blur.AcceleratedBlur(ctx, overlay, radius, true, s.accelerator)
		if err == nil {
			req.kernel.Store(s.accelerator.Name())
			return out, nil
		}
		if !errors.Is(err, blur.ErrUnavailable) {
			return nil, err
		}

		s.logger.Warn("accelerator unavailable, retrying with stack blur", "error", err)
		out, err = blur.StackBlurContext(ctx, overlay, radius, true)
		if err != nil {
			if errors.Is(err, blur.ErrInvalidRadius) {
				return nil, fmt.Errorf("%w: %w", ErrBlurFailed, err)
			}
			return nil, err
		}
		req.kernel.Store(KernelStackBlur)
		return out, nil
	}

	out, err := blur.StackBlurContext(ctx, overlay, radius, true)
	if errors.Is(err, blur.ErrInvalidRadius) {
		return overlay, nil
	}
	if err != nil {
		return nil, err
	}
	req.kernel.Store(KernelStackBlur)
	return out, nil
}
