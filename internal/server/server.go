package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rm-hull/blur-overlay/internal/blur"
	"github.com/rm-hull/blur-overlay/internal/raster"
	"github.com/rm-hull/blur-overlay/internal/service"
)

// MaxBodyBytes limits the size of an uploaded PNG.
const MaxBodyBytes = 64 << 20

// Server exposes the blur service over HTTP.
type Server struct {
	pool     *service.Pool
	defaults service.Params
}

func New(pool *service.Pool, defaults service.Params) *Server {
	return &Server{pool: pool, defaults: defaults}
}

func (s *Server) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.POST("/blur", s.blur)
	v1.GET("/accelerators", s.accelerators)
}

// blur decodes a PNG request body, blurs it and responds with a PNG.
func (s *Server) blur(c *gin.Context) {
	params, err := s.params(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	src, err := raster.DecodeLimit(c.Request.Body, service.DefaultMaxPixels)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.Is(err, raster.ErrTooLarge) || errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to decode PNG: %v", err)})
		return
	}

	ctx := c.Request.Context()
	result := make(chan *raster.Raster, 1)
	req, err := s.pool.Submit(ctx, src, params, func(r *raster.Raster) {
		result <- r
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	var out *raster.Raster
	select {
	case out = <-result:
	case <-ctx.Done():
	}

	if out == nil {
		if ctx.Err() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "blur failed", "state": req.State().String()})
		return
	}

	var buf bytes.Buffer
	if err := out.Encode(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to encode PNG: %v", err)})
		return
	}
	c.Header("X-Blur-Kernel", req.Kernel())
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) accelerators(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default":      blur.DefaultAccelerator,
		"accelerators": blur.Accelerators(),
	})
}

// params overlays query parameters on the server defaults.
func (s *Server) params(c *gin.Context) (service.Params, error) {
	p := s.defaults
	var err error

	if v, ok := c.GetQuery("radius"); ok {
		if p.Radius, err = strconv.Atoi(v); err != nil {
			return p, fmt.Errorf("invalid radius %q", v)
		}
	}
	if v, ok := c.GetQuery("downscale"); ok {
		if p.DownScale, err = strconv.ParseFloat(v, 64); err != nil {
			return p, fmt.Errorf("invalid downscale %q", v)
		}
	}
	if v, ok := c.GetQuery("quality"); ok {
		q, err := service.ParseQuality(v)
		if err != nil {
			return p, err
		}
		p.DownScale = q.DownScale()
	}
	if v, ok := c.GetQuery("overlay"); ok {
		if p.Overlay, err = service.ParseColor(v); err != nil {
			return p, err
		}
	}
	if v, ok := c.GetQuery("accelerated"); ok {
		if p.UseAccelerated, err = strconv.ParseBool(v); err != nil {
			return p, fmt.Errorf("invalid accelerated flag %q", v)
		}
	}
	if v, ok := c.GetQuery("debug"); ok {
		if p.Debug, err = strconv.ParseBool(v); err != nil {
			return p, fmt.Errorf("invalid debug flag %q", v)
		}
	}
	return p.Normalize(), nil
}
