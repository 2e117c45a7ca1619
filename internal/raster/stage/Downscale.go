package stage

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/rm-hull/blur-overlay/internal/raster"
	"golang.org/x/image/draw"
)

type DownscaleStage struct {
	Factor float64
}

// Dimensions returns floor(width/factor) x floor(height/factor), never less
// than 1x1. Factors below 1 are treated as 1.
func Dimensions(width, height int, factor float64) (int, int) {
	if !(factor >= 1) {
		factor = 1
	}
	w := int(math.Floor(float64(width) / factor))
	h := int(math.Floor(float64(height) / factor))
	return max(w, 1), max(h, 1)
}

// Process resamples the raster with bilinear filtering onto an opaque white
// canvas of the downscaled size. The input raster is left untouched; a new
// raster is always returned.
func (s *DownscaleStage) Process(r *raster.Raster) (*raster.Raster, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot downscale %dx%d raster", r.Width, r.Height)
	}

	w, h := Dimensions(r.Width, r.Height, s.Factor)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	src := r.NRGBA()
	if w == r.Width && h == r.Height {
		draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Over)
	} else {
		draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	}

	return raster.FromImage(dst)
}
