package blur

import (
	"context"
	"errors"

	"github.com/rm-hull/blur-overlay/internal/raster"
)

// MaxRadius bounds the blur radius accepted by the kernels.
const MaxRadius = 254

var (
	// ErrInvalidRadius is returned by the kernels for a radius outside
	// [1, MaxRadius]. The raster is left untouched.
	ErrInvalidRadius = errors.New("blur: radius must be between 1 and 254")

	ErrInvalidRaster = errors.New("blur: raster must be at least 1x1 with width*height pixels")
)

// StackBlur is StackBlurContext without cancellation.
func StackBlur(src *raster.Raster, radius int, canReuse bool) (*raster.Raster, error) {
	return StackBlurContext(context.Background(), src, radius, canReuse)
}

// StackBlurContext applies Mario Klingemann's stack blur: a horizontal then
// vertical pass of a triangular-weighted moving window, O(1) per pixel
// regardless of radius. Edges are clamped (replicated). Only the RGB channels
// are filtered; alpha is copied from the source pixel.
//
// With canReuse the source raster is blurred in place and returned, otherwise
// a copy is blurred and src is not modified.
//
// The context is only consulted during the horizontal pass, which writes to
// scratch buffers. Once the destination starts being written the call runs to
// completion, so a cancelled call never returns or leaves a partial result.
func StackBlurContext(ctx context.Context, src *raster.Raster, radius int, canReuse bool) (*raster.Raster, error) {
	if radius < 1 || radius > MaxRadius {
		return nil, ErrInvalidRadius
	}
	if !src.Valid() {
		return nil, ErrInvalidRaster
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h := src.Width, src.Height
	wm, hm := w-1, h-1
	div := radius + radius + 1
	r1 := radius + 1

	red := make([]int, w*h)
	green := make([]int, w*h)
	blue := make([]int, w*h)

	divsum := (div + 1) >> 1
	divsum *= divsum

	stack := make([][3]int, div)
	pix := src.Pix

	yi, yw := 0, 0
	for y := 0; y < h; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var rsum, gsum, bsum, rin, gin, bin, rout, gout, bout int
		for i := -radius; i <= radius; i++ {
			p := pix[yi+min(wm, max(i, 0))]
			sir := &stack[i+radius]
			sir[0], sir[1], sir[2] = channels(p)
			rbs := r1 - abs(i)
			rsum += sir[0] * rbs
			gsum += sir[1] * rbs
			bsum += sir[2] * rbs
			if i > 0 {
				rin += sir[0]
				gin += sir[1]
				bin += sir[2]
			} else {
				rout += sir[0]
				gout += sir[1]
				bout += sir[2]
			}
		}

		sp := radius
		for x := 0; x < w; x++ {
			red[yi] = rsum / divsum
			green[yi] = gsum / divsum
			blue[yi] = bsum / divsum

			rsum -= rout
			gsum -= gout
			bsum -= bout

			sir := &stack[(sp-radius+div)%div]
			rout -= sir[0]
			gout -= sir[1]
			bout -= sir[2]

			sir[0], sir[1], sir[2] = channels(pix[yw+min(x+r1, wm)])
			rin += sir[0]
			gin += sir[1]
			bin += sir[2]

			rsum += rin
			gsum += gin
			bsum += bin

			sp = (sp + 1) % div
			sir = &stack[sp]
			rout += sir[0]
			gout += sir[1]
			bout += sir[2]
			rin -= sir[0]
			gin -= sir[1]
			bin -= sir[2]

			yi++
		}
		yw += w
	}

	dst := src
	if !canReuse {
		dst = src.Clone()
	}
	out := dst.Pix

	for x := 0; x < w; x++ {
		var rsum, gsum, bsum, rin, gin, bin, rout, gout, bout int
		for i := -radius; i <= radius; i++ {
			yi := min(hm, max(i, 0))*w + x
			sir := &stack[i+radius]
			sir[0], sir[1], sir[2] = red[yi], green[yi], blue[yi]
			rbs := r1 - abs(i)
			rsum += sir[0] * rbs
			gsum += sir[1] * rbs
			bsum += sir[2] * rbs
			if i > 0 {
				rin += sir[0]
				gin += sir[1]
				bin += sir[2]
			} else {
				rout += sir[0]
				gout += sir[1]
				bout += sir[2]
			}
		}

		yi := x
		sp := radius
		for y := 0; y < h; y++ {
			out[yi] = out[yi]&0xff000000 | uint32(rsum/divsum)<<16 | uint32(gsum/divsum)<<8 | uint32(bsum/divsum)

			rsum -= rout
			gsum -= gout
			bsum -= bout

			sir := &stack[(sp-radius+div)%div]
			rout -= sir[0]
			gout -= sir[1]
			bout -= sir[2]

			p := x + min(y+r1, hm)*w
			sir[0], sir[1], sir[2] = red[p], green[p], blue[p]
			rin += sir[0]
			gin += sir[1]
			bin += sir[2]

			rsum += rin
			gsum += gin
			bsum += bin

			sp = (sp + 1) % div
			sir = &stack[sp]
			rout += sir[0]
			gout += sir[1]
			bout += sir[2]
			rin -= sir[0]
			gin -= sir[1]
			bin -= sir[2]

			yi += w
		}
	}

	return dst, nil
}

// ScratchBytes estimates the temporary memory StackBlur allocates for a
// width x height raster at the given radius.
func ScratchBytes(width, height, radius int) int {
	const intSize = 8
	radius = min(max(radius, 0), MaxRadius)
	return intSize * (3*width*height + 3*(2*radius+1))
}

func channels(p uint32) (int, int, int) {
	return int(p >> 16 & 0xff), int(p >> 8 & 0xff), int(p & 0xff)
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
