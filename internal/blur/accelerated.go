package blur

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/rm-hull/blur-overlay/internal/raster"
)

// ErrUnavailable indicates the accelerated kernel could not run. Callers
// should fall back to StackBlur.
var ErrUnavailable = errors.New("blur: accelerator unavailable")

// Accelerator provides devices that run a Gaussian blur primitive.
type Accelerator interface {
	// Name returns the accelerator name (e.g. "bild").
	Name() string

	// Open acquires a device for a single blur. The device must be closed by
	// the caller on every path.
	Open() (Device, error)
}

// Device is an acquired accelerator handle.
type Device interface {
	// GaussianBlur blurs img with a platform defined radius. The result must
	// have the same bounds as img.
	GaussianBlur(img *image.NRGBA, radius int) (image.Image, error)

	Close() error
}

// AcceleratedBlur runs the blur on a device opened from acc. Any failure,
// including a panic inside the device, is reported as an error wrapping
// ErrUnavailable and the source raster is left untouched.
//
// The radius is handed to the device as is; output is not expected to match
// StackBlur. Alpha is restored from the source so translucency is preserved.
func AcceleratedBlur(ctx context.Context, src *raster.Raster, radius int, canReuse bool, acc Accelerator) (out *raster.Raster, err error) {
	if !src.Valid() {
		return nil, ErrInvalidRaster
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("%w: no accelerator configured", ErrUnavailable)
	}

	defer func() {
		if err != nil && errors.Is(err, ErrUnavailable) {
			Logger().Warn("accelerated blur failed, caller should fall back to stack blur",
				"accelerator", acc.Name(), "radius", radius, "error", err)
		}
	}()

	if radius < 1 || radius > MaxRadius {
		return nil, fmt.Errorf("%w: %s rejects radius %d", ErrUnavailable, acc.Name(), radius)
	}

	dev, err := acc.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s device: %v", ErrUnavailable, acc.Name(), err)
	}
	defer func() {
		if cerr := dev.Close(); cerr != nil {
			Logger().Warn("failed to release accelerator device", "accelerator", acc.Name(), "error", cerr)
		}
	}()

	blurred, err := runDevice(dev, src.NRGBA(), radius)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, acc.Name(), err)
	}

	b := blurred.Bounds()
	if b.Dx() != src.Width || b.Dy() != src.Height {
		return nil, fmt.Errorf("%w: %s returned %dx%d for %dx%d input",
			ErrUnavailable, acc.Name(), b.Dx(), b.Dy(), src.Width, src.Height)
	}

	dst := src
	if !canReuse {
		dst = src.Clone()
	}
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			c := color.NRGBAModel.Convert(blurred.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := y*dst.Width + x
			dst.Pix[i] = dst.Pix[i]&0xff000000 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
		}
	}
	return dst, nil
}

func runDevice(dev Device, img *image.NRGBA, radius int) (out image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("device panicked: %v", r)
		}
	}()
	out, err = dev.GaussianBlur(img, radius)
	if err == nil && out == nil {
		err = errors.New("device returned no image")
	}
	return out, err
}
