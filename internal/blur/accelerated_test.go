package blur

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"testing"

	"github.com/rm-hull/blur-overlay/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAccelerator is a stub accelerator whose behaviour is set per test.
type MockAccelerator struct {
	OpenFunc func() (Device, error)
}

func (m *MockAccelerator) Name() string          { return "mock" }
func (m *MockAccelerator) Open() (Device, error) { return m.OpenFunc() }

type MockDevice struct {
	BlurFunc func(img *image.NRGBA, radius int) (image.Image, error)
	closed   int
}

func (d *MockDevice) GaussianBlur(img *image.NRGBA, radius int) (image.Image, error) {
	return d.BlurFunc(img, radius)
}

func (d *MockDevice) Close() error {
	d.closed++
	return nil
}

func mockWith(dev *MockDevice) *MockAccelerator {
	return &MockAccelerator{OpenFunc: func() (Device, error) { return dev, nil }}
}

func TestAcceleratedBlur_Backends(t *testing.T) {
	for _, name := range []string{"bild", "imaging"} {
		t.Run(name, func(t *testing.T) {
			acc := Lookup(name)
			require.NotNil(t, acc)
			assert.Equal(t, name, acc.Name())

			src := gradient(24, 18)
			orig := src.Clone()
			out, err := AcceleratedBlur(context.Background(), src, 3, false, acc)
			require.NoError(t, err)
			assert.Equal(t, src.Width, out.Width)
			assert.Equal(t, src.Height, out.Height)
			assert.Equal(t, orig.Pix, src.Pix, "source must not be modified")
			for i := range src.Pix {
				if !assert.Equal(t, raster.Alpha(src.Pix[i]), raster.Alpha(out.Pix[i])) {
					break
				}
			}
		})
	}
}

func TestAcceleratedBlur_Reuse(t *testing.T) {
	src := gradient(8, 8)
	out, err := AcceleratedBlur(context.Background(), src, 2, true, Lookup(""))
	require.NoError(t, err)
	assert.Same(t, src, out)
}

func TestAcceleratedBlur_Unavailable(t *testing.T) {
	t.Run("nil accelerator", func(t *testing.T) {
		_, err := AcceleratedBlur(context.Background(), gradient(4, 4), 3, false, nil)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("radius below one", func(t *testing.T) {
		dev := &MockDevice{}
		_, err := AcceleratedBlur(context.Background(), gradient(4, 4), 0, false, mockWith(dev))
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, 0, dev.closed, "device should not be opened")
	})

	t.Run("radius above maximum", func(t *testing.T) {
		dev := &MockDevice{}
		_, err := AcceleratedBlur(context.Background(), gradient(4, 4), MaxRadius+1, false, mockWith(dev))
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, 0, dev.closed, "device should not be opened")
	})

	t.Run("open fails", func(t *testing.T) {
		acc := &MockAccelerator{OpenFunc: func() (Device, error) { return nil, errors.New("no driver") }}
		_, err := AcceleratedBlur(context.Background(), gradient(4, 4), 3, false, acc)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Contains(t, err.Error(), "no driver")
	})

	t.Run("device error releases device", func(t *testing.T) {
		dev := &MockDevice{BlurFunc: func(*image.NRGBA, int) (image.Image, error) {
			return nil, errors.New("context lost")
		}}
		src := gradient(4, 4)
		orig := src.Clone()
		_, err := AcceleratedBlur(context.Background(), src, 3, true, mockWith(dev))
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, 1, dev.closed)
		assert.Equal(t, orig.Pix, src.Pix)
	})

	t.Run("device panic is recovered", func(t *testing.T) {
		dev := &MockDevice{BlurFunc: func(*image.NRGBA, int) (image.Image, error) {
			panic("driver crashed")
		}}
		assert.NotPanics(t, func() {
			_, err := AcceleratedBlur(context.Background(), gradient(4, 4), 3, false, mockWith(dev))
			assert.ErrorIs(t, err, ErrUnavailable)
		})
		assert.Equal(t, 1, dev.closed)
	})

	t.Run("wrong result size", func(t *testing.T) {
		dev := &MockDevice{BlurFunc: func(*image.NRGBA, int) (image.Image, error) {
			return image.NewNRGBA(image.Rect(0, 0, 2, 2)), nil
		}}
		_, err := AcceleratedBlur(context.Background(), gradient(4, 4), 3, false, mockWith(dev))
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("failure is logged", func(t *testing.T) {
		var buf bytes.Buffer
		SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
		t.Cleanup(func() { SetLogger(nil) })

		acc := &MockAccelerator{OpenFunc: func() (Device, error) { return nil, errors.New("no driver") }}
		_, err := AcceleratedBlur(context.Background(), gradient(4, 4), 3, false, acc)
		assert.Error(t, err)
		assert.Contains(t, buf.String(), "accelerated blur failed")
		assert.Contains(t, buf.String(), "accelerator=mock")
	})
}

func TestAcceleratedBlur_InvalidRaster(t *testing.T) {
	_, err := AcceleratedBlur(context.Background(), raster.New(0, 0), 3, false, Lookup(""))
	assert.ErrorIs(t, err, ErrInvalidRaster)
}

func TestRegistry(t *testing.T) {
	assert.Contains(t, Accelerators(), "bild")
	assert.Contains(t, Accelerators(), "imaging")
	assert.Nil(t, Lookup("does-not-exist"))

	Register("mock", mockWith(&MockDevice{}))
	t.Cleanup(func() { Unregister("mock") })
	assert.Equal(t, []string{"bild", "imaging", "mock"}, Accelerators())
}
