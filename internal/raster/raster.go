package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

var (
	// ErrEmpty is returned when an image with no pixels is converted to a Raster.
	ErrEmpty = errors.New("raster: image has no pixels")

	ErrTooLarge = errors.New("raster: image exceeds the pixel limit")
)

// DefaultMaxPixels is the pixel limit applied by Decode.
const DefaultMaxPixels = 64 << 20

// Raster is a row-major buffer of packed, non-premultiplied ARGB pixels
// (a<<24 | r<<16 | g<<8 | b).
type Raster struct {
	Width  int
	Height int
	Pix    []uint32
}

// New allocates a zeroed (fully transparent) raster. Negative dimensions are
// treated as zero.
func New(width, height int) *Raster {
	width, height = max(width, 0), max(height, 0)
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]uint32, width*height),
	}
}

// Valid reports whether the raster can be handed to a kernel.
func (r *Raster) Valid() bool {
	return r != nil && r.Width >= 1 && r.Height >= 1 && len(r.Pix) == r.Width*r.Height
}

func (r *Raster) At(x, y int) uint32 {
	return r.Pix[y*r.Width+x]
}

func (r *Raster) Set(x, y int, p uint32) {
	r.Pix[y*r.Width+x] = p
}

// Fill sets every pixel to p.
func (r *Raster) Fill(p uint32) {
	for i := range r.Pix {
		r.Pix[i] = p
	}
}

func (r *Raster) Clone() *Raster {
	out := &Raster{
		Width:  r.Width,
		Height: r.Height,
		Pix:    make([]uint32, len(r.Pix)),
	}
	copy(out.Pix, r.Pix)
	return out
}

// RowBytes is the number of bytes a single row occupies at 4 bytes per pixel.
func (r *Raster) RowBytes() int {
	return r.Width * 4
}

func (r *Raster) SizeBytes() int {
	return r.RowBytes() * r.Height
}

// Release invalidates a raster whose ownership has been given up. Any later
// use sees an empty, invalid raster.
func (r *Raster) Release() {
	r.Width, r.Height, r.Pix = 0, 0, nil
}

// FromImage copies any image into a new packed raster.
func FromImage(img image.Image) (*Raster, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmpty
	}

	src, ok := img.(*image.NRGBA)
	if !ok {
		src = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)
		b = src.Bounds()
	}

	out := New(b.Dx(), b.Dy())
	for y := 0; y < out.Height; y++ {
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		row := src.Pix[off : off+out.Width*4]
		for x := 0; x < out.Width; x++ {
			i := x * 4
			out.Pix[y*out.Width+x] = Pack(row[i+3], row[i], row[i+1], row[i+2])
		}
	}
	return out, nil
}

// NRGBA converts the raster into a freshly allocated image.
func (r *Raster) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i, p := range r.Pix {
		a, red, g, b := Unpack(p)
		j := i * 4
		img.Pix[j] = red
		img.Pix[j+1] = g
		img.Pix[j+2] = b
		img.Pix[j+3] = a
	}
	return img
}

// Decode reads a PNG of at most DefaultMaxPixels into a raster.
func Decode(rd io.Reader) (*Raster, error) {
	return DecodeLimit(rd, DefaultMaxPixels)
}

// DecodeLimit reads a PNG into a raster. The header is checked against
// maxPixels before any pixel data is allocated.
func DecodeLimit(rd io.Reader, maxPixels int) (*Raster, error) {
	var header bytes.Buffer
	cfg, err := png.DecodeConfig(io.TeeReader(rd, &header))
	if err != nil {
		return nil, err
	}
	if cfg.Width > 0 && cfg.Height > maxPixels/cfg.Width {
		return nil, fmt.Errorf("%w: %dx%d > %d", ErrTooLarge, cfg.Width, cfg.Height, maxPixels)
	}

	img, err := png.Decode(io.MultiReader(&header, rd))
	if err != nil {
		return nil, err
	}
	return FromImage(img)
}

// Encode writes the raster as a PNG.
func (r *Raster) Encode(w io.Writer) error {
	return png.Encode(w, r.NRGBA())
}

func Pack(a, r, g, b uint8) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func Unpack(p uint32) (a, r, g, b uint8) {
	return uint8(p >> 24), uint8(p >> 16), uint8(p >> 8), uint8(p)
}

func Alpha(p uint32) uint8 {
	return uint8(p >> 24)
}

// PackColor packs any color.Color as non-premultiplied ARGB.
func PackColor(c color.Color) uint32 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Pack(n.A, n.R, n.G, n.B)
}
