package service

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/rm-hull/blur-overlay/internal/blur"
	"golang.org/x/image/colornames"
)

const (
	DefaultRadius    = 5
	DefaultDownScale = 4.0
)

// DefaultOverlay is a light, translucent white.
var DefaultOverlay = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x99}

// Params configure a single blur request. They are copied into the request
// and never modified afterwards.
type Params struct {
	// Radius of the blur; 0 disables it. Clamped to blur.MaxRadius.
	Radius int

	// DownScale shrinks the captured raster before blurring. At least 1.
	DownScale float64

	// Overlay is composited over the downscaled raster before blurring.
	Overlay color.NRGBA

	UseAccelerated bool

	// Debug logs timing and allocation details for the request.
	Debug bool
}

func DefaultParams() Params {
	return Params{
		Radius:    DefaultRadius,
		DownScale: DefaultDownScale,
		Overlay:   DefaultOverlay,
	}
}

// Normalize clamps the radius to [0, blur.MaxRadius] and the down scale
// factor to >= 1.
func (p Params) Normalize() Params {
	p.Radius = min(max(p.Radius, 0), blur.MaxRadius)
	if math.IsNaN(p.DownScale) || p.DownScale < 1.0 {
		p.DownScale = 1.0
	}
	return p
}

// Quality presets pick a down scale factor: low blurs a quarter-size
// raster, high blurs at full size.
type Quality int

const (
	QualityLow Quality = iota
	QualityHigh
)

func (q Quality) DownScale() float64 {
	if q == QualityHigh {
		return 1.0
	}
	return DefaultDownScale
}

func (q Quality) String() string {
	if q == QualityHigh {
		return "high"
	}
	return "low"
}

func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return QualityLow, nil
	case "high":
		return QualityHigh, nil
	default:
		return QualityLow, fmt.Errorf("invalid quality %q: expected low or high", s)
	}
}

// ParseColor accepts "#RRGGBB", "#AARRGGBB" or an SVG/CSS colour name, the
// latter optionally followed by "@alpha" (0-255), e.g. "white@128".
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
		}
		switch len(hex) {
		case 6:
			return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
		case 8:
			return color.NRGBA{A: uint8(v >> 24), R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
		default:
			return color.NRGBA{}, fmt.Errorf("invalid colour %q: expected #RRGGBB or #AARRGGBB", s)
		}
	}

	name, alpha, hasAlpha := strings.Cut(strings.ToLower(s), "@")
	c, ok := colornames.Map[name]
	if !ok {
		return color.NRGBA{}, fmt.Errorf("unknown colour name %q", name)
	}
	out := color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
	if hasAlpha {
		a, err := strconv.ParseUint(alpha, 10, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in %q: %w", s, err)
		}
		out.A = uint8(a)
	}
	return out, nil
}
