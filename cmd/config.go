package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rm-hull/blur-overlay/internal/blur"
	"github.com/rm-hull/blur-overlay/internal/service"
)

// ParamsFromEnv returns the default blur parameters, overridden by any of
// BLUR_RADIUS, BLUR_DOWNSCALE, BLUR_QUALITY and BLUR_OVERLAY that are set.
// BLUR_QUALITY takes precedence over BLUR_DOWNSCALE.
func ParamsFromEnv() (service.Params, error) {
	p := service.DefaultParams()

	if v := os.Getenv("BLUR_RADIUS"); v != "" {
		radius, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("failed to parse BLUR_RADIUS=%q: %w", v, err)
		}
		p.Radius = radius
	}

	if v := os.Getenv("BLUR_DOWNSCALE"); v != "" {
		factor, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("failed to parse BLUR_DOWNSCALE=%q: %w", v, err)
		}
		p.DownScale = factor
	}

	if v := os.Getenv("BLUR_QUALITY"); v != "" {
		q, err := service.ParseQuality(v)
		if err != nil {
			return p, fmt.Errorf("failed to parse BLUR_QUALITY: %w", err)
		}
		p.DownScale = q.DownScale()
	}

	if v := os.Getenv("BLUR_OVERLAY"); v != "" {
		c, err := service.ParseColor(v)
		if err != nil {
			return p, fmt.Errorf("failed to parse BLUR_OVERLAY: %w", err)
		}
		p.Overlay = c
	}

	return p.Normalize(), nil
}

// AcceleratorFromEnv returns BLUR_ACCELERATOR, or the default accelerator.
func AcceleratorFromEnv() string {
	if v := os.Getenv("BLUR_ACCELERATOR"); v != "" {
		return v
	}
	return blur.DefaultAccelerator
}
