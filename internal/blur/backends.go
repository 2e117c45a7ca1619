package blur

import (
	"image"

	bildblur "github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

func init() {
	Register("bild", &bildAccelerator{})
	Register("imaging", &imagingAccelerator{})
}

// bildAccelerator spreads the convolution over all cores using bild's
// parallel Gaussian. The radius is passed through as bild's kernel radius.
type bildAccelerator struct{}

func (a *bildAccelerator) Name() string { return "bild" }

func (a *bildAccelerator) Open() (Device, error) { return cpuDevice(bildGaussian), nil }

func bildGaussian(img *image.NRGBA, radius int) image.Image {
	return bildblur.Gaussian(img, float64(radius))
}

// imagingAccelerator uses imaging's parallel separable Gaussian, treating the
// radius as sigma.
type imagingAccelerator struct{}

func (a *imagingAccelerator) Name() string { return "imaging" }

func (a *imagingAccelerator) Open() (Device, error) { return cpuDevice(imagingGaussian), nil }

func imagingGaussian(img *image.NRGBA, radius int) image.Image {
	return imaging.Blur(img, float64(radius))
}

// cpuDevice adapts an in-process blur function to the Device interface.
// There is nothing to release.
type cpuDevice func(img *image.NRGBA, radius int) image.Image

func (d cpuDevice) GaussianBlur(img *image.NRGBA, radius int) (image.Image, error) {
	return d(img, radius), nil
}

func (d cpuDevice) Close() error { return nil }
