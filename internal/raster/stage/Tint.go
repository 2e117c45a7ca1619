package stage

import (
	"image/color"

	"github.com/rm-hull/blur-overlay/internal/raster"
)

type TintStage struct {
	Overlay color.NRGBA
}

// Process composites the flat overlay color over every pixel (source-over).
// An opaque overlay replaces the pixel entirely, a transparent one is a no-op.
// The raster is modified in place.
func (s *TintStage) Process(r *raster.Raster) (*raster.Raster, error) {
	sa := uint32(s.Overlay.A)
	if sa == 0 {
		return r, nil
	}
	if sa == 0xff {
		r.Fill(raster.PackColor(s.Overlay))
		return r, nil
	}

	inv := 0xff - sa
	sr, sg, sb := uint32(s.Overlay.R)*sa, uint32(s.Overlay.G)*sa, uint32(s.Overlay.B)*sa
	for i, p := range r.Pix {
		da, dr, dg, db := raster.Unpack(p)
		// Destination color weighted by its own alpha and the remaining coverage.
		dw := uint32(da) * inv
		oa := sa*0xff + dw
		if oa == 0 {
			continue
		}
		red := (sr*0xff + uint32(dr)*dw + oa/2) / oa
		green := (sg*0xff + uint32(dg)*dw + oa/2) / oa
		blue := (sb*0xff + uint32(db)*dw + oa/2) / oa
		r.Pix[i] = raster.Pack(uint8((oa+127)/0xff), uint8(red), uint8(green), uint8(blue))
	}
	return r, nil
}
