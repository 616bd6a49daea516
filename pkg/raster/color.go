package raster

import (
	"math"

	"github.com/taigrr/raster/pkg/math3d"
	"github.com/taigrr/raster/pkg/texture"
)

// clampChannel clamps a channel to [0,1], scales to [0,255], and rounds to
// the nearest integer.
func clampChannel(c float64) uint8 {
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return uint8(math.Floor(c*255.0 + 0.5))
}

// encodeColor packs a linear Vec3 color (each channel roughly in [0,1]) into
// an opaque RGBA32 pixel, clamping and rounding each channel independently.
func encodeColor(c math3d.Vec3) uint32 {
	return texture.Pack(clampChannel(c.X), clampChannel(c.Y), clampChannel(c.Z), 255)
}

// modulate scales a sampled texel's RGB by intensity, leaving alpha intact.
func modulate(texel uint32, intensity float64) uint32 {
	r, g, b, a := texture.Unpack(texel)
	return texture.Pack(
		clampChannel(float64(r)/255.0*intensity),
		clampChannel(float64(g)/255.0*intensity),
		clampChannel(float64(b)/255.0*intensity),
		a,
	)
}

// quantizeDepth maps a reciprocal-w sample through the gamma LUT using the
// same clamp-and-round convention as color channel encoding.
func quantizeDepth(oow float64) byte {
	return gammaLUT[clampChannel(oow)]
}

// packGray packs a single gamma-decoded gray level as an opaque pixel.
func packGray(g byte) uint32 {
	return texture.Pack(g, g, g, 255)
}
