// Package texture owns the immutable RGBA32 texel buffer the rasterizer
// samples from, plus the external image-decode collaborators that produce
// one from a PNG/JPEG file or a procedural pattern.
package texture

import (
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"math"
	"os"
)

// Texture is an immutable, row-major RGBA32 texel buffer. Texel (x,y) lives
// at Texels[x+y*Width], packed (a<<24)|(b<<16)|(g<<8)|r.
type Texture struct {
	Width  int
	Height int
	Texels []uint32
}

// New wraps a pre-built texel buffer. len(texels) must equal width*height.
func New(width, height int, texels []uint32) (*Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("texture: width and height must be positive, got %dx%d", width, height)
	}
	if len(texels) != width*height {
		return nil, fmt.Errorf("texture: texel buffer length %d != %d*%d", len(texels), width, height)
	}
	return &Texture{Width: width, Height: height, Texels: texels}, nil
}

// Sample returns the nearest texel to normalized coordinate (u,v), clamping
// the high end to the last row/column. No filtering is performed. Negative
// u/v is not special-cased; floor(u*w+0.5) may go negative and produce a
// wrapped or out-of-range index, which is the caller's responsibility to
// avoid (see spec open question on negative UV).
func (t *Texture) Sample(u, v float64) uint32 {
	tx := int(math.Floor(u*float64(t.Width) + 0.5))
	ty := int(math.Floor(v*float64(t.Height) + 0.5))
	if tx > t.Width-1 {
		tx = t.Width - 1
	}
	if ty > t.Height-1 {
		ty = t.Height - 1
	}
	return t.Texels[tx+ty*t.Width]
}

// Pack encodes four 0-255 channels into the RGBA32 byte order used by both
// Texture and Framebuffer: R in the low byte, A in the high byte.
func Pack(r, g, b, a uint8) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(g)<<8 | uint32(r)
}

// Unpack splits a packed RGBA32 value back into its four channels.
func Unpack(c uint32) (r, g, b, a uint8) {
	return uint8(c), uint8(c >> 8), uint8(c >> 16), uint8(c >> 24)
}

// Load decodes a PNG or JPEG file from disk into a Texture. Image decoding
// is an external collaborator the core never performs itself.
func Load(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("texture: open %q: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("texture: decode %q: %w", path, err)
	}
	return FromImage(img), nil
}

// FromImage converts a decoded image.Image into a Texture.
func FromImage(img image.Image) *Texture {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	texels := make([]uint32, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			r, g, b, a := c.RGBA()
			texels[x+y*width] = Pack(uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8))
		}
	}
	return &Texture{Width: width, Height: height, Texels: texels}
}

// NewChecker builds a procedural checkerboard texture, used both as the
// CLI driver's no-texture fallback and the perspective-correct-UV test
// scenario's 2x2 checker pattern.
func NewChecker(width, height, checkSize int, c1, c2 uint32) *Texture {
	texels := make([]uint32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			cx := x / checkSize
			cy := y / checkSize
			if (cx+cy)%2 == 0 {
				texels[x+y*width] = c1
			} else {
				texels[x+y*width] = c2
			}
		}
	}
	return &Texture{Width: width, Height: height, Texels: texels}
}

// NewGradient builds a horizontal-gradient texture between two colors.
func NewGradient(width, height int, left, right uint32) *Texture {
	texels := make([]uint32, width*height)
	lr, lg, lb, la := Unpack(left)
	rr, rg, rb, ra := Unpack(right)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t := float64(x) / float64(width-1)
			texels[x+y*width] = Pack(
				lerpByte(lr, rr, t),
				lerpByte(lg, rg, t),
				lerpByte(lb, rb, t),
				lerpByte(la, ra, t),
			)
		}
	}
	return &Texture{Width: width, Height: height, Texels: texels}
}

func lerpByte(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}
