// Package raster implements the scanline rasterization pipeline: per-triangle
// back-face culling and flat shading, clip-space clipping, perspective
// divide, viewport mapping, and edge-function coverage testing with
// perspective-correct attribute interpolation into a Framebuffer.
package raster

import (
	"math"

	"github.com/taigrr/raster/internal/rlog"
	"github.com/taigrr/raster/pkg/clip"
	"github.com/taigrr/raster/pkg/math3d"
	"github.com/taigrr/raster/pkg/mesh"
	"github.com/taigrr/raster/pkg/texture"
)

// Mode selects which per-pixel shading strategy a Rasterize call uses.
type Mode int

const (
	// ModeColor shades with interpolated per-vertex colors (or a flat white
	// lit only by shade, if the mesh carries none).
	ModeColor Mode = iota
	// ModeTextured shades by sampling a Texture at the interpolated UV,
	// modulated by the triangle's flat shade.
	ModeTextured
	// ModeWireframe skips the fill entirely and draws the triangle's three
	// edges as lines.
	ModeWireframe
	// ModeDepth visualizes the reciprocal-w depth buffer through the gamma
	// LUT instead of shading normally.
	ModeDepth
)

// lightDir is the fixed flat-shading light direction.
var lightDir = math3d.V3(0, -1, -1).Normalize()

// Rasterizer holds per-call bookkeeping; it carries no state between calls
// to Rasterize besides the discard counter, which Rasterize resets.
type Rasterizer struct {
	// Discarded counts triangles skipped this call: back-facing, clipped
	// entirely away, or reduced to zero screen area.
	Discarded int
}

// New returns a ready-to-use Rasterizer.
func New() *Rasterizer {
	return &Rasterizer{}
}

// Rasterize draws every triangle of m into fb. m's positions are assumed to
// already be in view space (camera at the origin looking down -Z); the
// projection matrix carries them to clip space. tex is consulted only in
// ModeTextured and may be nil otherwise.
func (r *Rasterizer) Rasterize(fb *Framebuffer, m *mesh.Mesh, projection math3d.Mat4, tex *texture.Texture, mode Mode) {
	r.Discarded = 0
	planes := clip.StandardPlanes()
	triCount := m.TriangleCount()
	hasColors := m.HasColors()
	hasUVs := m.HasUVs()

	for t := 0; t < triCount; t++ {
		i0, i1, i2 := m.VertIndices[t*3+0], m.VertIndices[t*3+1], m.VertIndices[t*3+2]
		v0, v1, v2 := m.Positions[i0], m.Positions[i1], m.Positions[i2]

		normal := v2.Sub(v0).Cross(v1.Sub(v0)).Normalize()
		if v0.Dot(normal) > 0 {
			r.Discarded++
			continue
		}

		shade := -lightDir.Dot(normal)
		intensity := math3d.V3(shade, shade, shade)

		var c0, c1, c2 math3d.Vec3
		if hasColors && mode != ModeTextured {
			// Colors are per face-vertex, addressed positionally, not
			// through VertIndices.
			c0 = m.Colors[t*3+0].Scale(shade)
			c1 = m.Colors[t*3+1].Scale(shade)
			c2 = m.Colors[t*3+2].Scale(shade)
		} else {
			c0, c1, c2 = intensity, intensity, intensity
		}

		var uv0, uv1, uv2 math3d.Vec2
		if hasUVs {
			u0, u1, u2 := m.UVIndices[t*3+0], m.UVIndices[t*3+1], m.UVIndices[t*3+2]
			uv0, uv1, uv2 = m.UVs[u0], m.UVs[u1], m.UVs[u2]
		}

		tri := clip.Triangle{V: [3]clip.Vertex{
			projectVertex(v0, uv0, c0, projection),
			projectVertex(v1, uv1, c1, projection),
			projectVertex(v2, uv2, c2, projection),
		}}

		queue := clip.ClipAgainstPlanes(tri, planes[:])
		if queue.Len() == 0 {
			r.Discarded++
			continue
		}
		for i := 0; i < queue.Len(); i++ {
			r.fillTriangle(fb, queue.At(i), tex, mode)
		}
	}

	rlog.Logger().Debug("rasterize pass complete", "triangles", triCount, "discarded", r.Discarded)
}

// projectVertex transforms pos by the projection matrix. The clip-space
// Pos.Z slot is repurposed to carry w_clip rather than the true pre-divide
// depth: every clip plane test and the final perspective divide need only
// x, y, and w, and the projection makes w_clip equal -z_view, the
// same quantity spec'd as the per-vertex pre-divide w.
func projectVertex(pos math3d.Vec3, uv math3d.Vec2, color math3d.Vec3, projection math3d.Mat4) clip.Vertex {
	c := projection.MulVec4(math3d.V4FromV3(pos, 1))
	return clip.Vertex{
		Pos:   math3d.V3(c.X, c.Y, c.W),
		UV:    uv,
		Color: color,
		W:     c.W,
	}
}

// edge2D is the signed area (z component of the 2D cross product) of the
// triangle (a,b,c); positive for clockwise-wound raster-space triangles.
func edge2D(a, b, c math3d.Vec2) float64 {
	return (c.X-a.X)*(b.Y-a.Y) - (c.Y-a.Y)*(b.X-a.X)
}

// topLeftCovered applies the shared top-left fill rule: pixels exactly on
// a shared edge belong to the triangle only if that edge is a top edge
// (horizontal, pointing right) or a left edge (pointing up, +Y, in the
// y-up raster space).
func topLeftCovered(e float64, edgeVec math3d.Vec2) bool {
	if math3d.Equal(e, 0) {
		return (math3d.Equal(edgeVec.Y, 0) && edgeVec.X > 0) || edgeVec.Y > 0
	}
	return e > 0
}

// fillTriangle rasterizes one already-clipped, already-projected triangle:
// perspective divide, viewport mapping, then (for fill modes) an edge-
// function scan over its screen-space bounding box.
func (r *Rasterizer) fillTriangle(fb *Framebuffer, tri clip.Triangle, tex *texture.Texture, mode Mode) {
	w0, w1, w2 := tri.V[0].W, tri.V[1].W, tri.V[2].W
	if w0 == 0 || w1 == 0 || w2 == 0 {
		r.Discarded++
		return
	}

	p0 := math3d.V2(tri.V[0].Pos.X/w0, tri.V[0].Pos.Y/w0)
	p1 := math3d.V2(tri.V[1].Pos.X/w1, tri.V[1].Pos.Y/w1)
	p2 := math3d.V2(tri.V[2].Pos.X/w2, tri.V[2].Pos.Y/w2)

	fw, fh := float64(fb.Width), float64(fb.Height)
	s0 := math3d.V2((p0.X+1)*fw/2, (p0.Y+1)*fh/2)
	s1 := math3d.V2((p1.X+1)*fw/2, (p1.Y+1)*fh/2)
	s2 := math3d.V2((p2.X+1)*fw/2, (p2.Y+1)*fh/2)

	if mode == ModeWireframe {
		white := texture.Pack(255, 255, 255, 255)
		DrawWireframeTriangle(fb,
			int(math.Round(s0.X)), int(math.Round(s0.Y)),
			int(math.Round(s1.X)), int(math.Round(s1.Y)),
			int(math.Round(s2.X)), int(math.Round(s2.Y)),
			white)
		return
	}

	area2 := edge2D(s0, s1, s2)
	if math3d.Equal(area2, 0) {
		r.Discarded++
		return
	}

	minX := int(math.Floor(minOf3(s0.X, s1.X, s2.X)))
	minY := int(math.Floor(minOf3(s0.Y, s1.Y, s2.Y)))
	maxX := int(math.Ceil(maxOf3(s0.X, s1.X, s2.X)))
	maxY := int(math.Ceil(maxOf3(s0.Y, s1.Y, s2.Y)))

	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX > fb.Width-1 {
		maxX = fb.Width - 1
	}
	if maxY > fb.Height-1 {
		maxY = fb.Height - 1
	}
	if minX > maxX || minY > maxY {
		r.Discarded++
		return
	}

	edge0 := s2.Sub(s1) // opposite v0, paired with e12
	edge1 := s0.Sub(s2) // opposite v1, paired with e20
	edge2 := s1.Sub(s0) // opposite v2, paired with e01

	shade := pixelShader(tri, tex, mode)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px := math3d.V2(float64(x)+0.5, float64(y)+0.5)

			e12 := edge2D(s1, s2, px)
			e20 := edge2D(s2, s0, px)
			e01 := edge2D(s0, s1, px)

			if !topLeftCovered(e12, edge0) || !topLeftCovered(e20, edge1) || !topLeftCovered(e01, edge2) {
				continue
			}

			t0 := e12 / area2
			t1 := e20 / area2
			t2 := e01 / area2

			oow := t0/w0 + t1/w1 + t2/w2
			idx := fb.Index(x, y)
			if oow <= fb.Depth[idx] {
				continue
			}

			fb.Depth[idx] = oow
			fb.Pixels[idx] = shade(t0, t1, t2, oow)
		}
	}
}

// pixelShader returns a per-pixel color function selected once per
// triangle, so the mode switch never executes inside the hot scan loop.
func pixelShader(tri clip.Triangle, tex *texture.Texture, mode Mode) func(t0, t1, t2, oow float64) uint32 {
	w0, w1, w2 := tri.V[0].W, tri.V[1].W, tri.V[2].W
	c0, c1, c2 := tri.V[0].Color, tri.V[1].Color, tri.V[2].Color
	uv0, uv1, uv2 := tri.V[0].UV, tri.V[1].UV, tri.V[2].UV

	switch mode {
	case ModeTextured:
		return func(t0, t1, t2, oow float64) uint32 {
			u := (1 / oow) * (t0*uv0.X/w0 + t1*uv1.X/w1 + t2*uv2.X/w2)
			v := (1 / oow) * (t0*uv0.Y/w0 + t1*uv1.Y/w1 + t2*uv2.Y/w2)
			intensity := (1 / oow) * (t0*c0.X/w0 + t1*c1.X/w1 + t2*c2.X/w2)
			if tex == nil {
				return encodeColor(math3d.V3(intensity, intensity, intensity))
			}
			return modulate(tex.Sample(u, v), intensity)
		}
	case ModeDepth:
		return func(t0, t1, t2, oow float64) uint32 {
			return packGray(quantizeDepth(oow))
		}
	default: // ModeColor
		return func(t0, t1, t2, oow float64) uint32 {
			r := (1 / oow) * (t0*c0.X/w0 + t1*c1.X/w1 + t2*c2.X/w2)
			g := (1 / oow) * (t0*c0.Y/w0 + t1*c1.Y/w1 + t2*c2.Y/w2)
			b := (1 / oow) * (t0*c0.Z/w0 + t1*c1.Z/w1 + t2*c2.Z/w2)
			return encodeColor(math3d.V3(r, g, b))
		}
	}
}

func minOf3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func maxOf3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}
