package raster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taigrr/raster/pkg/math3d"
	"github.com/taigrr/raster/pkg/mesh"
	"github.com/taigrr/raster/pkg/texture"
)

const (
	testWidth  = 64
	testHeight = 64
)

func testProjection() math3d.Mat4 {
	return math3d.Perspective(math.Pi/2, 1.0, 0.1, 100.0)
}

// frontFacingTriangle is wound so that, viewed from the origin looking down
// -Z, it is not back-face culled: normal faces +Z, toward the camera.
func frontFacingTriangle(t *testing.T) *mesh.Mesh {
	t.Helper()
	positions := []math3d.Vec3{
		math3d.V3(-0.5, -0.5, -2),
		math3d.V3(0, 0.5, -2),
		math3d.V3(0.5, -0.5, -2),
	}
	colors := []math3d.Vec3{
		math3d.V3(1, 1, 1),
		math3d.V3(1, 1, 1),
		math3d.V3(1, 1, 1),
	}
	m, err := mesh.New(mesh.CW, positions, colors, []int{0, 1, 2}, nil, nil, nil, nil)
	require.NoError(t, err)
	return m
}

func TestRasterizeSingleTriangleLit(t *testing.T) {
	fb := NewFramebuffer(testWidth, testHeight)
	fb.Clear(0, 0)
	m := frontFacingTriangle(t)

	r := New()
	r.Rasterize(fb, m, testProjection(), nil, ModeColor)

	require.Equal(t, 0, r.Discarded)

	cx, cy := testWidth/2, testHeight/2
	c := fb.GetPixel(cx, cy)
	require.NotEqual(t, uint32(0), c, "center pixel should be covered")

	red, green, blue, _ := texture.Unpack(c)
	require.Equal(t, red, green)
	require.Equal(t, green, blue)
	require.Greater(t, red, uint8(0))
	require.Greater(t, fb.Depth[fb.Index(cx, cy)], 0.0)
}

func TestRasterizeBackFaceIsCulled(t *testing.T) {
	fb := NewFramebuffer(testWidth, testHeight)
	positions := []math3d.Vec3{
		math3d.V3(-0.5, -0.5, -2),
		math3d.V3(0.5, -0.5, -2), // swapped relative to the front-facing case
		math3d.V3(0, 0.5, -2),
	}
	m, err := mesh.New(mesh.CW, positions, nil, []int{0, 1, 2}, nil, nil, nil, nil)
	require.NoError(t, err)

	r := New()
	r.Rasterize(fb, m, testProjection(), nil, ModeColor)

	require.Equal(t, 1, r.Discarded)
	for _, p := range fb.Pixels {
		require.Equal(t, uint32(0), p)
	}
}

func TestRasterizeDepthOrderingKeepsNearer(t *testing.T) {
	fb := NewFramebuffer(testWidth, testHeight)

	near := []math3d.Vec3{
		math3d.V3(-1, -1, -1),
		math3d.V3(0, 1, -1),
		math3d.V3(1, -1, -1),
	}
	far := []math3d.Vec3{
		math3d.V3(-1, -1, -3),
		math3d.V3(0, 1, -3),
		math3d.V3(1, -1, -3),
	}
	nearColors := []math3d.Vec3{math3d.V3(1, 0, 0), math3d.V3(1, 0, 0), math3d.V3(1, 0, 0)}
	farColors := []math3d.Vec3{math3d.V3(0, 0, 1), math3d.V3(0, 0, 1), math3d.V3(0, 0, 1)}

	farMesh, err := mesh.New(mesh.CW, far, farColors, []int{0, 1, 2}, nil, nil, nil, nil)
	require.NoError(t, err)
	nearMesh, err := mesh.New(mesh.CW, near, nearColors, []int{0, 1, 2}, nil, nil, nil, nil)
	require.NoError(t, err)

	proj := testProjection()
	r := New()
	// Draw far first, then near: the depth test must still keep the nearer
	// triangle regardless of draw order.
	r.Rasterize(fb, farMesh, proj, nil, ModeColor)
	r.Rasterize(fb, nearMesh, proj, nil, ModeColor)

	cx, cy := testWidth/2, testHeight/2
	red, _, blue, _ := texture.Unpack(fb.GetPixel(cx, cy))
	require.Greater(t, red, uint8(0))
	require.Equal(t, uint8(0), blue)
}

func TestRasterizeNearPlaneClipProducesQuad(t *testing.T) {
	// One vertex behind the near plane (w < 0.5), two well in front.
	positions := []math3d.Vec3{
		math3d.V3(0, 0, 0.2),   // behind the camera-adjacent near plane
		math3d.V3(-2, -2, -4),
		math3d.V3(2, -2, -4),
	}
	m, err := mesh.New(mesh.CW, positions, nil, []int{0, 1, 2}, nil, nil, nil, nil)
	require.NoError(t, err)

	fb := NewFramebuffer(testWidth, testHeight)
	r := New()
	r.Rasterize(fb, m, testProjection(), nil, ModeColor)

	covered := 0
	for _, p := range fb.Pixels {
		if p != 0 {
			covered++
		}
	}
	require.Greater(t, covered, 0, "clipped quad should still cover pixels")
}

func TestRasterizeTexturedModeCoversForeshortenedTriangle(t *testing.T) {
	// A triangle heavily foreshortened in depth across its width, sampled
	// from a 2x2 checker, still writes pixels in ModeTextured. Whether the
	// UVs are perspective-correct is checked by
	// TestPerspectiveCorrectUVDiffersFromAffine.
	positions := []math3d.Vec3{
		math3d.V3(-1, -1, -1),
		math3d.V3(-1, 1, -8),
		math3d.V3(1, -1, -1),
	}
	uvs := []math3d.Vec2{
		math3d.V2(0, 0),
		math3d.V2(0, 1),
		math3d.V2(1, 0),
	}
	m, err := mesh.New(mesh.CW, positions, nil, []int{0, 1, 2}, uvs, []int{0, 1, 2}, nil, nil)
	require.NoError(t, err)

	tex := texture.NewChecker(2, 2, 1,
		texture.Pack(255, 255, 255, 255),
		texture.Pack(0, 0, 0, 255),
	)

	fb := NewFramebuffer(testWidth, testHeight)
	r := New()
	r.Rasterize(fb, m, testProjection(), tex, ModeTextured)

	covered := 0
	for _, p := range fb.Pixels {
		if p != 0 {
			covered++
		}
	}
	require.Greater(t, covered, 0)
}

func TestRasterizeWireframeSkipsFillAndDepth(t *testing.T) {
	fb := NewFramebuffer(testWidth, testHeight)
	m := frontFacingTriangle(t)

	r := New()
	r.Rasterize(fb, m, testProjection(), nil, ModeWireframe)

	for _, d := range fb.Depth {
		require.Equal(t, 0.0, d, "wireframe mode must never write depth")
	}

	var anyWhite bool
	for _, p := range fb.Pixels {
		if p == texture.Pack(255, 255, 255, 255) {
			anyWhite = true
			break
		}
	}
	require.True(t, anyWhite, "wireframe should draw at least one white pixel")
}

func TestRasterizeDepthModeUsesGammaLUT(t *testing.T) {
	fb := NewFramebuffer(testWidth, testHeight)
	m := frontFacingTriangle(t)

	r := New()
	r.Rasterize(fb, m, testProjection(), nil, ModeDepth)

	cx, cy := testWidth/2, testHeight/2
	c := fb.GetPixel(cx, cy)
	red, green, blue, a := texture.Unpack(c)
	require.Equal(t, red, green)
	require.Equal(t, green, blue)
	require.Equal(t, uint8(255), a)

	oow := fb.Depth[fb.Index(cx, cy)]
	require.Equal(t, gammaLUT[clampChannel(oow)], red)
}

// TestRasterizeColorInterpolationAtCentroid renders the canonical
// red/green/blue triangle at 100x100 and checks the blend at the centroid:
// equal thirds of each corner color, scaled by the flat shade.
func TestRasterizeColorInterpolationAtCentroid(t *testing.T) {
	const size = 100
	positions := []math3d.Vec3{
		math3d.V3(-0.5, -0.5, -1),
		math3d.V3(0, 0.5, -1),
		math3d.V3(0.5, -0.5, -1),
	}
	colors := []math3d.Vec3{
		math3d.V3(1, 0, 0),
		math3d.V3(0, 1, 0),
		math3d.V3(0, 0, 1),
	}
	m, err := mesh.New(mesh.CW, positions, colors, []int{0, 1, 2}, nil, nil, nil, nil)
	require.NoError(t, err)

	fb := NewFramebuffer(size, size)
	r := New()
	r.Rasterize(fb, m, math3d.Perspective(math.Pi/2, 1.0, 0.5, 100.0), nil, ModeColor)

	// With fovY pi/2 and w=1, NDC equals view-space x/y: the corners land
	// at (25,25), (50,75), (75,25) and the centroid at (50, ~41.7).
	red, green, blue, _ := texture.Unpack(fb.GetPixel(50, 41))
	require.InDelta(t, float64(green), float64(red), 6)
	require.InDelta(t, float64(blue), float64(green), 6)
	// shade/3 with shade = 1/sqrt(2) gives ~60 per channel.
	require.InDelta(t, 60, float64(red), 10)

	// Near each corner one channel dominates.
	cr, cg, cb, _ := texture.Unpack(fb.GetPixel(28, 28))
	require.Greater(t, cr, cg)
	require.Greater(t, cr, cb)
	cr, cg, cb, _ = texture.Unpack(fb.GetPixel(50, 70))
	require.Greater(t, cg, cr)
	require.Greater(t, cg, cb)
	cr, cg, cb, _ = texture.Unpack(fb.GetPixel(71, 28))
	require.Greater(t, cb, cr)
	require.Greater(t, cb, cg)
}

func TestRasterizeDepthOrderingIsDrawOrderIndependent(t *testing.T) {
	near := []math3d.Vec3{
		math3d.V3(-1, -1, -1),
		math3d.V3(0, 1, -1),
		math3d.V3(1, -1, -1),
	}
	far := []math3d.Vec3{
		math3d.V3(-1, -1, -2),
		math3d.V3(0, 1, -2),
		math3d.V3(1, -1, -2),
	}
	nearColors := []math3d.Vec3{math3d.V3(1, 0, 0), math3d.V3(1, 0, 0), math3d.V3(1, 0, 0)}
	farColors := []math3d.Vec3{math3d.V3(0, 0, 1), math3d.V3(0, 0, 1), math3d.V3(0, 0, 1)}

	nearMesh, err := mesh.New(mesh.CW, near, nearColors, []int{0, 1, 2}, nil, nil, nil, nil)
	require.NoError(t, err)
	farMesh, err := mesh.New(mesh.CW, far, farColors, []int{0, 1, 2}, nil, nil, nil, nil)
	require.NoError(t, err)

	proj := testProjection()

	fbA := NewFramebuffer(testWidth, testHeight)
	rA := New()
	rA.Rasterize(fbA, farMesh, proj, nil, ModeColor)
	rA.Rasterize(fbA, nearMesh, proj, nil, ModeColor)

	fbB := NewFramebuffer(testWidth, testHeight)
	rB := New()
	rB.Rasterize(fbB, nearMesh, proj, nil, ModeColor)
	rB.Rasterize(fbB, farMesh, proj, nil, ModeColor)

	require.Equal(t, fbA.Pixels, fbB.Pixels)
	require.Equal(t, fbA.Depth, fbB.Depth)
}

// TestPerspectiveCorrectUVDiffersFromAffine drives a heavily foreshortened
// triangle through ModeTextured with a horizontal gradient texture, then
// recomputes both the perspective-correct and the naive screen-space-affine
// UV at an interior pixel. The written pixel must match the former and
// measurably differ from the latter.
func TestPerspectiveCorrectUVDiffersFromAffine(t *testing.T) {
	positions := []math3d.Vec3{
		math3d.V3(-1, -1, -1),
		math3d.V3(-1, 1, -8),
		math3d.V3(1, -1, -1),
	}
	uvs := []math3d.Vec2{
		math3d.V2(0, 0),
		math3d.V2(1, 0),
		math3d.V2(0, 1),
	}
	m, err := mesh.New(mesh.CW, positions, nil, []int{0, 1, 2}, uvs, []int{0, 1, 2}, nil, nil)
	require.NoError(t, err)

	tex := texture.NewGradient(256, 1, texture.Pack(0, 0, 0, 255), texture.Pack(255, 255, 255, 255))

	fb := NewFramebuffer(testWidth, testHeight)
	r := New()
	proj := testProjection()
	r.Rasterize(fb, m, proj, tex, ModeTextured)

	// Mirror the transform pipeline for the three vertices.
	ws := [3]float64{1, 8, 1}
	var screen [3]math3d.Vec2
	for i, p := range positions {
		c := proj.MulVec4(math3d.V4FromV3(p, 1))
		screen[i] = math3d.V2((c.X/c.W+1)*testWidth/2, (c.Y/c.W+1)*testHeight/2)
	}
	area2 := edge2D(screen[0], screen[1], screen[2])
	require.False(t, math3d.Equal(area2, 0))

	normal := positions[2].Sub(positions[0]).Cross(positions[1].Sub(positions[0])).Normalize()
	shade := -math3d.V3(0, -1, -1).Normalize().Dot(normal)

	// Find a pixel comfortably inside the triangle.
	checked := 0
	for y := 0; y < testHeight; y++ {
		for x := 0; x < testWidth; x++ {
			px := math3d.V2(float64(x)+0.5, float64(y)+0.5)
			t0 := edge2D(screen[1], screen[2], px) / area2
			t1 := edge2D(screen[2], screen[0], px) / area2
			t2 := edge2D(screen[0], screen[1], px) / area2
			if t0 < 0.2 || t1 < 0.2 || t2 < 0.2 {
				continue
			}

			oow := t0/ws[0] + t1/ws[1] + t2/ws[2]
			correctU := (t0*uvs[0].X/ws[0] + t1*uvs[1].X/ws[1] + t2*uvs[2].X/ws[2]) / oow
			affineU := t0*uvs[0].X + t1*uvs[1].X + t2*uvs[2].X

			red, _, _, _ := texture.Unpack(fb.GetPixel(x, y))
			require.InDelta(t, correctU*255*shade, float64(red), 14,
				"pixel (%d,%d) should carry the perspective-correct UV", x, y)
			if math.Abs(correctU-affineU)*255*shade > 40 {
				require.Greater(t, math.Abs(affineU*255*shade-float64(red)), 20.0,
					"pixel (%d,%d) must not match the affine interpolation", x, y)
				checked++
			}
		}
	}
	require.Greater(t, checked, 0, "at least one interior pixel must separate the two interpolations")
}

func TestGammaLUTMatchesReferenceBytes(t *testing.T) {
	require.Equal(t, byte(0), gammaLUT[0])
	require.Equal(t, byte(255), gammaLUT[255])

	// Spot-check against the defining formula round(((x/255)^2.2)*255).
	for _, x := range []int{16, 64, 128, 192} {
		want := byte(math.Floor(math.Pow(float64(x)/255, 2.2)*255 + 0.5))
		require.Equal(t, want, gammaLUT[x], "entry %d", x)
	}
}

func TestTopLeftRuleAgreesWithReferenceEdgeCases(t *testing.T) {
	// A horizontal top edge pointing right: edgeVec.Y == 0 && edgeVec.X > 0.
	require.True(t, topLeftCovered(0, math3d.V2(1, 0)))
	// A horizontal bottom edge pointing left must not own its boundary.
	require.False(t, topLeftCovered(0, math3d.V2(-1, 0)))
	// A left edge, pointing up in y-up raster space (Y > 0), owns its boundary.
	require.True(t, topLeftCovered(0, math3d.V2(0, 1)))
	// A right edge, pointing down (Y < 0), does not.
	require.False(t, topLeftCovered(0, math3d.V2(0, -1)))
	// Strictly positive coverage always wins regardless of edge direction.
	require.True(t, topLeftCovered(0.001, math3d.V2(0, -1)))
	require.False(t, topLeftCovered(-0.001, math3d.V2(0, 1)))
}
