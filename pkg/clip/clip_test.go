package clip

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taigrr/raster/pkg/math3d"
)

func vtx(x, y, z float64) Vertex {
	return Vertex{Pos: math3d.V3(x, y, z), UV: math3d.Zero2(), Color: math3d.Zero3(), W: 1}
}

func TestAgainstAllInsideIsUnchanged(t *testing.T) {
	tri := Triangle{V: [3]Vertex{vtx(0, 0, 1), vtx(1, 0, 1), vtx(0, 1, 1)}}
	plane := Plane{Normal: math3d.V3(0, 0, 1), Point: math3d.V3(0, 0, 0.5)}

	out := Against(tri, plane)
	require.Equal(t, 1, out.Len())
	require.Equal(t, tri, out.At(0))
}

func TestAgainstAllOutsideEmitsNothing(t *testing.T) {
	tri := Triangle{V: [3]Vertex{vtx(0, 0, 0), vtx(1, 0, 0), vtx(0, 1, 0)}}
	plane := Plane{Normal: math3d.V3(0, 0, 1), Point: math3d.V3(0, 0, 0.5)}

	out := Against(tri, plane)
	require.Equal(t, 0, out.Len())
}

func TestAgainstOneInsideEmitsOneTriangleWithInterpolatedUV(t *testing.T) {
	// One vertex at z=1 (inside, dist>=0.5), two at z=0 (outside).
	inside := Vertex{Pos: math3d.V3(0, 0, 1), UV: math3d.V2(1, 1), Color: math3d.Zero3(), W: 1}
	out0 := Vertex{Pos: math3d.V3(-1, 0, 0), UV: math3d.V2(0, 0), Color: math3d.Zero3(), W: 1}
	out1 := Vertex{Pos: math3d.V3(1, 0, 0), UV: math3d.V2(2, 0), Color: math3d.Zero3(), W: 1}
	tri := Triangle{V: [3]Vertex{out0, inside, out1}}
	plane := Plane{Normal: math3d.V3(0, 0, 1), Point: math3d.V3(0, 0, 0.5)}

	result := Against(tri, plane)
	require.Equal(t, 1, result.Len())

	got := result.At(0)
	for _, v := range got.V {
		require.GreaterOrEqual(t, v.Pos.Z, 0.5-1e-9)
	}

	// Both new corners lie halfway along their edges (t = 0.5), so their
	// UVs are the edge midpoints; the output is {inside, b, a}.
	require.True(t, got.V[0].UV.Equal(math3d.V2(1, 1)))
	require.True(t, got.V[1].UV.Equal(math3d.V2(1.5, 0.5)))
	require.True(t, got.V[2].UV.Equal(math3d.V2(0.5, 0.5)))
}

func TestAgainstTwoInsideEmitsTwoTriangles(t *testing.T) {
	in0 := vtx(-1, -1, 1)
	in1 := vtx(1, -1, 1)
	out0 := vtx(0, 1, 0)
	tri := Triangle{V: [3]Vertex{in0, in1, out0}}
	plane := Plane{Normal: math3d.V3(0, 0, 1), Point: math3d.V3(0, 0, 0.5)}

	result := Against(tri, plane)
	require.Equal(t, 2, result.Len())
}

func TestClipAgainstPlanesNearPlaneQuad(t *testing.T) {
	// Scenario 4: one vertex behind the camera (z=+1, w negative-ish in
	// clip space), two in front. After clipping against the near plane,
	// a quad (2 triangles) should survive.
	behind := Vertex{Pos: math3d.V3(0, 0, -1), UV: math3d.V2(0.5, 1), W: -1}
	front0 := Vertex{Pos: math3d.V3(-1, -1, 2), UV: math3d.V2(0, 0), W: 2}
	front1 := Vertex{Pos: math3d.V3(1, -1, 2), UV: math3d.V2(1, 0), W: 2}

	tri := Triangle{V: [3]Vertex{behind, front0, front1}}
	planes := StandardPlanes()
	out := ClipAgainstPlanes(tri, planes[:1])
	require.Equal(t, 2, out.Len())

	for i := 0; i < out.Len(); i++ {
		for _, v := range out.At(i).V {
			require.GreaterOrEqual(t, v.Pos.Z, 0.5-1e-9)
		}
	}
}

func TestQueueCapacityMatchesFivePlaneBound(t *testing.T) {
	require.Equal(t, 32, QueueCapacity)
}
