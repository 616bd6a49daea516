// Package clip implements the single-plane Sutherland-Hodgman triangle
// clipper the rasterizer drives against the canonical clip-space view
// volume's bounding half-spaces.
package clip

import "github.com/taigrr/raster/pkg/math3d"

// Vertex is one corner of a transient clip-space triangle, carrying every
// attribute the rasterizer needs to interpolate across a clipped edge.
type Vertex struct {
	Pos   math3d.Vec3
	UV    math3d.Vec2
	Color math3d.Vec3
	W     float64
}

// lerpVertex linearly interpolates every attribute of a and b by t,
// matching the intersection formula X0 + t*(X1-X0) for each attribute.
func lerpVertex(a, b Vertex, t float64) Vertex {
	return Vertex{
		Pos:   a.Pos.Lerp(b.Pos, t),
		UV:    a.UV.Lerp(b.UV, t),
		Color: a.Color.Lerp(b.Color, t),
		W:     a.W + (b.W-a.W)*t,
	}
}

// Triangle is a transient, three-corner primitive flowing through the
// clipper and the rasterizer's scanline stage.
type Triangle struct {
	V [3]Vertex
}

// Plane is a half-space; the inside half-space satisfies
// dot(Normal, x) >= dot(Normal, Point).
type Plane struct {
	Normal math3d.Vec3
	Point  math3d.Vec3
}

// StandardPlanes is the canonical clip-space view volume's five bounding
// half-spaces, applied in this order: near, top, right, bottom, left.
// The near plane uses the reverse-Z convention (w >= 0.5); the four side
// planes pass through the origin and scale with w, matching a canonical
// clip cube of x,y in [-1,1].
func StandardPlanes() [5]Plane {
	return [5]Plane{
		{Normal: math3d.V3(0, 0, 1), Point: math3d.V3(0, 0, 0.5)},
		{Normal: math3d.V3(0, -1, 1), Point: math3d.Zero3()},
		{Normal: math3d.V3(-1, 0, 1), Point: math3d.Zero3()},
		{Normal: math3d.V3(0, 1, 1), Point: math3d.Zero3()},
		{Normal: math3d.V3(1, 0, 1), Point: math3d.Zero3()},
	}
}

// QueueCapacity bounds the number of intermediate triangles the clipper
// ever holds for one input triangle: five planes, at most doubling per
// plane, gives 2^5 = 32.
const QueueCapacity = 32

// Queue is a fixed-capacity, heap-free container for the triangles in
// flight while clipping a single input triangle against every plane. It is
// local to one input triangle and discarded when that triangle finishes.
type Queue struct {
	items [QueueCapacity]Triangle
	n     int
}

// Len returns the number of triangles currently queued.
func (q *Queue) Len() int { return q.n }

// At returns the i'th queued triangle.
func (q *Queue) At(i int) Triangle { return q.items[i] }

// push appends a triangle to the queue. Per the allocation policy this
// never exceeds QueueCapacity for a correctly bounded clip; callers that
// receive more than 32 triangles in flight have a spec violation upstream.
func (q *Queue) push(t Triangle) {
	q.items[q.n] = t
	q.n++
}

// ClipAgainstPlanes drains tri through every plane in order, returning the
// surviving triangles. The clipper is iterative: for each plane it drains
// the current queue, emits results into a fresh queue, then advances.
func ClipAgainstPlanes(tri Triangle, planes []Plane) Queue {
	var cur Queue
	cur.push(tri)

	for _, p := range planes {
		var next Queue
		for i := 0; i < cur.Len(); i++ {
			out := Against(cur.At(i), p)
			for j := 0; j < out.Len(); j++ {
				next.push(out.At(j))
			}
		}
		cur = next
		if cur.Len() == 0 {
			break
		}
	}
	return cur
}

// Against clips a single triangle against a single half-space, emitting 0,
// 1, or 2 triangles per the spec's inside/outside partition cases.
func Against(tri Triangle, plane Plane) Queue {
	normal := plane.Normal.Normalize()
	planeD := normal.Dot(plane.Point)

	var dist [3]float64
	var insideIdx, outsideIdx [3]int
	var insideN, outsideN int

	for i := 0; i < 3; i++ {
		dist[i] = normal.Dot(tri.V[i].Pos)
		if dist[i] >= planeD {
			insideIdx[insideN] = i
			insideN++
		} else {
			outsideIdx[outsideN] = i
			outsideN++
		}
	}

	var result Queue

	switch insideN {
	case 0:
		// Entirely outside: emit nothing.
	case 3:
		result.push(tri)
	case 1:
		inside := tri.V[insideIdx[0]]
		o0 := tri.V[outsideIdx[0]]
		o1 := tri.V[outsideIdx[1]]

		a := intersect(o0, inside, normal, planeD)
		b := intersect(o1, inside, normal, planeD)

		if b.Pos.Sub(inside.Pos).Cross(a.Pos.Sub(inside.Pos)).Dot(inside.Pos) > 0 {
			a, b = b, a
		}
		result.push(Triangle{V: [3]Vertex{inside, b, a}})
	case 2:
		in0 := tri.V[insideIdx[0]]
		in1 := tri.V[insideIdx[1]]
		out0 := tri.V[outsideIdx[0]]

		a := intersect(out0, in0, normal, planeD)
		b := intersect(out0, in1, normal, planeD)

		first := Triangle{V: [3]Vertex{in0, in1, a}}
		second := Triangle{V: [3]Vertex{in1, b, a}}
		if triangleIsBackwards(first) {
			first = Triangle{V: [3]Vertex{in1, in0, a}}
			second = Triangle{V: [3]Vertex{b, in1, a}}
		}
		result.push(first)
		result.push(second)
	}

	return result
}

// intersect computes the point where the edge from p0 (outside) to p1
// (inside) crosses the plane, interpolating every attribute at the same
// parameter t.
func intersect(p0, p1 Vertex, normal math3d.Vec3, planeD float64) Vertex {
	denom := p1.Pos.Sub(p0.Pos).Dot(normal)
	t := (planeD - p0.Pos.Dot(normal)) / denom
	return lerpVertex(p0, p1, t)
}

// triangleIsBackwards reports whether a quad-split triangle's winding
// flipped relative to its source, using the same cross-product z-facing
// test the single-inside-vertex case uses to restore CW order.
func triangleIsBackwards(t Triangle) bool {
	e1 := t.V[1].Pos.Sub(t.V[0].Pos)
	e2 := t.V[2].Pos.Sub(t.V[0].Pos)
	return e1.Cross(e2).Dot(t.V[0].Pos) > 0
}
