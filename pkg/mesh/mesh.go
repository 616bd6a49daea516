// Package mesh provides the indexed triangle-soup model the rasterizer
// consumes: positions, optional per-face colors, optional UVs, optional
// normals, each with its own index stream, normalized to clockwise winding
// at construction time.
package mesh

import (
	"errors"
	"fmt"

	"github.com/taigrr/raster/internal/rlog"
	"github.com/taigrr/raster/pkg/math3d"
)

// Winding declares the winding order of the triangles passed to New.
type Winding int

const (
	// CW indicates the input is already clockwise; indices are stored as
	// given.
	CW Winding = iota
	// CCW indicates the input is counter-clockwise; New reverses the
	// winding of every triangle across all index streams uniformly.
	CCW
)

// ErrInvalidMesh is the sentinel wrapped by every construction-time
// validation failure.
var ErrInvalidMesh = errors.New("mesh: invalid mesh")

// Mesh is an immutable indexed triangle soup. Once constructed it is
// read-only from the rasterizer's perspective; a caller that needs to
// transform vertex positions builds a new Mesh rather than mutating one in
// place.
type Mesh struct {
	Positions []math3d.Vec3
	// Colors holds one entry per face-vertex (3 per triangle, addressed
	// positionally as Colors[t*3+k]), or is empty. Unlike the other
	// attributes it has no index stream.
	Colors  []math3d.Vec3
	UVs     []math3d.Vec2
	Normals []math3d.Vec3

	VertIndices   []int
	UVIndices     []int
	NormalIndices []int
}

// New validates the invariants described in the mesh's data model,
// normalizes winding to CW, and synthesizes per-face normals when
// normalIndices is empty.
//
// colors, uvs, uvIndices, normals, and normalIndices may all be nil.
func New(
	winding Winding,
	positions []math3d.Vec3,
	colors []math3d.Vec3,
	vertIndices []int,
	uvs []math3d.Vec2,
	uvIndices []int,
	normals []math3d.Vec3,
	normalIndices []int,
) (*Mesh, error) {
	if len(vertIndices)%3 != 0 {
		err := fmt.Errorf("%w: vert_indices length %d not a multiple of 3", ErrInvalidMesh, len(vertIndices))
		rlog.Logger().Warn("mesh construction rejected", "error", err)
		return nil, err
	}
	for _, idx := range vertIndices {
		if idx < 0 || idx >= len(positions) {
			err := fmt.Errorf("%w: vert index %d out of range [0,%d)", ErrInvalidMesh, idx, len(positions))
			rlog.Logger().Warn("mesh construction rejected", "error", err)
			return nil, err
		}
	}
	if len(colors) > 0 && len(colors) != len(vertIndices) {
		err := fmt.Errorf("%w: colors length %d != 3*triangle_count %d", ErrInvalidMesh, len(colors), len(vertIndices))
		rlog.Logger().Warn("mesh construction rejected", "error", err)
		return nil, err
	}
	if len(uvIndices) > 0 {
		if len(uvIndices) != len(vertIndices) {
			err := fmt.Errorf("%w: uv_indices length %d != vert_indices length %d", ErrInvalidMesh, len(uvIndices), len(vertIndices))
			rlog.Logger().Warn("mesh construction rejected", "error", err)
			return nil, err
		}
		for _, idx := range uvIndices {
			if idx < 0 || idx >= len(uvs) {
				err := fmt.Errorf("%w: uv index %d out of range [0,%d)", ErrInvalidMesh, idx, len(uvs))
				rlog.Logger().Warn("mesh construction rejected", "error", err)
				return nil, err
			}
		}
	}
	if len(normalIndices) > 0 {
		if len(normalIndices) != len(vertIndices) {
			err := fmt.Errorf("%w: normal_indices length %d != vert_indices length %d", ErrInvalidMesh, len(normalIndices), len(vertIndices))
			rlog.Logger().Warn("mesh construction rejected", "error", err)
			return nil, err
		}
		for _, idx := range normalIndices {
			if idx < 0 || idx >= len(normals) {
				err := fmt.Errorf("%w: normal index %d out of range [0,%d)", ErrInvalidMesh, idx, len(normals))
				rlog.Logger().Warn("mesh construction rejected", "error", err)
				return nil, err
			}
		}
	}

	m := &Mesh{
		Positions:     append([]math3d.Vec3(nil), positions...),
		Colors:        append([]math3d.Vec3(nil), colors...),
		UVs:           append([]math3d.Vec2(nil), uvs...),
		Normals:       append([]math3d.Vec3(nil), normals...),
		VertIndices:   append([]int(nil), vertIndices...),
		UVIndices:     append([]int(nil), uvIndices...),
		NormalIndices: append([]int(nil), normalIndices...),
	}

	if winding == CCW {
		m.reverseWinding()
	}

	if len(m.NormalIndices) == 0 {
		m.synthesizeNormals()
	}

	return m, nil
}

// reverseWinding swaps indices[i+1] and indices[i+2] for every triangle,
// across all three index streams uniformly, converting CCW input to this
// module's native CW convention.
func (m *Mesh) reverseWinding() {
	swapTriple(m.VertIndices)
	swapTriple(m.UVIndices)
	swapTriple(m.NormalIndices)
}

func swapTriple(indices []int) {
	for i := 0; i+2 < len(indices); i += 3 {
		indices[i+1], indices[i+2] = indices[i+2], indices[i+1]
	}
}

// synthesizeNormals computes one un-normalized face normal per triangle
// and appends it to Normals, building a fresh NormalIndices stream that
// assigns each face its own normal (flat shading).
func (m *Mesh) synthesizeNormals() {
	triCount := len(m.VertIndices) / 3
	base := len(m.Normals)
	m.NormalIndices = make([]int, len(m.VertIndices))

	for t := 0; t < triCount; t++ {
		i0 := m.VertIndices[t*3+0]
		i1 := m.VertIndices[t*3+1]
		i2 := m.VertIndices[t*3+2]
		v0 := m.Positions[i0]
		v1 := m.Positions[i1]
		v2 := m.Positions[i2]

		normal := v2.Sub(v0).Cross(v1.Sub(v0))
		m.Normals = append(m.Normals, normal)
		m.NormalIndices[t*3+0] = base + t
		m.NormalIndices[t*3+1] = base + t
		m.NormalIndices[t*3+2] = base + t
	}
}

// TriangleCount returns the number of triangles in the mesh.
func (m *Mesh) TriangleCount() int {
	return len(m.VertIndices) / 3
}

// HasUVs reports whether the mesh carries texture coordinates.
func (m *Mesh) HasUVs() bool {
	return len(m.UVs) > 0
}

// HasColors reports whether the mesh carries per-face-vertex colors.
func (m *Mesh) HasColors() bool {
	return len(m.Colors) > 0
}

// Bounds returns the axis-aligned bounding box of the mesh's positions.
// Returns the zero box if the mesh has no vertices.
func (m *Mesh) Bounds() (min, max math3d.Vec3) {
	if len(m.Positions) == 0 {
		return math3d.Zero3(), math3d.Zero3()
	}
	min, max = m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		min = min.Min(p)
		max = max.Max(p)
	}
	return min, max
}

// Transform returns a new Mesh with every position and normal transformed
// by mat (normals transformed as directions, then re-normalized); colors,
// UVs, and index streams are shared with the receiver.
func (m *Mesh) Transform(mat math3d.Mat4) *Mesh {
	positions := make([]math3d.Vec3, len(m.Positions))
	for i, p := range m.Positions {
		positions[i] = mat.MulVec3(p)
	}
	normals := make([]math3d.Vec3, len(m.Normals))
	for i, n := range m.Normals {
		normals[i] = mat.MulVec3Dir(n).Normalize()
	}
	return &Mesh{
		Positions:     positions,
		Colors:        m.Colors,
		UVs:           m.UVs,
		Normals:       normals,
		VertIndices:   m.VertIndices,
		UVIndices:     m.UVIndices,
		NormalIndices: m.NormalIndices,
	}
}
