package mesh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"

	"github.com/taigrr/raster/pkg/math3d"
)

// LoadGLB loads a binary GLTF (.glb) file and returns a Mesh. GLTF is
// natively CCW; the winding is normalized to this module's CW convention
// by New itself, not by this loader.
func LoadGLB(path string) (*Mesh, error) {
	return LoadGLTF(path)
}

// LoadGLTF loads a .gltf or .glb file and returns a Mesh, combining every
// triangle primitive in the document into a single mesh.
func LoadGLTF(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf %q: %w", path, err)
	}

	var positions []math3d.Vec3
	var uvs []math3d.Vec2
	var normals []math3d.Vec3
	var vertIndices []int
	var uvIndices []int
	var normalIndices []int
	haveNormals := false
	haveUVs := false

	for _, m := range doc.Meshes {
		for _, prim := range m.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
				continue
			}

			posIdx, ok := prim.Attributes[gltf.POSITION]
			if !ok {
				continue
			}
			primPositions, err := readVec3Accessor(doc, posIdx)
			if err != nil {
				return nil, fmt.Errorf("read positions: %w", err)
			}
			base := len(positions)
			uvBase := len(uvs)
			normalBase := len(normals)
			positions = append(positions, primPositions...)

			var primNormals []math3d.Vec3
			if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
				primNormals, err = readVec3Accessor(doc, normIdx)
				if err != nil {
					return nil, fmt.Errorf("read normals: %w", err)
				}
				haveNormals = true
			}
			normals = append(normals, primNormals...)

			var primUVs []math3d.Vec2
			if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
				primUVs, err = readVec2Accessor(doc, uvIdx)
				if err != nil {
					return nil, fmt.Errorf("read uvs: %w", err)
				}
				haveUVs = true
			}
			// GLTF origin is top-left (V=0 at top); flip for bottom-left.
			for i := range primUVs {
				primUVs[i] = math3d.V2(primUVs[i].X, 1.0-primUVs[i].Y)
			}
			uvs = append(uvs, primUVs...)

			var indices []int
			if prim.Indices != nil {
				indices, err = readIndices(doc, *prim.Indices)
				if err != nil {
					return nil, fmt.Errorf("read indices: %w", err)
				}
			} else {
				indices = make([]int, len(primPositions))
				for i := range indices {
					indices[i] = i
				}
			}
			for _, idx := range indices {
				vertIndices = append(vertIndices, base+idx)
				if len(primUVs) > 0 {
					uvIndices = append(uvIndices, uvBase+idx)
				}
				if len(primNormals) > 0 {
					normalIndices = append(normalIndices, normalBase+idx)
				}
			}
		}
	}

	// Attributes present on only some primitives can't form a full index
	// stream; drop them rather than hand New a mismatched length.
	if !haveUVs || len(uvIndices) != len(vertIndices) {
		uvIndices = nil
		uvs = nil
	}
	if !haveNormals || len(normalIndices) != len(vertIndices) {
		normalIndices = nil
		normals = nil
	}

	return New(CCW, positions, nil, vertIndices, uvs, uvIndices, normals, normalIndices)
}

// LoadGLTFWithTexture loads a .gltf/.glb file and returns the mesh plus its
// first embedded texture image, if any. The texture's bytes are decoded as
// an external collaborator using the standard image package; the core
// never parses image formats itself.
func LoadGLTFWithTexture(path string) (*Mesh, image.Image, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open gltf %q: %w", path, err)
	}

	m, err := LoadGLTF(path)
	if err != nil {
		return nil, nil, err
	}

	for _, img := range doc.Images {
		data, err := embeddedImageData(doc, img, path)
		if err != nil || len(data) == 0 {
			continue
		}
		decoded, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			continue
		}
		return m, decoded, nil
	}

	return m, nil, nil
}

func embeddedImageData(doc *gltf.Document, img *gltf.Image, srcPath string) ([]byte, error) {
	if img.BufferView != nil {
		bv := doc.BufferViews[*img.BufferView]
		buf := doc.Buffers[bv.Buffer]
		if buf.Data == nil {
			return nil, fmt.Errorf("image buffer has no data")
		}
		start := bv.ByteOffset
		end := start + bv.ByteLength
		return buf.Data[start:end], nil
	}
	if img.URI != "" {
		texPath := filepath.Join(filepath.Dir(srcPath), img.URI)
		return os.ReadFile(texPath)
	}
	return nil, fmt.Errorf("image has neither buffer view nor uri")
}

func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}
	floats, err := readFloatAccessor(doc, accessor, 3)
	if err != nil {
		return nil, err
	}
	result := make([]math3d.Vec3, len(floats))
	for i, f := range floats {
		result[i] = math3d.V3(float64(f[0]), float64(f[1]), float64(f[2]))
	}
	return result, nil
}

func readVec2Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec2, error) {
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec2 {
		return nil, fmt.Errorf("expected VEC2, got %v", accessor.Type)
	}
	floats, err := readFloatAccessor(doc, accessor, 2)
	if err != nil {
		return nil, err
	}
	result := make([]math3d.Vec2, len(floats))
	for i, f := range floats {
		result[i] = math3d.V2(float64(f[0]), float64(f[1]))
	}
	return result, nil
}

// readFloatAccessor reads comps-wide float32 tuples from an accessor's
// backing buffer view, honoring any explicit byte stride.
func readFloatAccessor(doc *gltf.Document, accessor *gltf.Accessor, comps int) ([][]float32, error) {
	data, stride, err := accessorBytes(doc, accessor)
	if err != nil {
		return nil, err
	}
	if stride == 0 {
		stride = comps * 4
	}
	result := make([][]float32, accessor.Count)
	for i := range int(accessor.Count) {
		offset := int(accessor.ByteOffset) + i*stride
		tuple := make([]float32, comps)
		for j := range comps {
			bits := binary.LittleEndian.Uint32(data[offset+j*4:])
			tuple[j] = math.Float32frombits(bits)
		}
		result[i] = tuple
	}
	return result, nil
}

func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	accessor := doc.Accessors[accessorIdx]
	data, stride, err := accessorBytes(doc, accessor)
	if err != nil {
		return nil, err
	}

	result := make([]int, accessor.Count)
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		if stride == 0 {
			stride = 1
		}
		for i := range result {
			result[i] = int(data[int(accessor.ByteOffset)+i*stride])
		}
	case gltf.ComponentUshort:
		if stride == 0 {
			stride = 2
		}
		for i := range result {
			off := int(accessor.ByteOffset) + i*stride
			result[i] = int(binary.LittleEndian.Uint16(data[off:]))
		}
	case gltf.ComponentUint:
		if stride == 0 {
			stride = 4
		}
		for i := range result {
			off := int(accessor.ByteOffset) + i*stride
			result[i] = int(binary.LittleEndian.Uint32(data[off:]))
		}
	default:
		return nil, fmt.Errorf("unsupported index component type: %v", accessor.ComponentType)
	}
	return result, nil
}

// accessorBytes returns the raw bytes backing an accessor's buffer view
// (starting at the view's byte offset) plus the view's stride, 0 meaning
// tightly packed.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor) ([]byte, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, fmt.Errorf("accessor has no buffer view")
	}
	bv := doc.BufferViews[*accessor.BufferView]
	buf := doc.Buffers[bv.Buffer]
	if buf.Data == nil {
		return nil, 0, fmt.Errorf("buffer has no data (external buffers not supported)")
	}
	start := bv.ByteOffset
	return buf.Data[start:], bv.ByteStride, nil
}
