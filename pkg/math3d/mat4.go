package math3d

import "math"

// Mat4 is a row-major 4x4 matrix. Element (row, col) lives at
// e[row*4+col]. The zero value is NOT the identity; use Identity4() or one
// of the builder functions.
//
// Convention: right-handed, vectors are row vectors post-multiplied by a
// matrix (v * M), so translation lives in row 3, not column 3.
type Mat4 [16]float64

// Identity4 returns the 4x4 identity matrix.
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Get returns the element at (row, col).
func (m Mat4) Get(row, col int) float64 {
	return m[row*4+col]
}

// Set assigns the element at (row, col).
func (m *Mat4) Set(row, col int, v float64) {
	m[row*4+col] = v
}

// Translate returns a translation matrix for v.
func Translate(v Vec3) Mat4 {
	m := Identity4()
	m.Set(3, 0, v.X)
	m.Set(3, 1, v.Y)
	m.Set(3, 2, v.Z)
	return m
}

// Scale returns a non-uniform scale matrix.
func Scale(v Vec3) Mat4 {
	m := Identity4()
	m.Set(0, 0, v.X)
	m.Set(1, 1, v.Y)
	m.Set(2, 2, v.Z)
	return m
}

// ScaleUniform returns a uniform scale matrix.
func ScaleUniform(s float64) Mat4 {
	return Scale(Vec3{s, s, s})
}

// RotateX returns a rotation matrix of angle radians about the X axis.
func RotateX(angle float64) Mat4 {
	m := Identity4()
	c, s := math.Cos(angle), math.Sin(angle)
	m.Set(1, 1, c)
	m.Set(2, 1, -s)
	m.Set(1, 2, s)
	m.Set(2, 2, c)
	return m
}

// RotateY returns a rotation matrix of angle radians about the Y axis.
func RotateY(angle float64) Mat4 {
	m := Identity4()
	c, s := math.Cos(angle), math.Sin(angle)
	m.Set(2, 2, c)
	m.Set(0, 2, -s)
	m.Set(2, 0, s)
	m.Set(0, 0, c)
	return m
}

// RotateZ returns a rotation matrix of angle radians about the Z axis.
func RotateZ(angle float64) Mat4 {
	m := Identity4()
	c, s := math.Cos(angle), math.Sin(angle)
	m.Set(0, 0, c)
	m.Set(1, 0, -s)
	m.Set(0, 1, s)
	m.Set(1, 1, c)
	return m
}

// InitRotation composes Rx(pitch) * Ry(yaw) * Rz(roll); angles in radians.
func InitRotation(roll, pitch, yaw float64) Mat4 {
	m := Identity4()
	if !Equal(pitch, 0) {
		m = m.Mul(RotateX(pitch))
	}
	if !Equal(yaw, 0) {
		m = m.Mul(RotateY(yaw))
	}
	if !Equal(roll, 0) {
		m = m.Mul(RotateZ(roll))
	}
	return m
}

// Mul returns the matrix product m * o (standard row-times-column).
func (m Mat4) Mul(o Mat4) Mat4 {
	var result Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m.Get(i, k) * o.Get(k, j)
			}
			result.Set(i, j, sum)
		}
	}
	return result
}

// Transpose returns the transpose of m.
func (m Mat4) Transpose() Mat4 {
	var result Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			result.Set(i, j, m.Get(j, i))
		}
	}
	return result
}

func swapRow4(m *Mat4, a, b int) {
	for j := 0; j < 4; j++ {
		tmp := m.Get(a, j)
		m.Set(a, j, m.Get(b, j))
		m.Set(b, j, tmp)
	}
}

// Inverse returns the inverse of m computed via Gauss-Jordan elimination
// with partial pivoting, reproducing the reference implementation's
// algorithm exactly. Returns the identity matrix if m is singular.
func (m Mat4) Inverse() Mat4 {
	const dim = 4
	dest := Identity4()
	src := m

	for p := 0; p < dim; p++ {
		pivotVal := math.Abs(src.Get(p, p))
		newPivot := p
		for k := p + 1; k < dim; k++ {
			tmp := math.Abs(src.Get(k, p))
			if tmp > pivotVal {
				pivotVal = tmp
				newPivot = k
			}
		}

		if Equal(pivotVal, 0) {
			return Identity4()
		}

		if p != newPivot {
			swapRowPair(&src, &dest, p, newPivot)
		}

		for k := p + 1; k < dim; k++ {
			f := src.Get(k, p) / src.Get(p, p)
			for j := 0; j < dim; j++ {
				src.Set(k, j, src.Get(k, j)-f*src.Get(p, j))
				dest.Set(k, j, dest.Get(k, j)-f*dest.Get(p, j))
			}
		}
	}

	for p := dim - 1; p >= 0; p-- {
		pivotVal := src.Get(p, p)
		if Equal(pivotVal, 0) {
			return Identity4()
		}
		for j := 0; j < dim; j++ {
			src.Set(p, j, src.Get(p, j)/pivotVal)
			dest.Set(p, j, dest.Get(p, j)/pivotVal)
		}
		for k := p - 1; k >= 0; k-- {
			f := src.Get(k, p)
			for j := 0; j < dim; j++ {
				src.Set(k, j, src.Get(k, j)-f*src.Get(p, j))
				dest.Set(k, j, dest.Get(k, j)-f*dest.Get(p, j))
			}
		}
	}

	return dest
}

// swapRowPair swaps row a and row b in both halves of the augmented
// [src|dest] matrix used by Inverse.
func swapRowPair(src, dest *Mat4, a, b int) {
	swapRow4(src, a, b)
	swapRow4(dest, a, b)
}

// MulVec4 returns the row-vector product v * m.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	src := [4]float64{v.X, v.Y, v.Z, v.W}
	var result [4]float64
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			result[j] += src[i] * m.Get(i, j)
		}
	}
	return Vec4{result[0], result[1], result[2], result[3]}
}

// MulVec3 treats v as the point (x,y,z,1), multiplies by m, and divides by
// the resulting homogeneous w (no-op if w is 0).
func (m Mat4) MulVec3(v Vec3) Vec3 {
	r := m.MulVec4(V4FromV3(v, 1))
	if r.W == 0 {
		return r.Vec3()
	}
	return r.PerspectiveDivide()
}

// MulVec3Dir treats v as the direction (x,y,z,0); translation has no
// effect and no homogeneous divide is performed.
func (m Mat4) MulVec3Dir(v Vec3) Vec3 {
	return m.MulVec4(V4FromV3(v, 0)).Vec3()
}

// Perspective builds a 4x4 that maps a view-space point, camera looking
// down -Z, to clip space with z in [0,1] (reverse of OpenGL's [-1,1]).
// fovY is in radians.
func Perspective(fovY, aspect, near, far float64) Mat4 {
	var m Mat4
	tanHalfFovY := math.Tan(fovY / 2)
	m.Set(0, 0, 1/(tanHalfFovY*aspect))
	m.Set(1, 1, 1/tanHalfFovY)
	m.Set(2, 2, -far/(far-near))
	m.Set(2, 3, -1)
	m.Set(3, 2, -far*near/(far-near))
	return m
}

// LookAt builds a view matrix placing the camera at eye, looking toward
// at, with the given up hint.
func LookAt(eye, at, up Vec3) Mat4 {
	forward := eye.Sub(at).Normalize()
	right := up.Cross(forward).Normalize()
	upPrime := forward.Cross(right)

	var m Mat4
	m.Set(0, 0, right.X)
	m.Set(0, 1, upPrime.X)
	m.Set(0, 2, forward.X)
	m.Set(1, 0, right.Y)
	m.Set(1, 1, upPrime.Y)
	m.Set(1, 2, forward.Y)
	m.Set(2, 0, right.Z)
	m.Set(2, 1, upPrime.Z)
	m.Set(2, 2, forward.Z)
	m.Set(3, 0, -right.Dot(eye))
	m.Set(3, 1, -upPrime.Dot(eye))
	m.Set(3, 2, -forward.Dot(eye))
	m.Set(3, 3, 1)
	return m
}

// Equal reports whether m and o are equal within the shared epsilon.
func (m Mat4) Equal(o Mat4) bool {
	for i := range m {
		if !Equal(m[i], o[i]) {
			return false
		}
	}
	return true
}
