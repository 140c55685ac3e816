package math

import "math"

// Mat4 is a 4x4 affine transform in column-major order: element (row, col)
// is m[col*4+row] and the translation sits in m[12], m[13], m[14].
type Mat4 [16]float32

// Identity returns the identity transform.
func Identity() Mat4 {
	return Mat4{0: 1, 5: 1, 10: 1, 15: 1}
}

// Translate returns a translation by t.
func Translate(t [3]float32) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = t[0], t[1], t[2]
	return m
}

// Scale returns a per-axis scale by s.
func Scale(s [3]float32) Mat4 {
	return Mat4{0: s[0], 5: s[1], 10: s[2], 15: 1}
}

// RotateAxis returns a rotation of angle radians around axis. The axis need
// not be normalized; a zero-length axis yields the identity.
func RotateAxis(axis [3]float32, angle float32) Mat4 {
	n := Vec3FromArray(axis)
	if n.Length() <= 1e-6 {
		return Identity()
	}
	n = n.Normalize()

	c := float32(math.Cos(float64(angle)))
	s := float32(math.Sin(float64(angle)))
	t := 1 - c
	x, y, z := n.X, n.Y, n.Z

	return Mat4{
		t*x*x + c, t*x*y + s*z, t*x*z - s*y, 0,
		t*x*y - s*z, t*y*y + c, t*y*z + s*x, 0,
		t*x*z + s*y, t*y*z - s*x, t*z*z + c, 0,
		0, 0, 0, 1,
	}
}

// FromMat3x3 embeds a 3x3 matrix stored column by column, as RSM nodes
// store their Mat3.
func FromMat3x3(m3 [9]float32) Mat4 {
	return Mat4{
		m3[0], m3[1], m3[2], 0,
		m3[3], m3[4], m3[5], 0,
		m3[6], m3[7], m3[8], 0,
		0, 0, 0, 1,
	}
}

// Mul returns m * o, so o is applied first.
func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * o[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Apply transforms point p, treating m as affine.
func (m Mat4) Apply(p [3]float32) Vec3 {
	return Vec3{
		m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12],
		m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13],
		m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14],
	}
}
