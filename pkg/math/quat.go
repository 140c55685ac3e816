package math

import "math"

// Quat is a rotation quaternion in the X, Y, Z, W order RSM keyframes use.
type Quat [4]float32

// QuatIdentity is the rotation that leaves vectors unchanged.
var QuatIdentity = Quat{0, 0, 0, 1}

func (q Quat) dot(o Quat) float32 {
	return q[0]*o[0] + q[1]*o[1] + q[2]*o[2] + q[3]*o[3]
}

// Normalize scales q to unit length. Near-zero quaternions become identity.
func (q Quat) Normalize() Quat {
	l := float32(math.Sqrt(float64(q.dot(q))))
	if l < 1e-4 {
		return QuatIdentity
	}
	return Quat{q[0] / l, q[1] / l, q[2] / l, q[3] / l}
}

// Slerp interpolates along the shorter arc from q to o.
func (q Quat) Slerp(o Quat, t float32) Quat {
	cos := q.dot(o)
	if cos < 0 {
		o = Quat{-o[0], -o[1], -o[2], -o[3]}
		cos = -cos
	}

	// Nearly parallel: sin(theta) is too small to divide by.
	a, b := 1-t, t
	if cos <= 0.9995 {
		theta := math.Acos(float64(cos))
		sin := math.Sin(theta)
		a = float32(math.Sin((1-float64(t))*theta) / sin)
		b = float32(math.Sin(float64(t)*theta) / sin)
	}

	var out Quat
	for i := range out {
		out[i] = a*q[i] + b*o[i]
	}
	return out.Normalize()
}

// Mat4 returns the rotation matrix of q.
func (q Quat) Mat4() Mat4 {
	q = q.Normalize()
	x, y, z, w := q[0], q[1], q[2], q[3]

	return Mat4{
		1 - 2*(y*y+z*z), 2 * (x*y + z*w), 2 * (x*z - y*w), 0,
		2 * (x*y - z*w), 1 - 2*(x*x+z*z), 2 * (y*z + x*w), 0,
		2 * (x*z + y*w), 2 * (y*z - x*w), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	}
}
