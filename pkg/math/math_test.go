package math

import (
	"math"
	"testing"
)

func near(a, b Vec3) bool {
	const eps = 1e-4
	d := a.Sub(b)
	return abs(d.X) < eps && abs(d.Y) < eps && abs(d.Z) < eps
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func TestVec3(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}

	if got := x.Cross(y); got != (Vec3{0, 0, 1}) {
		t.Errorf("Cross = %v, want (0, 0, 1)", got)
	}
	if got := (Vec3{2, 0, 1}).Sub(x); got != (Vec3{1, 0, 1}) {
		t.Errorf("Sub = %v, want (1, 0, 1)", got)
	}
	if got := x.Add(y); got != (Vec3{1, 1, 0}) {
		t.Errorf("Add = %v, want (1, 1, 0)", got)
	}
	if l := (Vec3{3, 0, 4}).Normalize().Length(); abs(l-1) > 1e-3 {
		t.Errorf("Normalize().Length() = %v, want 1", l)
	}
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("zero Normalize() = %v, want zero", got)
	}

	v := Vec3{1, 2, 3}
	for i, want := range []float32{1, 2, 3} {
		if got := v.Axis(i); got != want {
			t.Errorf("Axis(%d) = %v, want %v", i, got, want)
		}
	}
	if Vec3FromArray(v.Array()) != v {
		t.Errorf("Array round trip changed %v", v)
	}
}

func TestLerp3(t *testing.T) {
	got := Lerp3([3]float32{0, 0, 0}, [3]float32{10, 20, 30}, 0.5)
	if got != [3]float32{5, 10, 15} {
		t.Errorf("Lerp3 = %v, want [5 10 15]", got)
	}
}

func TestMat4Apply(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		p    [3]float32
		want Vec3
	}{
		{"identity", Identity(), [3]float32{1, 2, 3}, Vec3{1, 2, 3}},
		{"translate", Translate([3]float32{10, 20, 30}), [3]float32{1, 2, 3}, Vec3{11, 22, 33}},
		{"scale", Scale([3]float32{2, 3, 4}), [3]float32{1, 1, 1}, Vec3{2, 3, 4}},
		{"rotate Y 90", RotateAxis([3]float32{0, 1, 0}, math.Pi/2), [3]float32{1, 0, 0}, Vec3{0, 0, -1}},
		{"unnormalized axis", RotateAxis([3]float32{0, 5, 0}, math.Pi/2), [3]float32{1, 0, 0}, Vec3{0, 0, -1}},
		{"zero axis", RotateAxis([3]float32{}, 1), [3]float32{1, 2, 3}, Vec3{1, 2, 3}},
		{"translate after scale", Translate([3]float32{1, 0, 0}).Mul(Scale([3]float32{2, 2, 2})), [3]float32{1, 1, 1}, Vec3{3, 2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Apply(tt.p); !near(got, tt.want) {
				t.Errorf("Apply(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestMat4MulIdentity(t *testing.T) {
	m := Translate([3]float32{1, 2, 3}).Mul(RotateAxis([3]float32{1, 1, 0}, 0.3))
	if got := m.Mul(Identity()); got != m {
		t.Errorf("M * I = %v, want %v", got, m)
	}
	if got := Identity().Mul(m); got != m {
		t.Errorf("I * M = %v, want %v", got, m)
	}
}

func TestFromMat3x3(t *testing.T) {
	m := FromMat3x3([9]float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	if m[0] != 1 || m[1] != 2 || m[2] != 3 || m[4] != 4 || m[10] != 9 || m[15] != 1 {
		t.Errorf("FromMat3x3 = %v, want columns (1 2 3) (4 5 6) (7 8 9)", m)
	}
	if m[12] != 0 || m[13] != 0 || m[14] != 0 {
		t.Errorf("FromMat3x3 translation = %v, want zero", m[12:15])
	}
}

func TestQuatSlerp(t *testing.T) {
	s := float32(math.Sqrt2 / 2)
	quarterY := Quat{0, s, 0, s}

	tests := []struct {
		name  string
		to    Quat
		t     float32
		wantW float32
	}{
		{"start", quarterY, 0, 1},
		{"end", quarterY, 1, s},
		{"halfway", quarterY, 0.5, float32(math.Cos(math.Pi / 8))},
		{"shorter arc", Quat{0, -s, 0, -s}, 0.5, float32(math.Cos(math.Pi / 8))},
		{"nearly equal", Quat{0, 0.001, 0, 1}, 0.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuatIdentity.Slerp(tt.to, tt.t)
			if abs(q[3]-tt.wantW) > 1e-3 {
				t.Errorf("W = %v, want %v", q[3], tt.wantW)
			}
			if l := float32(math.Sqrt(float64(q.dot(q)))); abs(l-1) > 1e-4 {
				t.Errorf("length = %v, want 1", l)
			}
		})
	}
}

func TestQuatNormalize(t *testing.T) {
	if got := (Quat{}).Normalize(); got != QuatIdentity {
		t.Errorf("zero Normalize() = %v, want identity", got)
	}
	q := Quat{1, 2, 3, 4}.Normalize()
	if l := float32(math.Sqrt(float64(q.dot(q)))); abs(l-1) > 1e-4 {
		t.Errorf("Normalize length = %v, want 1", l)
	}
}

func TestQuatMat4(t *testing.T) {
	if got := QuatIdentity.Mat4(); got != Identity() {
		t.Errorf("identity quat Mat4 = %v, want identity", got)
	}

	s := float32(math.Sqrt2 / 2)
	m := Quat{0, s, 0, s}.Mat4()
	if got := m.Apply([3]float32{1, 0, 0}); !near(got, Vec3{0, 0, -1}) {
		t.Errorf("quarter turn around Y maps +X to %v, want (0, 0, -1)", got)
	}
}
