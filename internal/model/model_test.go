package model

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/midgard-vat/pkg/formats"
	"github.com/Faultbox/midgard-vat/pkg/math"
)

const eps = 1e-4

func near(a, b math.Vec3) bool {
	return gomath.Abs(float64(a.X-b.X)) < eps &&
		gomath.Abs(float64(a.Y-b.Y)) < eps &&
		gomath.Abs(float64(a.Z-b.Z)) < eps
}

var identity3 = [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}

// spinningTriangle rotates 90 degrees around Y over one second.
func spinningTriangle() *formats.RSM {
	s := float32(gomath.Sqrt2 / 2)
	return &formats.RSM{
		AnimLength: 1000,
		RootNode:   "blade",
		Nodes: []formats.RSMNode{{
			Name:     "blade",
			Matrix:   identity3,
			Scale:    [3]float32{1, 1, 1},
			Vertices: [][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {5, 5, 5}},
			Faces: []formats.RSMFace{
				{VertexIDs: [3]uint16{0, 1, 2}},
				{VertexIDs: [3]uint16{0, 1, 9}}, // out of range, skipped
			},
			RotKeys: []formats.RSMRotKeyframe{
				{Frame: 0, Quaternion: [4]float32{0, 0, 0, 1}},
				{Frame: 1000, Quaternion: [4]float32{0, s, 0, s}},
			},
		}},
	}
}

func TestInterpolateRotKeys(t *testing.T) {
	keys := spinningTriangle().Nodes[0].RotKeys

	tests := []struct {
		name  string
		time  float32
		wantW float32
	}{
		{"before first key", -100, 1},
		{"first key", 0, 1},
		{"halfway", 500, float32(gomath.Cos(gomath.Pi / 8))},
		{"last key", 1000, float32(gomath.Sqrt2 / 2)},
		{"past last key", 5000, float32(gomath.Sqrt2 / 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := InterpolateRotKeys(keys, tt.time)
			if gomath.Abs(float64(q[3]-tt.wantW)) > 0.001 {
				t.Errorf("W = %v, want %v", q[3], tt.wantW)
			}
		})
	}

	if q := InterpolateRotKeys(nil, 10); q != math.QuatIdentity {
		t.Errorf("no keys should give identity, got %+v", q)
	}
}

func TestInterpolateScaleAndPosKeys(t *testing.T) {
	scaleKeys := []formats.RSMScaleKeyframe{
		{Frame: 0, Scale: [3]float32{1, 1, 1}},
		{Frame: 100, Scale: [3]float32{3, 1, 1}},
	}
	if got := InterpolateScaleKeys(scaleKeys, 50); got != [3]float32{2, 1, 1} {
		t.Errorf("InterpolateScaleKeys(50) = %v, want [2 1 1]", got)
	}
	if got := InterpolateScaleKeys(nil, 50); got != [3]float32{1, 1, 1} {
		t.Errorf("InterpolateScaleKeys(nil) = %v, want [1 1 1]", got)
	}

	posKeys := []formats.RSMPosKeyframe{
		{Frame: 0, Position: [3]float32{0, 0, 0}},
		{Frame: 200, Position: [3]float32{0, 10, 0}},
	}
	if got := InterpolatePosKeys(posKeys, 50); got != [3]float32{0, 2.5, 0} {
		t.Errorf("InterpolatePosKeys(50) = %v, want [0 2.5 0]", got)
	}
}

func TestHasAnimation(t *testing.T) {
	if !HasAnimation(spinningTriangle()) {
		t.Error("spinning triangle should be animated")
	}

	static := spinningTriangle()
	static.Nodes[0].RotKeys = static.Nodes[0].RotKeys[:1]
	if HasAnimation(static) {
		t.Error("a single keyframe is a static pose")
	}
}

func TestPoseNode_BindPose(t *testing.T) {
	rsm := spinningTriangle()
	rsm.Nodes[0].Position = [3]float32{0, 2, 0}

	pose, err := PoseNode(rsm, 0, PoseOptions{TimeMs: 1000, BindPose: true})
	if err != nil {
		t.Fatalf("PoseNode failed: %v", err)
	}

	// Keyframes ignored, translation applied, Y flipped.
	want := []math.Vec3{{X: 1, Y: -2, Z: 0}, {X: 0, Y: -3, Z: 0}, {X: 0, Y: -2, Z: 1}, {X: 5, Y: -7, Z: 5}}
	for i := range want {
		if !near(pose.Positions[i], want[i]) {
			t.Errorf("position %d = %v, want %v", i, pose.Positions[i], want[i])
		}
	}
}

func TestPoseNode_Animated(t *testing.T) {
	pose, err := PoseNode(spinningTriangle(), 0, PoseOptions{TimeMs: 1000})
	if err != nil {
		t.Fatalf("PoseNode failed: %v", err)
	}

	// 90 degrees around Y maps +X to -Z.
	if !near(pose.Positions[0], math.Vec3{X: 0, Y: 0, Z: -1}) {
		t.Errorf("position 0 = %v, want (0, 0, -1)", pose.Positions[0])
	}
}

func TestPoseNode_Normals(t *testing.T) {
	pose, err := PoseNode(spinningTriangle(), 0, PoseOptions{BindPose: true})
	if err != nil {
		t.Fatalf("PoseNode failed: %v", err)
	}

	// Face (1,0,0),(0,1,0),(0,0,1) faces (1,1,1); mirrored in Y after the flip.
	want := math.Vec3{X: 1, Y: -1, Z: 1}.Normalize()
	for i := 0; i < 3; i++ {
		if !pose.HasNormal[i] {
			t.Fatalf("vertex %d should have a normal", i)
		}
		if !near(pose.Normals[i], want) {
			t.Errorf("normal %d = %v, want %v", i, pose.Normals[i], want)
		}
	}

	if pose.HasNormal[3] {
		t.Error("vertex 3 belongs to no valid face and should have no normal")
	}
}

func TestPoseNode_ParentHierarchy(t *testing.T) {
	rsm := &formats.RSM{
		Nodes: []formats.RSMNode{
			{Name: "root", Matrix: identity3, Scale: [3]float32{1, 1, 1}, Position: [3]float32{10, 0, 0}},
			{Name: "child", Parent: "root", Matrix: identity3, Scale: [3]float32{2, 2, 2},
				Vertices: [][3]float32{{1, 0, 0}}},
		},
	}

	pose, err := PoseNode(rsm, 1, PoseOptions{})
	if err != nil {
		t.Fatalf("PoseNode failed: %v", err)
	}
	if !near(pose.Positions[0], math.Vec3{X: 12, Y: 0, Z: 0}) {
		t.Errorf("position = %v, want (12, 0, 0)", pose.Positions[0])
	}
}

func TestPoseNode_OutOfRange(t *testing.T) {
	if _, err := PoseNode(spinningTriangle(), 3, PoseOptions{}); err == nil {
		t.Error("expected error for out of range node index")
	}
}
