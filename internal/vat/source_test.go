package vat

import (
	"fmt"

	"github.com/Faultbox/midgard-vat/pkg/math"
)

// memMesh is one mesh of a memSource: a bind pose and per-frame samples.
type memMesh struct {
	name   string
	bind   []math.Vec3
	frames [][]VertexSample
}

// memSource is an in-memory Source that counts sampling calls.
type memSource struct {
	first  int
	meshes []memMesh

	bindCalls   int
	sampleCalls int
}

func (s *memSource) Meshes() []Mesh {
	meshes := make([]Mesh, len(s.meshes))
	for i, m := range s.meshes {
		meshes[i] = Mesh{Name: m.name, VertexCount: len(m.bind)}
	}
	return meshes
}

func (s *memSource) FrameRange() FrameRange {
	if len(s.meshes) == 0 {
		return FrameRange{First: s.first, Last: s.first - 1}
	}
	return FrameRange{First: s.first, Last: s.first + len(s.meshes[0].frames) - 1}
}

func (s *memSource) BindPose(mesh int) ([]math.Vec3, error) {
	s.bindCalls++
	return append([]math.Vec3(nil), s.meshes[mesh].bind...), nil
}

func (s *memSource) Sample(frame, mesh int) ([]VertexSample, error) {
	s.sampleCalls++
	frames := s.meshes[mesh].frames
	i := frame - s.first
	if i < 0 || i >= len(frames) {
		return nil, fmt.Errorf("frame %d out of range", frame)
	}
	return frames[i], nil
}

func vec(x, y, z float32) math.Vec3 {
	return math.Vec3{X: x, Y: y, Z: z}
}

func at(p math.Vec3) VertexSample {
	return VertexSample{Position: p, Normal: vec(0, 0, 1), HasNormal: true}
}

// scenarioSource has one mesh with 2 vertices over 3 frames. Vertex 0 moves
// to (0,0,1) at frame 1 and vertex 1 moves to (2,0,0) at frame 2.
func scenarioSource() *memSource {
	return &memSource{
		meshes: []memMesh{{
			name: "cube",
			bind: []math.Vec3{vec(0, 0, 0), vec(1, 0, 0)},
			frames: [][]VertexSample{
				{at(vec(0, 0, 0)), at(vec(1, 0, 0))},
				{at(vec(0, 0, 1)), at(vec(1, 0, 0))},
				{at(vec(0, 0, 0)), at(vec(2, 0, 0))},
			},
		}},
	}
}

// twoMeshSource has meshes of 2 and 1 vertices over 2 frames starting at
// frame 10, with rotating normals and one missing normal.
func twoMeshSource() *memSource {
	return &memSource{
		first: 10,
		meshes: []memMesh{
			{
				name: "blade",
				bind: []math.Vec3{vec(0, 0, 0), vec(0, 1, 0)},
				frames: [][]VertexSample{
					{
						{Position: vec(0, 0, 0), Normal: vec(1, 0, 0), HasNormal: true},
						{Position: vec(0, 1, 0), Normal: vec(0, 1, 0), HasNormal: true},
					},
					{
						{Position: vec(0.5, -0.25, 0), Normal: vec(0, 0, -1), HasNormal: true},
						{Position: vec(0, 3, 0)},
					},
				},
			},
			{
				name: "hilt",
				bind: []math.Vec3{vec(5, 5, 5)},
				frames: [][]VertexSample{
					{{Position: vec(5, 5, 5), Normal: vec(0, -2, 0), HasNormal: true}},
					{{Position: vec(4, 5, 7), Normal: vec(0, 0, 1), HasNormal: true}},
				},
			},
		},
	}
}
