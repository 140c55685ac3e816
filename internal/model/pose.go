package model

import (
	"fmt"

	"github.com/Faultbox/midgard-vat/pkg/formats"
	"github.com/Faultbox/midgard-vat/pkg/math"
)

// degenerateArea is the cross product length below which a face is ignored.
const degenerateArea = 1e-5

// PoseNode transforms the vertices of rsm.Nodes[index] into model space at
// the given time and derives per-vertex normals from the faces around them.
// Y is flipped to match the RO coordinate system.
func PoseNode(rsm *formats.RSM, index int, opts PoseOptions) (*NodePose, error) {
	if index < 0 || index >= len(rsm.Nodes) {
		return nil, fmt.Errorf("node index %d out of range [0, %d)", index, len(rsm.Nodes))
	}
	node := &rsm.Nodes[index]
	matrix := NodeMatrix(node, rsm, opts)

	pose := &NodePose{
		Positions: make([]math.Vec3, len(node.Vertices)),
		Normals:   make([]math.Vec3, len(node.Vertices)),
		HasNormal: make([]bool, len(node.Vertices)),
	}

	for i, v := range node.Vertices {
		p := matrix.Apply(v)
		p.Y = -p.Y
		pose.Positions[i] = p
	}

	// Area-weighted face normals accumulate on each corner vertex.
	for _, face := range node.Faces {
		valid := true
		for _, vid := range face.VertexIDs {
			if int(vid) >= len(node.Vertices) {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}

		p0 := pose.Positions[face.VertexIDs[0]]
		p1 := pose.Positions[face.VertexIDs[1]]
		p2 := pose.Positions[face.VertexIDs[2]]
		// Flipping Y mirrors the winding, so the edge order is swapped.
		n := p2.Sub(p0).Cross(p1.Sub(p0))
		if n.Length() < degenerateArea {
			continue
		}

		for _, vid := range face.VertexIDs {
			pose.Normals[vid] = pose.Normals[vid].Add(n)
			pose.HasNormal[vid] = true
		}
	}

	for i := range pose.Normals {
		if !pose.HasNormal[i] {
			continue
		}
		n := pose.Normals[i].Normalize()
		if n == (math.Vec3{}) {
			// Opposing faces cancelled out.
			pose.HasNormal[i] = false
		}
		pose.Normals[i] = n
	}

	return pose, nil
}
