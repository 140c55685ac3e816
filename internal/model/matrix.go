package model

import (
	"github.com/Faultbox/midgard-vat/pkg/formats"
	"github.com/Faultbox/midgard-vat/pkg/math"
)

// NodeMatrix builds the vertex transform of an RSM node: the inherited
// hierarchy matrix followed by the node's own Offset and Mat3, which children
// do not inherit.
func NodeMatrix(node *formats.RSMNode, rsm *formats.RSM, opts PoseOptions) math.Mat4 {
	visited := make(map[string]bool)
	return hierarchyMatrix(node, rsm, opts, visited).
		Mul(math.Translate(node.Offset)).
		Mul(math.FromMat3x3(node.Matrix))
}

// hierarchyMatrix returns parent_hierarchy * Position * Rotation * Scale.
func hierarchyMatrix(node *formats.RSMNode, rsm *formats.RSM, opts PoseOptions, visited map[string]bool) math.Mat4 {
	if visited[node.Name] {
		return math.Identity()
	}
	visited[node.Name] = true

	animate := !opts.BindPose

	position := node.Position
	if animate && len(node.PosKeys) > 0 {
		position = InterpolatePosKeys(node.PosKeys, opts.TimeMs)
	}
	local := math.Translate(position)

	// Keyframe rotation replaces the static axis-angle.
	switch {
	case animate && len(node.RotKeys) > 0:
		local = local.Mul(InterpolateRotKeys(node.RotKeys, opts.TimeMs).Mat4())
	case node.RotAngle != 0:
		local = local.Mul(math.RotateAxis(node.RotAxis, node.RotAngle))
	}

	local = local.Mul(math.Scale(node.Scale))
	if animate && len(node.ScaleKeys) > 0 {
		local = local.Mul(math.Scale(InterpolateScaleKeys(node.ScaleKeys, opts.TimeMs)))
	}

	if node.Parent != "" && node.Parent != node.Name {
		if parent := rsm.GetNodeByName(node.Parent); parent != nil {
			return hierarchyMatrix(parent, rsm, opts, visited).Mul(local)
		}
	}
	return local
}
