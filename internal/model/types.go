// Package model evaluates animated RSM models into per-vertex poses.
package model

import "github.com/Faultbox/midgard-vat/pkg/math"

// PoseOptions selects the point in time a model is evaluated at.
type PoseOptions struct {
	// TimeMs is the animation time in milliseconds.
	TimeMs float32
	// BindPose ignores all keyframes and evaluates the static node transforms.
	BindPose bool
}

// NodePose holds one node's vertices after transformation, indexed like
// the node's vertex array.
type NodePose struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	// HasNormal is false for vertices no valid face touches.
	HasNormal []bool
}
