// Package vat bakes per-vertex mesh animation into Vertex Animation
// Textures: two float images where each row is a frame and each column a
// vertex. The position image holds raw offsets from the bind pose, the
// normal image holds normals remapped into [0, 1].
package vat

import (
	"errors"

	"github.com/Faultbox/midgard-vat/pkg/math"
)

// Errors returned by the bake pipeline.
var (
	ErrEmptyInput    = errors.New("no vertices or frames to bake")
	ErrIndexMismatch = errors.New("vertex count changed between bind pose and animation")
	ErrShapeMismatch = errors.New("buffer does not match image dimensions")
	ErrWrite         = errors.New("writing output failed")
)

// FrameRange is an inclusive range of frame indices.
type FrameRange struct {
	First int
	Last  int
}

// Count returns the number of frames. A range with Last < First is empty.
func (r FrameRange) Count() int {
	if r.Last < r.First {
		return 0
	}
	return r.Last - r.First + 1
}

// Mesh describes one mesh a Source can sample.
type Mesh struct {
	Name        string
	VertexCount int
}

// VertexSample is the state of one vertex at one frame.
type VertexSample struct {
	Position math.Vec3
	Normal   math.Vec3
	// HasNormal is false when the source could not provide a normal.
	HasNormal bool
}

// Source supplies animated vertex data. Meshes are enumerated in a fixed
// order and every call for the same mesh returns vertices in the same order.
type Source interface {
	// Meshes lists the meshes available for export.
	Meshes() []Mesh
	// FrameRange is the playback range used when a bake does not override it.
	FrameRange() FrameRange
	// BindPose returns the rest positions of a mesh's vertices.
	BindPose(mesh int) ([]math.Vec3, error)
	// Sample returns the vertices of a mesh at a frame.
	Sample(frame, mesh int) ([]VertexSample, error)
}

// Normal is a sampled normal that may be missing.
type Normal struct {
	math.Vec3
	OK bool
}

// DefaultNormal replaces normals a source could not provide.
var DefaultNormal = math.Vec3{X: 0, Y: 0, Z: 1}

// Value returns the normal, or DefaultNormal when it is missing.
func (n Normal) Value() math.Vec3 {
	if !n.OK {
		return DefaultNormal
	}
	return n.Vec3
}

// AxisRange is the inclusive [Min, Max] interval of one channel.
type AxisRange struct {
	Min float32
	Max float32
}

// AxisRanges holds one AxisRange per axis, X Y Z.
type AxisRanges [3]AxisRange

// Pixel is one RGBA texel.
type Pixel [4]float32

// EncodedBuffer holds one pixel per (frame, vertex) pair in row-major
// (frame, vertex) order.
type EncodedBuffer []Pixel

// Planes splits the buffer into its R, G, B and A channel planes. Each plane
// holds width*height values in row-major order, row 0 being the first frame.
// The buffer must hold exactly width*height pixels.
func (b EncodedBuffer) Planes(width, height int) [4][]float32 {
	var planes [4][]float32
	for c := range planes {
		planes[c] = make([]float32, width*height)
	}
	for i, px := range b[:width*height] {
		for c := range planes {
			planes[c][i] = px[c]
		}
	}
	return planes
}
