package vat

import (
	"fmt"

	"github.com/Faultbox/midgard-vat/pkg/math"
)

// SelectionMode chooses which meshes a bake exports.
type SelectionMode int

const (
	// SelectAll exports every mesh the source enumerates.
	SelectAll SelectionMode = iota
	// SelectNamed exports only the meshes listed in Selection.Names.
	SelectNamed
)

func (m SelectionMode) String() string {
	switch m {
	case SelectAll:
		return "all"
	case SelectNamed:
		return "named"
	}
	return fmt.Sprintf("SelectionMode(%d)", int(m))
}

// Selection is the set of meshes to export.
type Selection struct {
	Mode  SelectionMode
	Names []string
}

// Plan is the resolved layout of one bake.
type Plan struct {
	// Meshes are the selected source mesh indices in enumeration order.
	Meshes []int
	// Names are the selected mesh names, parallel to Meshes.
	Names []string
	// Offsets is the global vertex index of each selected mesh's first vertex.
	Offsets []int
	// Counts is the vertex count of each selected mesh.
	Counts []int
	// Unresolved lists selected names the source does not have.
	Unresolved []string

	VertexCount int
	Frames      FrameRange
}

// Width is the texture width: one column per vertex.
func (p *Plan) Width() int { return p.VertexCount }

// Height is the texture height: one row per frame.
func (p *Plan) Height() int { return p.Frames.Count() }

// NewPlan resolves sel against src and fixes the frame range. When frames
// is nil the source's own range is used.
func NewPlan(src Source, sel Selection, frames *FrameRange) (*Plan, error) {
	plan := &Plan{Frames: src.FrameRange()}
	if frames != nil {
		plan.Frames = *frames
	}

	meshes := src.Meshes()
	wanted := make(map[string]bool)
	if sel.Mode == SelectNamed {
		for _, name := range sel.Names {
			wanted[name] = false
		}
	}

	for i, mesh := range meshes {
		if sel.Mode == SelectNamed {
			if _, ok := wanted[mesh.Name]; !ok {
				continue
			}
			wanted[mesh.Name] = true
		}
		plan.Meshes = append(plan.Meshes, i)
		plan.Names = append(plan.Names, mesh.Name)
		plan.Offsets = append(plan.Offsets, plan.VertexCount)
		plan.Counts = append(plan.Counts, mesh.VertexCount)
		plan.VertexCount += mesh.VertexCount
	}

	for _, name := range sel.Names {
		if found, ok := wanted[name]; ok && !found {
			plan.Unresolved = append(plan.Unresolved, name)
			wanted[name] = true
		}
	}

	if sel.Mode == SelectNamed && len(plan.Meshes) == 0 {
		return nil, fmt.Errorf("%w: no mesh matches selection %v", ErrEmptyInput, sel.Names)
	}
	if plan.VertexCount == 0 {
		return nil, fmt.Errorf("%w: selected meshes have no vertices", ErrEmptyInput)
	}
	if plan.Frames.Count() == 0 {
		return nil, fmt.Errorf("%w: frame range [%d, %d] is empty", ErrEmptyInput, plan.Frames.First, plan.Frames.Last)
	}
	return plan, nil
}

// BindPose holds the rest positions of every selected mesh, parallel to
// Plan.Meshes.
type BindPose [][]math.Vec3

// CaptureBindPose reads the bind pose of every selected mesh once.
func CaptureBindPose(src Source, plan *Plan) (BindPose, error) {
	bind := make(BindPose, len(plan.Meshes))
	for i, mesh := range plan.Meshes {
		positions, err := src.BindPose(mesh)
		if err != nil {
			return nil, fmt.Errorf("bind pose of mesh %q: %w", plan.Names[i], err)
		}
		if len(positions) != plan.Counts[i] {
			return nil, fmt.Errorf("%w: mesh %q declares %d vertices, bind pose has %d",
				ErrIndexMismatch, plan.Names[i], plan.Counts[i], len(positions))
		}
		bind[i] = positions
	}
	return bind, nil
}

// sampleFrames calls visit for every frame in ascending order and every
// selected mesh in plan order. Each mesh's samples are checked against its
// bind pose count.
func sampleFrames(src Source, plan *Plan, bind BindPose, visit func(row, mesh int, samples []VertexSample)) error {
	if len(bind) != len(plan.Meshes) {
		return fmt.Errorf("%w: bind pose covers %d meshes, plan has %d", ErrIndexMismatch, len(bind), len(plan.Meshes))
	}

	for row := 0; row < plan.Frames.Count(); row++ {
		frame := plan.Frames.First + row
		for i, mesh := range plan.Meshes {
			samples, err := src.Sample(frame, mesh)
			if err != nil {
				return fmt.Errorf("sampling mesh %q at frame %d: %w", plan.Names[i], frame, err)
			}
			if len(samples) != len(bind[i]) {
				return fmt.Errorf("%w: mesh %q has %d bind vertices but %d at frame %d",
					ErrIndexMismatch, plan.Names[i], len(bind[i]), len(samples), frame)
			}
			visit(row, i, samples)
		}
	}
	return nil
}
