package vat

import (
	"errors"
	"testing"
)

func TestNewPlanSelectAll(t *testing.T) {
	plan, err := NewPlan(twoMeshSource(), Selection{Mode: SelectAll}, nil)
	if err != nil {
		t.Fatalf("NewPlan failed: %v", err)
	}

	if plan.Width() != 3 || plan.Height() != 2 {
		t.Errorf("size = %dx%d, want 3x2", plan.Width(), plan.Height())
	}
	if plan.Frames != (FrameRange{10, 11}) {
		t.Errorf("frames = %+v, want [10, 11]", plan.Frames)
	}
	if len(plan.Offsets) != 2 || plan.Offsets[0] != 0 || plan.Offsets[1] != 2 {
		t.Errorf("offsets = %v, want [0 2]", plan.Offsets)
	}
}

func TestNewPlanSelectNamed(t *testing.T) {
	// Enumeration order wins over selection order.
	sel := Selection{Mode: SelectNamed, Names: []string{"hilt", "ghost", "blade"}}
	plan, err := NewPlan(twoMeshSource(), sel, nil)
	if err != nil {
		t.Fatalf("NewPlan failed: %v", err)
	}
	if len(plan.Names) != 2 || plan.Names[0] != "blade" || plan.Names[1] != "hilt" {
		t.Errorf("names = %v, want [blade hilt]", plan.Names)
	}
	if len(plan.Unresolved) != 1 || plan.Unresolved[0] != "ghost" {
		t.Errorf("unresolved = %v, want [ghost]", plan.Unresolved)
	}

	plan, err = NewPlan(twoMeshSource(), Selection{Mode: SelectNamed, Names: []string{"hilt"}}, nil)
	if err != nil {
		t.Fatalf("NewPlan failed: %v", err)
	}
	if plan.Width() != 1 || plan.Meshes[0] != 1 || plan.Offsets[0] != 0 {
		t.Errorf("unexpected plan for hilt: %+v", plan)
	}
}

func TestNewPlanErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    *memSource
		sel    Selection
		frames *FrameRange
	}{
		{"no meshes", &memSource{}, Selection{}, nil},
		{"nothing selected", twoMeshSource(), Selection{Mode: SelectNamed, Names: []string{"ghost"}}, nil},
		{"empty named selection", twoMeshSource(), Selection{Mode: SelectNamed}, nil},
		{"zero frames", twoMeshSource(), Selection{}, &FrameRange{First: 3, Last: 2}},
		{"mesh without vertices", &memSource{meshes: []memMesh{{name: "empty", frames: [][]VertexSample{{}}}}}, Selection{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlan(tt.src, tt.sel, tt.frames)
			if !errors.Is(err, ErrEmptyInput) {
				t.Errorf("expected ErrEmptyInput, got %v", err)
			}
			if tt.src.sampleCalls != 0 || tt.src.bindCalls != 0 {
				t.Errorf("source was sampled before failing: %d bind, %d sample calls",
					tt.src.bindCalls, tt.src.sampleCalls)
			}
		})
	}
}

func TestCaptureBindPose(t *testing.T) {
	src := twoMeshSource()
	plan, err := NewPlan(src, Selection{}, nil)
	if err != nil {
		t.Fatalf("NewPlan failed: %v", err)
	}

	bind, err := CaptureBindPose(src, plan)
	if err != nil {
		t.Fatalf("CaptureBindPose failed: %v", err)
	}
	if len(bind) != 2 || len(bind[0]) != 2 || bind[1][0] != vec(5, 5, 5) {
		t.Errorf("unexpected bind pose: %v", bind)
	}
	if src.bindCalls != 2 || src.sampleCalls != 0 {
		t.Errorf("calls: %d bind, %d sample; want 2, 0", src.bindCalls, src.sampleCalls)
	}
}

func TestSelectionModeString(t *testing.T) {
	if SelectAll.String() != "all" || SelectNamed.String() != "named" {
		t.Error("unexpected selection mode names")
	}
	if SelectionMode(7).String() != "SelectionMode(7)" {
		t.Errorf("unexpected name for unknown mode: %s", SelectionMode(7))
	}
}
