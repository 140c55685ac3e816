package vat

import (
	"fmt"
	gomath "math"

	"github.com/Faultbox/midgard-vat/pkg/math"
)

// Margins inflate the computed ranges symmetrically.
type Margins struct {
	Position float32
	Normal   float32
}

// rangeAccumulator tracks per-axis min and max.
type rangeAccumulator struct {
	r AxisRanges
	n int
}

// newOffsetAccumulator starts empty so the first sample sets the range.
func newOffsetAccumulator() *rangeAccumulator {
	inf := float32(gomath.Inf(1))
	a := &rangeAccumulator{}
	for axis := range a.r {
		a.r[axis] = AxisRange{Min: inf, Max: -inf}
	}
	return a
}

// newNormalAccumulator starts at [-1, 1], the range of a unit normal component.
func newNormalAccumulator() *rangeAccumulator {
	a := &rangeAccumulator{}
	for axis := range a.r {
		a.r[axis] = AxisRange{Min: -1, Max: 1}
	}
	return a
}

func (a *rangeAccumulator) add(v math.Vec3) {
	for axis := range a.r {
		x := v.Axis(axis)
		a.r[axis].Min = min(a.r[axis].Min, x)
		a.r[axis].Max = max(a.r[axis].Max, x)
	}
	a.n++
}

func (a *rangeAccumulator) finish(margin float32) (AxisRanges, error) {
	if a.n == 0 {
		return AxisRanges{}, ErrEmptyInput
	}
	r := a.r
	for axis := range r {
		r[axis].Min -= margin
		r[axis].Max += margin
	}
	return r, nil
}

// ComputeOffsetRange returns the per-axis extent of offsets widened by margin.
func ComputeOffsetRange(offsets []math.Vec3, margin float32) (AxisRanges, error) {
	acc := newOffsetAccumulator()
	for _, o := range offsets {
		acc.add(o)
	}
	return acc.finish(margin)
}

// ComputeNormalRange returns the per-axis extent of normals, never narrower
// than [-1, 1], widened by margin. Missing normals count as DefaultNormal.
func ComputeNormalRange(normals []Normal, margin float32) (AxisRanges, error) {
	acc := newNormalAccumulator()
	for _, n := range normals {
		acc.add(n.Value())
	}
	return acc.finish(margin)
}

// EstimateRanges samples every frame of the plan once and returns the
// offset range and the normal range.
func EstimateRanges(src Source, plan *Plan, bind BindPose, margins Margins) (position, normal AxisRanges, err error) {
	posAcc := newOffsetAccumulator()
	nrmAcc := newNormalAccumulator()

	err = sampleFrames(src, plan, bind, func(_, mesh int, samples []VertexSample) {
		for v, s := range samples {
			posAcc.add(s.Position.Sub(bind[mesh][v]))
			nrmAcc.add(sampleNormal(s).Value())
		}
	})
	if err != nil {
		return AxisRanges{}, AxisRanges{}, err
	}

	if position, err = posAcc.finish(margins.Position); err != nil {
		return AxisRanges{}, AxisRanges{}, fmt.Errorf("%w: no position samples", err)
	}
	if normal, err = nrmAcc.finish(margins.Normal); err != nil {
		return AxisRanges{}, AxisRanges{}, fmt.Errorf("%w: no normal samples", err)
	}
	return position, normal, nil
}

func sampleNormal(s VertexSample) Normal {
	return Normal{Vec3: s.Normal, OK: s.HasNormal}
}
