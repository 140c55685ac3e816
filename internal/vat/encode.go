package vat

// Progress spans of the two encoding halves.
const (
	positionProgressEnd = 50
	normalProgressEnd   = 100
)

// Remap maps v linearly from [inMin, inMax] onto [outMin, outMax]. A
// zero-width input interval maps everything to outMin.
func Remap(v, inMin, inMax, outMin, outMax float32) float32 {
	if inMax == inMin {
		return outMin
	}
	t := float32((v - inMin) / (inMax - inMin))
	return outMin + float32((outMax-outMin)*t)
}

func positionPixel(current, bind [3]float32) Pixel {
	return Pixel{current[0] - bind[0], current[1] - bind[1], current[2] - bind[2], 1}
}

func normalPixel(n Normal, r AxisRanges) Pixel {
	v := n.Value()
	return Pixel{
		Remap(v.X, r[0].Min, r[0].Max, 0, 1),
		Remap(v.Y, r[1].Min, r[1].Max, 0, 1),
		Remap(v.Z, r[2].Min, r[2].Max, 0, 1),
		1,
	}
}

// EncodePositions emits the raw offset of every vertex from its bind
// position, frame by frame. Progress covers [0, 50].
func EncodePositions(src Source, plan *Plan, bind BindPose, progress ProgressFunc) (EncodedBuffer, error) {
	width, height := plan.Width(), plan.Height()
	buf := make(EncodedBuffer, width*height)
	tracker := newProgressTracker(progress)
	last := len(plan.Meshes) - 1

	err := sampleFrames(src, plan, bind, func(row, mesh int, samples []VertexSample) {
		base := row*width + plan.Offsets[mesh]
		for v, s := range samples {
			buf[base+v] = positionPixel(s.Position.Array(), bind[mesh][v].Array())
		}
		if mesh == last {
			tracker.step(0, positionProgressEnd, row+1, height)
		}
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeNormals emits every vertex normal remapped per axis from ranges
// into [0, 1], frame by frame. Progress covers [50, 100].
func EncodeNormals(src Source, plan *Plan, bind BindPose, ranges AxisRanges, progress ProgressFunc) (EncodedBuffer, error) {
	width, height := plan.Width(), plan.Height()
	buf := make(EncodedBuffer, width*height)
	tracker := newProgressTracker(progress)
	last := len(plan.Meshes) - 1

	err := sampleFrames(src, plan, bind, func(row, mesh int, samples []VertexSample) {
		base := row*width + plan.Offsets[mesh]
		for v, s := range samples {
			buf[base+v] = normalPixel(sampleNormal(s), ranges)
		}
		if mesh == last {
			tracker.step(positionProgressEnd, normalProgressEnd, row+1, height)
		}
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Encoded is the output of a complete encoding pass.
type Encoded struct {
	Positions     EncodedBuffer
	Normals       EncodedBuffer
	PositionRange AxisRanges
	NormalRange   AxisRanges
}

// EncodeSinglePass samples every frame once, encoding positions and
// collecting ranges together. Raw normals are held until the normal range
// is complete. The result equals EstimateRanges followed by EncodePositions
// and EncodeNormals.
func EncodeSinglePass(src Source, plan *Plan, bind BindPose, margins Margins, progress ProgressFunc) (*Encoded, error) {
	width, height := plan.Width(), plan.Height()
	out := &Encoded{Positions: make(EncodedBuffer, width*height)}
	raw := make([]Normal, width*height)
	posAcc := newOffsetAccumulator()
	nrmAcc := newNormalAccumulator()
	tracker := newProgressTracker(progress)
	last := len(plan.Meshes) - 1

	err := sampleFrames(src, plan, bind, func(row, mesh int, samples []VertexSample) {
		base := row*width + plan.Offsets[mesh]
		for v, s := range samples {
			b := bind[mesh][v]
			posAcc.add(s.Position.Sub(b))
			out.Positions[base+v] = positionPixel(s.Position.Array(), b.Array())

			n := sampleNormal(s)
			nrmAcc.add(n.Value())
			raw[base+v] = n
		}
		if mesh == last {
			tracker.step(0, positionProgressEnd, row+1, height)
		}
	})
	if err != nil {
		return nil, err
	}

	if out.PositionRange, err = posAcc.finish(margins.Position); err != nil {
		return nil, err
	}
	if out.NormalRange, err = nrmAcc.finish(margins.Normal); err != nil {
		return nil, err
	}

	out.Normals = make(EncodedBuffer, width*height)
	for row := 0; row < height; row++ {
		for i := row * width; i < (row+1)*width; i++ {
			out.Normals[i] = normalPixel(raw[i], out.NormalRange)
		}
		tracker.step(positionProgressEnd, normalProgressEnd, row+1, height)
	}
	return out, nil
}
