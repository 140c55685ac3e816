package vat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vat/internal/logger"
)

// DefaultBaseFilename is used when a Request leaves BaseFilename empty.
const DefaultBaseFilename = "output"

// Options configures a Baker.
type Options struct {
	Margins Margins
	// SinglePass samples each frame once instead of once per stage.
	SinglePass bool
	// Metadata writes a <base>_vat.yaml sidecar.
	Metadata bool
	// Preview writes 16-bit TIFF previews next to the textures.
	Preview bool
	// FrameRate is recorded in the sidecar. Zero leaves it out.
	FrameRate float64
	// Progress receives completion percentages, non-decreasing per run.
	Progress ProgressFunc
}

// Request selects what one run bakes and where it writes.
type Request struct {
	Selection Selection
	// Frames overrides the source's frame range when non-nil.
	Frames       *FrameRange
	OutputDir    string
	BaseFilename string
}

// Result reports what a run produced.
type Result struct {
	PositionPath  string
	NormalPath    string
	MetadataPath  string
	PreviewPaths  []string
	Width         int
	Height        int
	Frames        FrameRange
	PositionRange AxisRanges
	NormalRange   AxisRanges
}

// Stage names one step of a bake.
type Stage int

// Stages in execution order.
const (
	StageCollectInputs Stage = iota
	StageEstimateRanges
	StageEncodePositions
	StageEncodeNormals
	StageWritePositionImage
	StageWriteNormalImage
	StageWriteExtras
	StageDone
)

var stageNames = [...]string{
	StageCollectInputs:      "collect inputs",
	StageEstimateRanges:     "estimate ranges",
	StageEncodePositions:    "encode positions",
	StageEncodeNormals:      "encode normals",
	StageWritePositionImage: "write position image",
	StageWriteNormalImage:   "write normal image",
	StageWriteExtras:        "write extras",
	StageDone:               "done",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// StageError reports the stage a run failed in. It unwraps to the cause.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage.String() + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Baker turns a Source into position and normal textures.
type Baker struct {
	src  Source
	opts Options
	log  *zap.Logger
}

// NewBaker creates a Baker reading from src.
func NewBaker(src Source, opts Options) *Baker {
	return &Baker{src: src, opts: opts, log: logger.Named("vat")}
}

// run holds the state passed between stages.
type run struct {
	req      Request
	plan     *Plan
	bind     BindPose
	encoded  Encoded
	result   Result
	progress *progressTracker
}

// Run executes every stage in order. Each stage starts only after the
// previous one succeeded, and ctx is checked between stages. Output files
// are only ever replaced whole.
func (b *Baker) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	r := &run{req: req, progress: newProgressTracker(b.opts.Progress)}

	stages := []struct {
		stage Stage
		fn    func(*run) error
	}{
		{StageCollectInputs, b.collectInputs},
		{StageEstimateRanges, b.estimateRanges},
		{StageEncodePositions, b.encodePositions},
		{StageEncodeNormals, b.encodeNormals},
		{StageWritePositionImage, b.writePositionImage},
		{StageWriteNormalImage, b.writeNormalImage},
		{StageWriteExtras, b.writeExtras},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: s.stage, Err: err}
		}
		stageStart := time.Now()
		if err := s.fn(r); err != nil {
			b.log.Error("bake failed", zap.Stringer("stage", s.stage), zap.Error(err))
			return nil, &StageError{Stage: s.stage, Err: err}
		}
		b.log.Debug("stage done", zap.Stringer("stage", s.stage), zap.Duration("elapsed", time.Since(stageStart)))
	}

	r.progress.report(100)
	b.log.Info("bake finished",
		zap.Int("width", r.result.Width),
		zap.Int("height", r.result.Height),
		zap.Int("meshes", len(r.plan.Meshes)),
		zap.Int("first_frame", r.plan.Frames.First),
		zap.Int("last_frame", r.plan.Frames.Last),
		zap.Float64("fps", b.opts.FrameRate),
		zap.Any("position_range", rangeMetadata(r.result.PositionRange)),
		zap.Any("normal_range", rangeMetadata(r.result.NormalRange)),
		zap.String("position", r.result.PositionPath),
		zap.String("normal", r.result.NormalPath),
		zap.Duration("elapsed", time.Since(start)),
	)

	result := r.result
	return &result, nil
}

func (b *Baker) collectInputs(r *run) error {
	plan, err := NewPlan(b.src, r.req.Selection, r.req.Frames)
	if err != nil {
		return err
	}
	for _, name := range plan.Unresolved {
		b.log.Warn("selected mesh not found", zap.String("mesh", name))
	}

	dir := r.req.OutputDir
	if dir == "" {
		dir = "."
	}
	base := r.req.BaseFilename
	if base == "" {
		base = DefaultBaseFilename
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	bind, err := CaptureBindPose(b.src, plan)
	if err != nil {
		return err
	}

	r.plan = plan
	r.bind = bind
	r.result = Result{
		PositionPath: filepath.Join(dir, base+"_position.exr"),
		NormalPath:   filepath.Join(dir, base+"_normal.exr"),
		Width:        plan.Width(),
		Height:       plan.Height(),
		Frames:       plan.Frames,
	}
	if b.opts.Metadata {
		r.result.MetadataPath = filepath.Join(dir, base+"_vat.yaml")
	}
	if b.opts.Preview {
		r.result.PreviewPaths = []string{
			filepath.Join(dir, base+"_position_preview.tiff"),
			filepath.Join(dir, base+"_normal_preview.tiff"),
		}
	}

	b.log.Info("baking",
		zap.Strings("meshes", plan.Names),
		zap.Int("vertices", plan.VertexCount),
		zap.Int("frames", plan.Frames.Count()),
		zap.Bool("single_pass", b.opts.SinglePass),
	)
	return nil
}

func (b *Baker) estimateRanges(r *run) error {
	if b.opts.SinglePass {
		encoded, err := EncodeSinglePass(b.src, r.plan, r.bind, b.opts.Margins, r.progress.report)
		if err != nil {
			return err
		}
		r.encoded = *encoded
	} else {
		pos, nrm, err := EstimateRanges(b.src, r.plan, r.bind, b.opts.Margins)
		if err != nil {
			return err
		}
		r.encoded.PositionRange, r.encoded.NormalRange = pos, nrm
	}

	r.result.PositionRange = r.encoded.PositionRange
	r.result.NormalRange = r.encoded.NormalRange
	b.log.Debug("ranges",
		zap.Any("position", rangeMetadata(r.encoded.PositionRange)),
		zap.Any("normal", rangeMetadata(r.encoded.NormalRange)),
	)
	return nil
}

func (b *Baker) encodePositions(r *run) error {
	if r.encoded.Positions != nil {
		return nil
	}
	buf, err := EncodePositions(b.src, r.plan, r.bind, r.progress.report)
	if err != nil {
		return err
	}
	r.encoded.Positions = buf
	return nil
}

func (b *Baker) encodeNormals(r *run) error {
	if r.encoded.Normals != nil {
		return nil
	}
	buf, err := EncodeNormals(b.src, r.plan, r.bind, r.encoded.NormalRange, r.progress.report)
	if err != nil {
		return err
	}
	r.encoded.Normals = buf
	return nil
}

func (b *Baker) writePositionImage(r *run) error {
	return WriteFloatImage(r.encoded.Positions, r.result.Width, r.result.Height, r.result.PositionPath)
}

func (b *Baker) writeNormalImage(r *run) error {
	return WriteFloatImage(r.encoded.Normals, r.result.Width, r.result.Height, r.result.NormalPath)
}

func (b *Baker) writeExtras(r *run) error {
	if r.result.MetadataPath != "" {
		if err := WriteMetadata(b.metadata(r), r.result.MetadataPath); err != nil {
			return err
		}
	}
	if len(r.result.PreviewPaths) == 2 {
		w, h := r.result.Width, r.result.Height
		if err := WritePreview(r.encoded.Positions, w, h, &r.encoded.PositionRange, r.result.PreviewPaths[0]); err != nil {
			return err
		}
		if err := WritePreview(r.encoded.Normals, w, h, nil, r.result.PreviewPaths[1]); err != nil {
			return err
		}
	}
	return nil
}

func (b *Baker) metadata(r *run) *Metadata {
	m := &Metadata{
		Version:         metadataVersion,
		PositionTexture: filepath.Base(r.result.PositionPath),
		NormalTexture:   filepath.Base(r.result.NormalPath),
		Width:           r.result.Width,
		Height:          r.result.Height,
		FirstFrame:      r.plan.Frames.First,
		LastFrame:       r.plan.Frames.Last,
		FrameRate:       b.opts.FrameRate,
		PositionRange:   rangeMetadata(r.encoded.PositionRange),
		NormalRange:     rangeMetadata(r.encoded.NormalRange),
	}
	for i, name := range r.plan.Names {
		m.Meshes = append(m.Meshes, MeshMetadata{
			Name:        name,
			FirstColumn: r.plan.Offsets[i],
			Columns:     r.plan.Counts[i],
		})
	}
	return m
}
