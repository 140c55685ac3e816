package vat

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-vat/pkg/formats"
)

func TestBakerRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	var progress []int
	baker := NewBaker(scenarioSource(), Options{
		Margins:  Margins{Position: 0.1},
		Metadata: true,
		Preview:  true,
		Progress: func(p int) { progress = append(progress, p) },
	})

	res, err := baker.Run(context.Background(), Request{OutputDir: dir, BaseFilename: "cube"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.PositionPath != filepath.Join(dir, "cube_position.exr") ||
		res.NormalPath != filepath.Join(dir, "cube_normal.exr") ||
		res.MetadataPath != filepath.Join(dir, "cube_vat.yaml") {
		t.Errorf("unexpected paths: %+v", res)
	}
	if len(res.PreviewPaths) != 2 {
		t.Errorf("expected 2 previews, got %v", res.PreviewPaths)
	}
	if res.Width != 2 || res.Height != 3 {
		t.Errorf("size = %dx%d, want 2x3", res.Width, res.Height)
	}
	for _, p := range append([]string{res.PositionPath, res.NormalPath, res.MetadataPath}, res.PreviewPaths...) {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}

	var zMax float32 = 1
	if res.PositionRange[2].Max != zMax+0.1 {
		t.Errorf("z range max = %v, want %v", res.PositionRange[2].Max, zMax+0.1)
	}

	img, err := formats.ParseEXRFile(res.PositionPath)
	if err != nil {
		t.Fatalf("ParseEXRFile failed: %v", err)
	}
	if img.Width != 2 || img.Height != 3 {
		t.Fatalf("image size = %dx%d, want 2x3", img.Width, img.Height)
	}
	// Frame 1 vertex 0 moved by (0,0,1); frame 2 vertex 1 by (1,0,0).
	wantR := []float32{0, 0, 0, 0, 0, 1}
	wantB := []float32{0, 0, 1, 0, 0, 0}
	for i := range wantR {
		if img.Channel("R").Data[i] != wantR[i] || img.Channel("B").Data[i] != wantB[i] {
			t.Errorf("texel %d: R=%v B=%v, want R=%v B=%v",
				i, img.Channel("R").Data[i], img.Channel("B").Data[i], wantR[i], wantB[i])
		}
		if img.Channel("A").Data[i] != 1 {
			t.Errorf("texel %d alpha = %v", i, img.Channel("A").Data[i])
		}
	}

	normals, err := formats.ParseEXRFile(res.NormalPath)
	if err != nil {
		t.Fatalf("ParseEXRFile failed: %v", err)
	}
	// (0,0,1) in the unit range.
	if normals.Channel("R").Data[0] != 0.5 || normals.Channel("B").Data[0] != 1 {
		t.Errorf("normal texel 0 = %v %v", normals.Channel("R").Data[0], normals.Channel("B").Data[0])
	}

	if len(progress) == 0 || progress[len(progress)-1] != 100 {
		t.Fatalf("progress = %v, want to end at 100", progress)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] || progress[i] < 0 || progress[i] > 100 {
			t.Errorf("progress not monotonic in [0,100]: %v", progress)
			break
		}
	}
}

func TestBakerRunIdempotent(t *testing.T) {
	run := func(opts Options) (*Result, [][]byte) {
		t.Helper()
		opts.Metadata = true
		opts.Margins = Margins{Position: 0.1, Normal: 0.01}
		res, err := NewBaker(twoMeshSource(), opts).Run(context.Background(), Request{
			OutputDir:    t.TempDir(),
			BaseFilename: "sword",
		})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		var files [][]byte
		for _, p := range []string{res.PositionPath, res.NormalPath, res.MetadataPath} {
			data, err := os.ReadFile(p)
			if err != nil {
				t.Fatal(err)
			}
			files = append(files, data)
		}
		return res, files
	}

	_, first := run(Options{})
	_, second := run(Options{})
	_, fused := run(Options{SinglePass: true})

	for i := range first {
		if !bytes.Equal(first[i], second[i]) {
			t.Errorf("file %d differs between identical runs", i)
		}
		if !bytes.Equal(first[i], fused[i]) {
			t.Errorf("file %d differs between staged and single pass runs", i)
		}
	}
}

func TestBakerSelectionAndFrames(t *testing.T) {
	res, err := NewBaker(twoMeshSource(), Options{}).Run(context.Background(), Request{
		Selection: Selection{Mode: SelectNamed, Names: []string{"hilt", "ghost"}},
		Frames:    &FrameRange{First: 11, Last: 11},
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Width != 1 || res.Height != 1 || res.Frames != (FrameRange{11, 11}) {
		t.Errorf("unexpected result: %+v", res)
	}
	if filepath.Base(res.PositionPath) != "output_position.exr" {
		t.Errorf("default base filename not applied: %s", res.PositionPath)
	}
	if res.MetadataPath != "" || res.PreviewPaths != nil {
		t.Errorf("extras written without being enabled: %+v", res)
	}

	img, err := formats.ParseEXRFile(res.PositionPath)
	if err != nil {
		t.Fatalf("ParseEXRFile failed: %v", err)
	}
	if img.Channel("R").Data[0] != -1 || img.Channel("B").Data[0] != 2 {
		t.Errorf("hilt offset at frame 11 = (%v, _, %v), want (-1, _, 2)",
			img.Channel("R").Data[0], img.Channel("B").Data[0])
	}
}

func TestBakerZeroFrames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	src := scenarioSource()

	_, err := NewBaker(src, Options{}).Run(context.Background(), Request{
		Frames:    &FrameRange{First: 1, Last: 0},
		OutputDir: dir,
	})
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageCollectInputs {
		t.Errorf("expected failure in collect inputs, got %v", err)
	}
	if src.sampleCalls != 0 || src.bindCalls != 0 {
		t.Errorf("source sampled before failing: %d bind, %d sample", src.bindCalls, src.sampleCalls)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("output directory should not be created")
	}
}

func TestBakerIndexMismatch(t *testing.T) {
	src := scenarioSource()
	src.meshes[0].frames[1] = append(src.meshes[0].frames[1], at(vec(3, 3, 3)))
	dir := t.TempDir()

	_, err := NewBaker(src, Options{}).Run(context.Background(), Request{OutputDir: dir})
	if !errors.Is(err, ErrIndexMismatch) {
		t.Fatalf("expected ErrIndexMismatch, got %v", err)
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageEstimateRanges {
		t.Errorf("expected failure in estimate ranges, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("no files should be written, found %d", len(entries))
	}
}

func TestBakerWriteError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewBaker(scenarioSource(), Options{}).Run(context.Background(), Request{OutputDir: blocker})
	if !errors.Is(err, ErrWrite) {
		t.Errorf("expected ErrWrite, got %v", err)
	}
}

func TestBakerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := scenarioSource()

	_, err := NewBaker(src, Options{}).Run(ctx, Request{OutputDir: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if src.bindCalls != 0 {
		t.Error("cancelled run should not touch the source")
	}
}

func TestStageString(t *testing.T) {
	if StageEncodeNormals.String() != "encode normals" {
		t.Errorf("unexpected stage name %q", StageEncodeNormals)
	}
	if Stage(99).String() != "Stage(99)" {
		t.Errorf("unexpected name for unknown stage: %s", Stage(99))
	}
}
