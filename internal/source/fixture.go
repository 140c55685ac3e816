package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-vat/internal/vat"
	"github.com/Faultbox/midgard-vat/pkg/math"
)

// ErrInvalidFixture is returned when a fixture is inconsistent.
var ErrInvalidFixture = errors.New("invalid fixture")

// Fixture is a Source backed by recorded samples, typically loaded from YAML:
//
//	first_frame: 0
//	meshes:
//	  - name: flag
//	    bind: [[0, 0, 0], [1, 0, 0]]
//	    frames:
//	      - positions: [[0, 0, 0], [1, 0, 0]]
//	        normals: [[0, 0, 1], null]
type Fixture struct {
	FirstFrame int           `yaml:"first_frame"`
	MeshData   []FixtureMesh `yaml:"meshes"`
}

// FixtureMesh is one recorded mesh.
type FixtureMesh struct {
	Name   string         `yaml:"name"`
	Bind   [][3]float32   `yaml:"bind,flow"`
	Frames []FixtureFrame `yaml:"frames"`
}

// FixtureFrame holds one frame of a mesh. Normals may be omitted entirely
// or per vertex with null.
type FixtureFrame struct {
	Positions [][3]float32  `yaml:"positions,flow"`
	Normals   []*[3]float32 `yaml:"normals,omitempty,flow"`
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fx, err := DecodeFixture(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fx, nil
}

// DecodeFixture reads and validates a YAML fixture.
func DecodeFixture(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate checks that every mesh has the same number of frames and that
// normals, when present, cover every position. Position counts may differ
// from the bind pose; that is reported when sampling.
func (fx *Fixture) Validate() error {
	frames := -1
	for _, m := range fx.MeshData {
		if frames >= 0 && len(m.Frames) != frames {
			return fmt.Errorf("%w: mesh %q has %d frames, expected %d", ErrInvalidFixture, m.Name, len(m.Frames), frames)
		}
		frames = len(m.Frames)
		for i, f := range m.Frames {
			if f.Normals != nil && len(f.Normals) != len(f.Positions) {
				return fmt.Errorf("%w: mesh %q frame %d has %d normals for %d positions",
					ErrInvalidFixture, m.Name, i, len(f.Normals), len(f.Positions))
			}
		}
	}
	return nil
}

// Save writes the fixture as YAML.
func (fx *Fixture) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fx); err != nil {
		return err
	}
	return enc.Close()
}

// Meshes lists the recorded meshes.
func (fx *Fixture) Meshes() []vat.Mesh {
	meshes := make([]vat.Mesh, len(fx.MeshData))
	for i, m := range fx.MeshData {
		meshes[i] = vat.Mesh{Name: m.Name, VertexCount: len(m.Bind)}
	}
	return meshes
}

// FrameRange spans the recorded frames.
func (fx *Fixture) FrameRange() vat.FrameRange {
	count := 0
	if len(fx.MeshData) > 0 {
		count = len(fx.MeshData[0].Frames)
	}
	return vat.FrameRange{First: fx.FirstFrame, Last: fx.FirstFrame + count - 1}
}

// BindPose returns the recorded rest positions.
func (fx *Fixture) BindPose(mesh int) ([]math.Vec3, error) {
	if mesh < 0 || mesh >= len(fx.MeshData) {
		return nil, fmt.Errorf("mesh %d out of range [0, %d)", mesh, len(fx.MeshData))
	}
	bind := fx.MeshData[mesh].Bind
	positions := make([]math.Vec3, len(bind))
	for i, p := range bind {
		positions[i] = math.Vec3FromArray(p)
	}
	return positions, nil
}

// Sample returns the recorded frame.
func (fx *Fixture) Sample(frame, mesh int) ([]vat.VertexSample, error) {
	if mesh < 0 || mesh >= len(fx.MeshData) {
		return nil, fmt.Errorf("mesh %d out of range [0, %d)", mesh, len(fx.MeshData))
	}
	m := &fx.MeshData[mesh]
	i := frame - fx.FirstFrame
	if i < 0 || i >= len(m.Frames) {
		return nil, fmt.Errorf("frame %d not recorded for mesh %q", frame, m.Name)
	}

	f := &m.Frames[i]
	samples := make([]vat.VertexSample, len(f.Positions))
	for v, p := range f.Positions {
		samples[v].Position = math.Vec3FromArray(p)
		if v < len(f.Normals) && f.Normals[v] != nil {
			samples[v].Normal = math.Vec3FromArray(*f.Normals[v])
			samples[v].HasNormal = true
		}
	}
	return samples, nil
}

// Open returns the Source for path: a YAML fixture or an RSM model, the
// latter optionally read from GRF archives.
func Open(path string, archives []string, fps float64) (vat.Source, error) {
	if IsFixture(path) {
		fx, err := LoadFixture(path)
		if err != nil {
			return nil, err
		}
		return fx, nil
	}

	s, err := OpenRSM(path, archives, fps)
	if err != nil {
		return nil, err
	}
	return s, nil
}
