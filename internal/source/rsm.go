// Package source provides vat.Source implementations: animated RSM models
// and YAML sample fixtures.
package source

import (
	"errors"
	"fmt"
	gomath "math"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vat/internal/assets"
	"github.com/Faultbox/midgard-vat/internal/logger"
	"github.com/Faultbox/midgard-vat/internal/model"
	"github.com/Faultbox/midgard-vat/internal/vat"
	"github.com/Faultbox/midgard-vat/pkg/formats"
	"github.com/Faultbox/midgard-vat/pkg/math"
)

// ErrInvalidFrameRate is returned for a non-positive frame rate.
var ErrInvalidFrameRate = errors.New("frame rate must be positive")

// RSM samples an RSM model. Every node with vertices is one mesh.
type RSM struct {
	model *formats.RSM
	name  string
	fps   float64
	nodes []int
}

// NewRSM wraps a parsed model sampled at fps frames per second.
func NewRSM(m *formats.RSM, name string, fps float64) (*RSM, error) {
	if !(fps > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrameRate, fps)
	}
	s := &RSM{model: m, name: name, fps: fps}
	for i := range m.Nodes {
		if len(m.Nodes[i].Vertices) > 0 {
			s.nodes = append(s.nodes, i)
		}
	}
	return s, nil
}

// OpenRSM loads a model from disk, or from the given GRF archives when
// there are any. Later archives take priority.
func OpenRSM(path string, archives []string, fps float64) (*RSM, error) {
	data, err := readModel(path, archives)
	if err != nil {
		return nil, err
	}

	m, err := formats.ParseRSM(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	s, err := NewRSM(m, path, fps)
	if err != nil {
		return nil, err
	}
	logger.Debug("model loaded",
		zap.String("path", path),
		zap.String("version", m.Version.String()),
		zap.Int("nodes", len(m.Nodes)),
		zap.Int("meshes", len(s.nodes)),
		zap.Int32("anim_length_ms", m.AnimLength),
	)
	if !s.Animated() {
		logger.Warn("model has no animation, offsets will be constant", zap.String("path", path))
	}
	return s, nil
}

func readModel(path string, archives []string) ([]byte, error) {
	if len(archives) == 0 {
		return os.ReadFile(path)
	}

	m, err := assets.Open(archives...)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	return m.Read(path)
}

// Name returns the path the model was loaded from.
func (s *RSM) Name() string { return s.name }

// Model returns the underlying parsed model.
func (s *RSM) Model() *formats.RSM { return s.model }

// Animated reports whether the model has keyframe animation.
func (s *RSM) Animated() bool { return model.HasAnimation(s.model) }

// Meshes lists nodes that carry vertices, in file order.
func (s *RSM) Meshes() []vat.Mesh {
	meshes := make([]vat.Mesh, len(s.nodes))
	for i, n := range s.nodes {
		node := &s.model.Nodes[n]
		meshes[i] = vat.Mesh{Name: node.Name, VertexCount: len(node.Vertices)}
	}
	return meshes
}

// FrameRange covers the animation length at the sampling frame rate.
func (s *RSM) FrameRange() vat.FrameRange {
	length := max(float64(s.model.AnimLength), 0)
	return vat.FrameRange{First: 0, Last: int(gomath.Floor(length * s.fps / 1000))}
}

// TimeMs converts a frame index to animation time.
func (s *RSM) TimeMs(frame int) float32 {
	return float32(float64(frame) * 1000 / s.fps)
}

// BindPose evaluates the node hierarchy without keyframes.
func (s *RSM) BindPose(mesh int) ([]math.Vec3, error) {
	pose, err := s.pose(mesh, model.PoseOptions{BindPose: true})
	if err != nil {
		return nil, err
	}
	return pose.Positions, nil
}

// Sample evaluates the animation at frame.
func (s *RSM) Sample(frame, mesh int) ([]vat.VertexSample, error) {
	pose, err := s.pose(mesh, model.PoseOptions{TimeMs: s.TimeMs(frame)})
	if err != nil {
		return nil, err
	}

	samples := make([]vat.VertexSample, len(pose.Positions))
	for i := range samples {
		samples[i] = vat.VertexSample{
			Position:  pose.Positions[i],
			Normal:    pose.Normals[i],
			HasNormal: pose.HasNormal[i],
		}
	}
	return samples, nil
}

func (s *RSM) pose(mesh int, opts model.PoseOptions) (*model.NodePose, error) {
	if mesh < 0 || mesh >= len(s.nodes) {
		return nil, fmt.Errorf("mesh %d out of range [0, %d)", mesh, len(s.nodes))
	}
	return model.PoseNode(s.model, s.nodes[mesh], opts)
}

// IsFixture reports whether path names a YAML fixture rather than a model.
func IsFixture(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
