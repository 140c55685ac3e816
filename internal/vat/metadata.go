package vat

import (
	"io"

	"gopkg.in/yaml.v3"
)

// metadataVersion is bumped when the sidecar layout changes.
const metadataVersion = 1

// Metadata describes a baked texture pair so a shader can recover the
// animation extent and vertex layout.
type Metadata struct {
	Version         int            `yaml:"version"`
	PositionTexture string         `yaml:"position_texture"`
	NormalTexture   string         `yaml:"normal_texture"`
	Width           int            `yaml:"width"`
	Height          int            `yaml:"height"`
	FirstFrame      int            `yaml:"first_frame"`
	LastFrame       int            `yaml:"last_frame"`
	FrameRate       float64        `yaml:"frame_rate,omitempty"`
	PositionRange   RangeMetadata  `yaml:"position_range"`
	NormalRange     RangeMetadata  `yaml:"normal_range"`
	Meshes          []MeshMetadata `yaml:"meshes"`
}

// RangeMetadata is an AxisRanges in XYZ vector form.
type RangeMetadata struct {
	Min [3]float32 `yaml:"min,flow"`
	Max [3]float32 `yaml:"max,flow"`
}

// MeshMetadata locates one mesh's columns in the textures.
type MeshMetadata struct {
	Name        string `yaml:"name"`
	FirstColumn int    `yaml:"first_column"`
	Columns     int    `yaml:"columns"`
}

func rangeMetadata(r AxisRanges) RangeMetadata {
	var m RangeMetadata
	for axis := range r {
		m.Min[axis] = r[axis].Min
		m.Max[axis] = r[axis].Max
	}
	return m
}

// Ranges converts back to AxisRanges.
func (m RangeMetadata) Ranges() AxisRanges {
	var r AxisRanges
	for axis := range r {
		r[axis] = AxisRange{Min: m.Min[axis], Max: m.Max[axis]}
	}
	return r
}

// WriteMetadata writes m as YAML to path, replacing it atomically.
func WriteMetadata(m *Metadata, path string) error {
	return writeAtomic(path, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	})
}

// ReadMetadata decodes a sidecar written by WriteMetadata.
func ReadMetadata(r io.Reader) (*Metadata, error) {
	var m Metadata
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}
