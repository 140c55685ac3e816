package formats

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/midgard-vat/pkg/encoding"
)

const (
	rsmMagic      = "GRSM"
	rsmNameLength = 40

	maxRSMTextures = 1000
	maxRSMNodes    = 10000
	maxRSMElements = 100000
	maxRSMKeys     = 10000
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidRSMCount       = errors.New("invalid RSM element count")
)

// RSMVersion is the Major.Minor version from the file header.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSMFace is one triangle. Only VertexIDs matter for posing.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16
	_           uint16
	TwoSide     int32
}

// RSMPosKeyframe is a translation key, present before version 1.5.
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKeyframe is a rotation key holding an X, Y, Z, W quaternion.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32
}

// RSMScaleKeyframe is a scale key, present from version 1.5.
type RSMScaleKeyframe struct {
	Frame int32
	Scale [3]float32
}

// RSMNode is one node of the model hierarchy. Key frames are in
// milliseconds.
type RSMNode struct {
	Name   string
	Parent string

	// Matrix and Offset apply to this node's vertices only.
	Matrix [9]float32
	Offset [3]float32

	// Position, rotation and scale are inherited by children.
	Position [3]float32
	RotAngle float32
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices [][3]float32
	Faces    []RSMFace

	PosKeys   []RSMPosKeyframe
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe
}

// RSM is a parsed model. Texture coordinates, vertex colors and volume
// boxes are skipped.
type RSM struct {
	Version    RSMVersion
	AnimLength int32 // milliseconds
	Shading    int32
	Alpha      float32
	Textures   []string
	RootNode   string
	Nodes      []RSMNode
}

// ParseRSMFile reads and parses an RSM file.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// ParseRSM parses versions 1.1 through 2.x.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != rsmMagic {
		return nil, ErrInvalidRSMMagic
	}

	rsm := &RSM{Version: RSMVersion{Major: data[4], Minor: data[5]}, Alpha: 1}
	if rsm.Version.Major < 1 || rsm.Version.Major > 2 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	r := &stickyReader{r: bytes.NewReader(data[6:])}
	r.read(&rsm.AnimLength)
	r.read(&rsm.Shading)
	if rsm.Version.AtLeast(1, 4) {
		rsm.Alpha = float32(r.bytes(1)[0]) / 255
	}
	r.skip(16)

	rsm.Textures = make([]string, r.count("textures", maxRSMTextures, ErrInvalidRSMCount))
	for i := range rsm.Textures {
		rsm.Textures[i] = readName(r)
	}
	rsm.RootNode = readName(r)

	rsm.Nodes = make([]RSMNode, r.count("nodes", maxRSMNodes, ErrInvalidRSMCount))
	if err := rsmError(r.err, "header"); err != nil {
		return nil, err
	}

	for i := range rsm.Nodes {
		readRSMNode(r, rsm.Version, &rsm.Nodes[i])
		if err := rsmError(r.err, fmt.Sprintf("node %d %q", i, rsm.Nodes[i].Name)); err != nil {
			return nil, err
		}
	}
	return rsm, nil
}

func rsmError(err error, where string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %s", ErrTruncatedRSMData, where)
	default:
		return fmt.Errorf("%s: %w", where, err)
	}
}

func readRSMNode(r *stickyReader, v RSMVersion, node *RSMNode) {
	node.Name = readName(r)
	node.Parent = readName(r)

	// Texture indices.
	r.skip(4 * int64(r.count("texture ids", maxRSMTextures, ErrInvalidRSMCount)))

	r.read(&node.Matrix)
	r.read(&node.Offset)
	r.read(&node.Position)
	r.read(&node.RotAngle)
	r.read(&node.RotAxis)
	r.read(&node.Scale)

	node.Vertices = readSlice[[3]float32](r, r.count("vertices", maxRSMElements, ErrInvalidRSMCount))

	// Texture coordinates, with an RGBA color from 1.2.
	tcSize := int64(8)
	if v.AtLeast(1, 2) {
		tcSize += 4
	}
	r.skip(tcSize * int64(r.count("texcoords", maxRSMElements, ErrInvalidRSMCount)))

	faces := r.count("faces", maxRSMElements, ErrInvalidRSMCount)
	if v.AtLeast(1, 2) {
		// Each face carries a trailing smoothing group.
		node.Faces = make([]RSMFace, faces)
		for i := range node.Faces {
			r.read(&node.Faces[i])
			r.skip(4)
		}
	} else {
		node.Faces = readSlice[RSMFace](r, faces)
	}

	if !v.AtLeast(1, 5) {
		node.PosKeys = readSlice[RSMPosKeyframe](r, r.count("position keys", maxRSMKeys, ErrInvalidRSMCount))
	}
	node.RotKeys = readSlice[RSMRotKeyframe](r, r.count("rotation keys", maxRSMKeys, ErrInvalidRSMCount))
	if v.AtLeast(1, 5) {
		node.ScaleKeys = readSlice[RSMScaleKeyframe](r, r.count("scale keys", maxRSMKeys, ErrInvalidRSMCount))
	}
}

func readName(r *stickyReader) string {
	return encoding.FixedStringToUTF8(r.bytes(rsmNameLength))
}

// GetNodeByName returns the node called name, or nil.
func (rsm *RSM) GetNodeByName(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// VertexCount is the number of vertices across all nodes.
func (rsm *RSM) VertexCount() int {
	total := 0
	for i := range rsm.Nodes {
		total += len(rsm.Nodes[i].Vertices)
	}
	return total
}
