// OpenEXR reader and writer for single-part scanline images with
// uncompressed 32-bit float channels.
package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// EXR format errors.
var (
	ErrInvalidEXRMagic  = errors.New("invalid EXR magic")
	ErrUnsupportedEXR   = errors.New("unsupported EXR feature")
	ErrTruncatedEXRData = errors.New("truncated EXR data")
	ErrInvalidEXRImage  = errors.New("invalid EXR image")
)

const (
	exrMagic         uint32 = 20000630
	exrVersion       uint32 = 2
	exrFlagTiled     uint32 = 0x200
	exrFlagLongNames uint32 = 0x400
	exrFlagDeep      uint32 = 0x800
	exrFlagMultipart uint32 = 0x1000
)

// EXRPixelType is the storage type of an EXR channel.
type EXRPixelType int32

// Pixel types defined by OpenEXR.
const (
	EXRPixelUint  EXRPixelType = 0
	EXRPixelHalf  EXRPixelType = 1
	EXRPixelFloat EXRPixelType = 2
)

// EXRCompression is the compression method of an EXR file.
type EXRCompression uint8

// EXRNoCompression stores scanlines as raw little-endian values.
const EXRNoCompression EXRCompression = 0

// EXRChannel is one image plane: Width*Height float32 values in row-major
// order, row 0 at the top.
type EXRChannel struct {
	Name string
	Data []float32
}

// EXRImage is a float image made of same-sized channel planes.
type EXRImage struct {
	Width    int
	Height   int
	Channels []EXRChannel
}

// Channel returns the named channel, or nil.
func (img *EXRImage) Channel(name string) *EXRChannel {
	for i := range img.Channels {
		if img.Channels[i].Name == name {
			return &img.Channels[i]
		}
	}
	return nil
}

func (img *EXRImage) validate() error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidEXRImage, img.Width, img.Height)
	}
	if len(img.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidEXRImage)
	}
	seen := make(map[string]bool, len(img.Channels))
	for _, ch := range img.Channels {
		if ch.Name == "" || seen[ch.Name] {
			return fmt.Errorf("%w: bad channel name %q", ErrInvalidEXRImage, ch.Name)
		}
		seen[ch.Name] = true
		if len(ch.Data) != img.Width*img.Height {
			return fmt.Errorf("%w: channel %s has %d values, want %d",
				ErrInvalidEXRImage, ch.Name, len(ch.Data), img.Width*img.Height)
		}
	}
	return nil
}

// sortedChannels returns the channels in the alphabetical order EXR
// stores them in.
func (img *EXRImage) sortedChannels() []EXRChannel {
	sorted := make([]EXRChannel, len(img.Channels))
	copy(sorted, img.Channels)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

// EncodeEXR writes img as an uncompressed scanline OpenEXR file with FLOAT
// channels. Output is deterministic for a given image.
func EncodeEXR(w io.Writer, img *EXRImage) error {
	if err := img.validate(); err != nil {
		return err
	}
	channels := img.sortedChannels()

	header := new(bytes.Buffer)
	le := binary.LittleEndian
	binary.Write(header, le, exrMagic)
	binary.Write(header, le, exrVersion)

	chlist := new(bytes.Buffer)
	for _, ch := range channels {
		chlist.WriteString(ch.Name)
		chlist.WriteByte(0)
		binary.Write(chlist, le, EXRPixelFloat)
		chlist.Write([]byte{0, 0, 0, 0}) // pLinear + reserved
		binary.Write(chlist, le, [2]int32{1, 1})
	}
	chlist.WriteByte(0)

	window := new(bytes.Buffer)
	binary.Write(window, le, [4]int32{0, 0, int32(img.Width - 1), int32(img.Height - 1)})

	writeEXRAttr(header, "channels", "chlist", chlist.Bytes())
	writeEXRAttr(header, "compression", "compression", []byte{byte(EXRNoCompression)})
	writeEXRAttr(header, "dataWindow", "box2i", window.Bytes())
	writeEXRAttr(header, "displayWindow", "box2i", window.Bytes())
	writeEXRAttr(header, "lineOrder", "lineOrder", []byte{0})
	writeEXRAttr(header, "pixelAspectRatio", "float", float32Bytes(1))
	writeEXRAttr(header, "screenWindowCenter", "v2f", append(float32Bytes(0), float32Bytes(0)...))
	writeEXRAttr(header, "screenWindowWidth", "float", float32Bytes(1))
	header.WriteByte(0)

	lineBytes := img.Width * 4 * len(channels)
	chunkSize := uint64(8 + lineBytes)
	firstChunk := uint64(header.Len()) + uint64(img.Height)*8

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(header.Bytes()); err != nil {
		return err
	}

	var scratch [8]byte
	for y := 0; y < img.Height; y++ {
		le.PutUint64(scratch[:], firstChunk+uint64(y)*chunkSize)
		if _, err := bw.Write(scratch[:]); err != nil {
			return err
		}
	}

	line := make([]byte, 8+lineBytes)
	for y := 0; y < img.Height; y++ {
		le.PutUint32(line[0:], uint32(int32(y)))
		le.PutUint32(line[4:], uint32(lineBytes))
		pos := 8
		for _, ch := range channels {
			row := ch.Data[y*img.Width : (y+1)*img.Width]
			for _, v := range row {
				le.PutUint32(line[pos:], math.Float32bits(v))
				pos += 4
			}
		}
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeEXRAttr(buf *bytes.Buffer, name, typ string, value []byte) {
	buf.WriteString(name)
	buf.WriteByte(0)
	buf.WriteString(typ)
	buf.WriteByte(0)
	binary.Write(buf, binary.LittleEndian, int32(len(value)))
	buf.Write(value)
}

func float32Bytes(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

// exrCursor walks an in-memory EXR file.
type exrCursor struct {
	data []byte
	pos  int
}

func (c *exrCursor) need(n int) error {
	if n < 0 || c.pos+n > len(c.data) {
		return ErrTruncatedEXRData
	}
	return nil
}

func (c *exrCursor) uint32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *exrCursor) int32() (int32, error) {
	v, err := c.uint32()
	return int32(v), err
}

func (c *exrCursor) cstring() (string, error) {
	end := bytes.IndexByte(c.data[c.pos:], 0)
	if end < 0 {
		return "", ErrTruncatedEXRData
	}
	s := string(c.data[c.pos : c.pos+end])
	c.pos += end + 1
	return s, nil
}

func (c *exrCursor) take(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

type exrHeader struct {
	channels    []string
	compression EXRCompression
	window      [4]int32
	hasWindow   bool
}

// ParseEXR decodes an uncompressed scanline EXR with FLOAT channels.
// Channels are returned in file (alphabetical) order.
func ParseEXR(data []byte) (*EXRImage, error) {
	c := &exrCursor{data: data}

	magic, err := c.uint32()
	if err != nil {
		return nil, ErrTruncatedEXRData
	}
	if magic != exrMagic {
		return nil, ErrInvalidEXRMagic
	}

	version, err := c.uint32()
	if err != nil {
		return nil, ErrTruncatedEXRData
	}
	if version&0xff != exrVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedEXR, version&0xff)
	}
	if version&(exrFlagTiled|exrFlagDeep|exrFlagMultipart) != 0 {
		return nil, fmt.Errorf("%w: flags 0x%x", ErrUnsupportedEXR, version&^0xff)
	}

	hdr, err := parseEXRHeader(c)
	if err != nil {
		return nil, err
	}
	if !hdr.hasWindow || len(hdr.channels) == 0 {
		return nil, fmt.Errorf("%w: missing dataWindow or channels", ErrInvalidEXRImage)
	}
	if hdr.compression != EXRNoCompression {
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupportedEXR, hdr.compression)
	}

	xMin, yMin, xMax, yMax := hdr.window[0], hdr.window[1], hdr.window[2], hdr.window[3]
	width := int(xMax) - int(xMin) + 1
	height := int(yMax) - int(yMin) + 1
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: data window %v", ErrInvalidEXRImage, hdr.window)
	}

	img := &EXRImage{Width: width, Height: height, Channels: make([]EXRChannel, len(hdr.channels))}
	for i, name := range hdr.channels {
		img.Channels[i] = EXRChannel{Name: name, Data: make([]float32, width*height)}
	}

	offsets := make([]uint64, height)
	for y := range offsets {
		b, err := c.take(8)
		if err != nil {
			return nil, fmt.Errorf("%w: offset table", ErrTruncatedEXRData)
		}
		offsets[y] = binary.LittleEndian.Uint64(b)
	}

	lineBytes := width * 4 * len(hdr.channels)
	for _, off := range offsets {
		if off > uint64(len(data)) {
			return nil, fmt.Errorf("%w: chunk offset %d", ErrTruncatedEXRData, off)
		}
		c.pos = int(off)

		lineY, err := c.int32()
		if err != nil {
			return nil, ErrTruncatedEXRData
		}
		size, err := c.int32()
		if err != nil {
			return nil, ErrTruncatedEXRData
		}
		row := int(lineY) - int(yMin)
		if row < 0 || row >= height {
			return nil, fmt.Errorf("%w: scanline %d outside data window", ErrInvalidEXRImage, lineY)
		}
		if int(size) != lineBytes {
			return nil, fmt.Errorf("%w: scanline %d has %d bytes, want %d", ErrInvalidEXRImage, lineY, size, lineBytes)
		}
		line, err := c.take(lineBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: scanline %d", ErrTruncatedEXRData, lineY)
		}

		pos := 0
		for ch := range img.Channels {
			dst := img.Channels[ch].Data[row*width : (row+1)*width]
			for x := range dst {
				dst[x] = math.Float32frombits(binary.LittleEndian.Uint32(line[pos:]))
				pos += 4
			}
		}
	}

	return img, nil
}

func parseEXRHeader(c *exrCursor) (*exrHeader, error) {
	hdr := &exrHeader{}
	for {
		name, err := c.cstring()
		if err != nil {
			return nil, fmt.Errorf("%w: header", ErrTruncatedEXRData)
		}
		if name == "" {
			return hdr, nil
		}
		if _, err := c.cstring(); err != nil {
			return nil, fmt.Errorf("%w: attribute %s", ErrTruncatedEXRData, name)
		}
		size, err := c.int32()
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %s", ErrTruncatedEXRData, name)
		}
		value, err := c.take(int(size))
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %s", ErrTruncatedEXRData, name)
		}

		switch name {
		case "channels":
			if hdr.channels, err = parseEXRChannelList(value); err != nil {
				return nil, err
			}
		case "compression":
			if len(value) != 1 {
				return nil, fmt.Errorf("%w: compression attribute", ErrInvalidEXRImage)
			}
			hdr.compression = EXRCompression(value[0])
		case "dataWindow":
			if len(value) != 16 {
				return nil, fmt.Errorf("%w: dataWindow attribute", ErrInvalidEXRImage)
			}
			for i := range hdr.window {
				hdr.window[i] = int32(binary.LittleEndian.Uint32(value[i*4:]))
			}
			hdr.hasWindow = true
		}
	}
}

func parseEXRChannelList(value []byte) ([]string, error) {
	c := &exrCursor{data: value}
	var names []string
	for {
		name, err := c.cstring()
		if err != nil {
			return nil, fmt.Errorf("%w: channel list", ErrTruncatedEXRData)
		}
		if name == "" {
			return names, nil
		}
		pixelType, err := c.int32()
		if err != nil {
			return nil, fmt.Errorf("%w: channel %s", ErrTruncatedEXRData, name)
		}
		if _, err := c.take(4); err != nil {
			return nil, fmt.Errorf("%w: channel %s", ErrTruncatedEXRData, name)
		}
		xs, err1 := c.int32()
		ys, err2 := c.int32()
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: channel %s", ErrTruncatedEXRData, name)
		}
		if EXRPixelType(pixelType) != EXRPixelFloat {
			return nil, fmt.Errorf("%w: channel %s pixel type %d", ErrUnsupportedEXR, name, pixelType)
		}
		if xs != 1 || ys != 1 {
			return nil, fmt.Errorf("%w: channel %s subsampled", ErrUnsupportedEXR, name)
		}
		names = append(names, name)
	}
}

// ParseEXRFile parses an EXR file from disk.
func ParseEXRFile(path string) (*EXRImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading EXR file: %w", err)
	}
	return ParseEXR(data)
}
