// Package grf reads and writes Ragnarok Online GRF archives (version 0x200).
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/Faultbox/midgard-vat/pkg/encoding"
)

const (
	grfMagic      = "Master of Magic"
	headerSize    = 46
	entrySize     = 17
	supportedVer  = 0x200
	countBias     = 7
	flagFile      = 0x01
	flagEncrypted = 0x02
)

// Archive errors.
var (
	ErrInvalidMagic       = errors.New("invalid GRF magic")
	ErrUnsupportedVersion = errors.New("unsupported GRF version")
	ErrNotFound           = errors.New("file not found in GRF")
	ErrEncrypted          = errors.New("encrypted GRF entries are not supported")
)

// Header is the fixed 46-byte archive header.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry locates one file inside the archive.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Archive is an opened GRF. Reads use ReadAt and may run concurrently.
type Archive struct {
	r       io.ReaderAt
	closer  io.Closer
	entries map[string]*Entry
}

// Open opens the archive at path.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	a, err := NewArchive(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// NewArchive reads the header and file table from r.
func NewArchive(r io.ReaderAt) (*Archive, error) {
	var h Header
	if err := binary.Read(io.NewSectionReader(r, 0, headerSize), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if string(h.Magic[:]) != grfMagic {
		return nil, ErrInvalidMagic
	}
	if h.Version != supportedVer {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, h.Version)
	}

	table, err := readTable(r, int64(h.TableOffset)+headerSize)
	if err != nil {
		return nil, fmt.Errorf("reading file table: %w", err)
	}

	a := &Archive{r: r, entries: make(map[string]*Entry)}
	for _, e := range parseTable(table, int(h.FileCount)-int(h.Seed)-countBias) {
		if e.Flags&flagFile != 0 {
			a.entries[e.Name] = e
		}
	}
	return a, nil
}

// Close releases the file opened by Open.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func readTable(r io.ReaderAt, at int64) ([]byte, error) {
	var sizes [8]byte
	if _, err := r.ReadAt(sizes[:], at); err != nil {
		return nil, fmt.Errorf("reading table sizes: %w", err)
	}
	compressed := make([]byte, binary.LittleEndian.Uint32(sizes[0:]))
	if _, err := r.ReadAt(compressed, at+8); err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	return inflate(compressed, binary.LittleEndian.Uint32(sizes[4:]))
}

// parseTable decodes up to count entries. A truncated table yields the
// entries read so far.
func parseTable(table []byte, count int) []*Entry {
	var entries []*Entry
	for i := 0; i < count; i++ {
		end := bytes.IndexByte(table, 0)
		if end < 0 || end+1+entrySize > len(table) {
			break
		}
		name := encoding.NormalizeGRFPath(encoding.EUCKRToUTF8(table[:end]))
		rec := table[end+1:]
		entries = append(entries, &Entry{
			Name:             name,
			CompressedSize:   binary.LittleEndian.Uint32(rec[0:]),
			AlignedSize:      binary.LittleEndian.Uint32(rec[4:]),
			UncompressedSize: binary.LittleEndian.Uint32(rec[8:]),
			Flags:            rec[12],
			Offset:           binary.LittleEndian.Uint32(rec[13:]),
		})
		table = rec[entrySize:]
	}
	return entries
}

func inflate(data []byte, size uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns every file path in the archive, sorted.
func (a *Archive) List() []string {
	names := make([]string, 0, len(a.entries))
	for name := range a.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Find returns the sorted paths with the given extension (".rsm") whose
// base name matches pattern. An empty pattern matches everything; a pattern
// that is not a valid glob falls back to a substring match.
func (a *Archive) Find(ext, pattern string) []string {
	ext = strings.ToLower(ext)
	pattern = strings.ToLower(pattern)

	var found []string
	for _, name := range a.List() {
		if ext != "" && path.Ext(name) != ext {
			continue
		}
		if pattern != "" {
			matched, _ := path.Match(pattern, path.Base(name))
			if !matched && !strings.Contains(name, pattern) {
				continue
			}
		}
		found = append(found, name)
	}
	return found
}

// Stat returns the entry for name.
func (a *Archive) Stat(name string) (Entry, bool) {
	e, ok := a.entries[encoding.NormalizeGRFPath(name)]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Contains reports whether name is in the archive.
func (a *Archive) Contains(name string) bool {
	_, ok := a.Stat(name)
	return ok
}

// Read returns the uncompressed contents of name.
func (a *Archive) Read(name string) ([]byte, error) {
	e, ok := a.Stat(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if e.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%w: %s", ErrEncrypted, name)
	}

	data := make([]byte, e.AlignedSize)
	if _, err := a.r.ReadAt(data, int64(e.Offset)+headerSize); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	// Stored entries are not deflated.
	if e.CompressedSize == e.UncompressedSize {
		return data[:e.UncompressedSize], nil
	}
	out, err := inflate(data[:e.CompressedSize], e.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("inflating %s: %w", name, err)
	}
	return out, nil
}
