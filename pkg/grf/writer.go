package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/Faultbox/midgard-vat/pkg/encoding"
)

// File is one entry to pack with Write.
type File struct {
	Name string
	Data []byte
}

// Write packs files into a version 0x200 archive with zlib compressed
// entries. Names are stored EUC-KR encoded with backslash separators.
func Write(w io.Writer, files []File) error {
	var body, table bytes.Buffer
	offset := uint32(0)

	for _, file := range files {
		var compressed bytes.Buffer
		zw := zlib.NewWriter(&compressed)
		if _, err := zw.Write(file.Data); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}

		size := uint32(compressed.Len())
		aligned := (size + 7) &^ 7
		body.Write(compressed.Bytes())
		body.Write(make([]byte, aligned-size))

		name := strings.ReplaceAll(file.Name, "/", `\`)
		table.Write(encoding.UTF8ToEUCKR(name))
		table.WriteByte(0)
		binary.Write(&table, binary.LittleEndian, size)
		binary.Write(&table, binary.LittleEndian, aligned)
		binary.Write(&table, binary.LittleEndian, uint32(len(file.Data)))
		table.WriteByte(flagFile)
		binary.Write(&table, binary.LittleEndian, offset)

		offset += aligned
	}

	var compressedTable bytes.Buffer
	zw := zlib.NewWriter(&compressedTable)
	if _, err := zw.Write(table.Bytes()); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	header := make([]byte, headerSize)
	copy(header, grfMagic)
	binary.LittleEndian.PutUint32(header[30:], offset)
	binary.LittleEndian.PutUint32(header[34:], 0)
	binary.LittleEndian.PutUint32(header[38:], uint32(len(files)+countBias))
	binary.LittleEndian.PutUint32(header[42:], supportedVer)

	var out bytes.Buffer
	out.Write(header)
	out.Write(body.Bytes())
	binary.Write(&out, binary.LittleEndian, uint32(compressedTable.Len()))
	binary.Write(&out, binary.LittleEndian, uint32(table.Len()))
	out.Write(compressedTable.Bytes())

	_, err := w.Write(out.Bytes())
	return err
}

// WriteFile packs files into a new archive at path.
func WriteFile(path string, files []File) error {
	var buf bytes.Buffer
	if err := Write(&buf, files); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
