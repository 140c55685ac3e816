package vat

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Faultbox/midgard-vat/pkg/formats"
)

// channelNames are the image channels in buffer component order.
var channelNames = [4]string{"R", "G", "B", "A"}

// WriteFloatImage writes buf as an uncompressed 32-bit float RGBA OpenEXR
// image of width x height pixels. Parent directories are created and an
// existing file is replaced. The file appears at path only once it is
// completely written.
func WriteFloatImage(buf EncodedBuffer, width, height int, path string) error {
	if width <= 0 || height <= 0 || len(buf) != width*height {
		return fmt.Errorf("%w: %d pixels for %dx%d", ErrShapeMismatch, len(buf), width, height)
	}

	planes := buf.Planes(width, height)
	img := &formats.EXRImage{Width: width, Height: height}
	for c, name := range channelNames {
		img.Channels = append(img.Channels, formats.EXRChannel{Name: name, Data: planes[c]})
	}

	return writeAtomic(path, func(w io.Writer) error {
		return formats.EncodeEXR(w, img)
	})
}

// writeAtomic streams write into a temp file next to path and renames it
// into place. On failure the temp file is removed and path is untouched.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriterSize(tmp, 1<<20)
	if err := write(bw); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
