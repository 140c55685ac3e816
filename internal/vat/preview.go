package vat

import (
	"image"
	"image/color"
	"io"

	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// minPreviewSide is the size the longer side of a preview is scaled up to.
const minPreviewSide = 256

// PreviewImage renders buf as a 16-bit RGBA image. When ranges is non-nil
// each color channel is remapped from its range into [0, 1] first. Values
// are clamped and alpha is opaque. Small images are enlarged with nearest
// neighbor sampling so single texels stay visible.
func PreviewImage(buf EncodedBuffer, width, height int, ranges *AxisRanges) image.Image {
	img := image.NewNRGBA64(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := buf[y*width+x]
			var c [3]uint16
			for axis := range c {
				v := px[axis]
				if ranges != nil {
					v = Remap(v, ranges[axis].Min, ranges[axis].Max, 0, 1)
				}
				c[axis] = unitToUint16(v)
			}
			img.SetNRGBA64(x, y, color.NRGBA64{R: c[0], G: c[1], B: c[2], A: 0xffff})
		}
	}

	scale := 1
	if longest := max(width, height); longest < minPreviewSide {
		scale = (minPreviewSide + longest - 1) / longest
	}
	if scale == 1 {
		return img
	}

	dst := image.NewNRGBA64(image.Rect(0, 0, width*scale, height*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func unitToUint16(v float32) uint16 {
	switch {
	case !(v > 0):
		return 0
	case v >= 1:
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}

// WritePreview writes a TIFF preview of buf to path. See PreviewImage.
func WritePreview(buf EncodedBuffer, width, height int, ranges *AxisRanges, path string) error {
	if width <= 0 || height <= 0 || len(buf) != width*height {
		return ErrShapeMismatch
	}
	img := PreviewImage(buf, width, height, ranges)
	return writeAtomic(path, func(w io.Writer) error {
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	})
}
