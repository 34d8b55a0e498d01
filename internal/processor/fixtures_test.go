package processor

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func opaqueImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: 0x80, A: 0xff})
		}
	}
	return img
}

func transparentImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 0xff, G: uint8(x), B: uint8(y), A: uint8((x + y) % 256)})
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func tiffBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode tiff: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, fs afero.Fs, path string, data []byte) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func decodeFile(t *testing.T, fs afero.Fs, path string) (image.Image, string) {
	t.Helper()
	f, err := fs.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img, format
}

// exifBlock is an APP1 payload holding a single IFD0 Orientation entry.
func exifBlock(orientation uint16) []byte {
	var tiffHdr bytes.Buffer
	tiffHdr.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiffHdr, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiffHdr, binary.LittleEndian, uint16(1))
	_ = binary.Write(&tiffHdr, binary.LittleEndian, uint16(0x0112))
	_ = binary.Write(&tiffHdr, binary.LittleEndian, uint16(3))
	_ = binary.Write(&tiffHdr, binary.LittleEndian, uint32(1))
	_ = binary.Write(&tiffHdr, binary.LittleEndian, orientation)
	_ = binary.Write(&tiffHdr, binary.LittleEndian, uint16(0))
	_ = binary.Write(&tiffHdr, binary.LittleEndian, uint32(0))

	return append([]byte("Exif\x00\x00"), tiffHdr.Bytes()...)
}

// withOrientation splices an APP1 EXIF segment carrying the Orientation tag
// right after the SOI marker of a JPEG stream.
func withOrientation(data []byte, orientation uint16) []byte {
	exif := exifBlock(orientation)

	var buf bytes.Buffer
	buf.Write(data[:2])
	buf.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(exif)+2))
	buf.Write(exif)
	buf.Write(data[2:])
	return buf.Bytes()
}

func bmpBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatalf("encode bmp: %v", err)
	}
	return buf.Bytes()
}
