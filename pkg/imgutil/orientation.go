package imgutil

import (
	"errors"
	"image"
	"image/draw"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	exif "github.com/dsoprea/go-exif/v3"
)

// Orientation is the value of the EXIF Orientation tag (1-8).
type Orientation int

const (
	OrientationNormal     Orientation = 1
	OrientationFlipH      Orientation = 2
	OrientationRotate180  Orientation = 3
	OrientationFlipV      Orientation = 4
	OrientationTranspose  Orientation = 5
	OrientationRotate270  Orientation = 6
	OrientationTransverse Orientation = 7
	OrientationRotate90   Orientation = 8
)

// ReadOrientation looks up the EXIF Orientation tag in rs. A file without
// EXIF data, or without the tag, reports OrientationNormal and no error.
func ReadOrientation(rs io.ReadSeeker) (Orientation, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return OrientationNormal, err
	}

	// The container is searched for the TIFF header of the APP1/eXIf block.
	raw, err := exif.SearchAndExtractExifWithReader(rs)
	if err != nil {
		if isNoExif(err) {
			return OrientationNormal, nil
		}
		return OrientationNormal, err
	}

	tags, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return OrientationNormal, err
	}

	for _, tag := range tags {
		// IFD1 describes the embedded thumbnail.
		if tag.TagName != "Orientation" || tag.IfdPath == "IFD1" {
			continue
		}
		if values, ok := tag.Value.([]uint16); ok && len(values) > 0 {
			o := Orientation(values[0])
			if o >= OrientationNormal && o <= OrientationRotate90 {
				return o, nil
			}
		}
	}

	return OrientationNormal, nil
}

// ApplyOrientation rotates and flips img so that it displays upright for
// orientation o. The returned image keeps the color mode of img.
func ApplyOrientation(img image.Image, o Orientation) image.Image {
	var out *image.NRGBA
	switch o {
	case OrientationFlipH:
		out = imaging.FlipH(img)
	case OrientationRotate180:
		out = imaging.Rotate180(img)
	case OrientationFlipV:
		out = imaging.FlipV(img)
	case OrientationTranspose:
		out = imaging.Transpose(img)
	case OrientationRotate270:
		out = imaging.Rotate270(img)
	case OrientationTransverse:
		out = imaging.Transverse(img)
	case OrientationRotate90:
		out = imaging.Rotate90(img)
	default:
		return img
	}

	return restoreMode(img, out)
}

// restoreMode converts the NRGBA result of an imaging transform back into
// the layout of src.
func restoreMode(src image.Image, out *image.NRGBA) image.Image {
	b := out.Bounds()
	switch s := src.(type) {
	case *image.Gray:
		dst := image.NewGray(b)
		draw.Draw(dst, b, out, b.Min, draw.Src)
		return dst
	case *image.Gray16:
		dst := image.NewGray16(b)
		draw.Draw(dst, b, out, b.Min, draw.Src)
		return dst
	case *image.Paletted:
		dst := image.NewPaletted(b, s.Palette)
		draw.Draw(dst, b, out, b.Min, draw.Src)
		return dst
	}

	switch Classify(src) {
	case ModeRGB, ModeCMYK:
		dst := image.NewRGBA(b)
		draw.Draw(dst, b, out, b.Min, draw.Src)
		return dst
	default:
		return out
	}
}

func isNoExif(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exif.ErrNoExif) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}
