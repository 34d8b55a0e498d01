package imgutil

import (
	"image"
	"image/color"
	"image/draw"
)

// ColorMode is the pixel layout of a decoded image, independent of the
// concrete image.Image type the decoder picked.
type ColorMode int

const (
	ModeRGB ColorMode = iota
	// ModeRGBA covers every layout with an alpha channel, including
	// gray+alpha, which the Go decoders return as NRGBA.
	ModeRGBA
	ModeGray
	ModePalette
	ModeCMYK
)

func (m ColorMode) String() string {
	switch m {
	case ModeRGB:
		return "RGB"
	case ModeRGBA:
		return "RGBA"
	case ModeGray:
		return "L"
	case ModePalette:
		return "P"
	case ModeCMYK:
		return "CMYK"
	default:
		return "unknown"
	}
}

// MaxPaletteColors is the most colors an indexed image can hold.
const MaxPaletteColors = 256

type opaquer interface {
	Opaque() bool
}

// Classify reports the color mode of img.
func Classify(img image.Image) ColorMode {
	switch m := img.(type) {
	case *image.Gray, *image.Gray16:
		return ModeGray
	case *image.Paletted:
		return ModePalette
	case *image.CMYK:
		return ModeCMYK
	case *image.YCbCr:
		return ModeRGB
	case *image.RGBA:
		if m.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	case *image.RGBA64:
		if m.Opaque() {
			return ModeRGB
		}
		return ModeRGBA
	case *image.NRGBA, *image.NRGBA64, *image.NYCbCrA, *image.Alpha, *image.Alpha16:
		return ModeRGBA
	}

	if o, ok := img.(opaquer); ok && o.Opaque() {
		return ModeRGB
	}
	return ModeRGBA
}

// HasTransparency reports whether img carries transparency. For paletted
// images this looks at the palette entries, the equivalent of a tRNS chunk.
func HasTransparency(img image.Image) bool {
	if p, ok := img.(*image.Paletted); ok {
		for _, c := range p.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	}
	if o, ok := img.(opaquer); ok {
		return !o.Opaque()
	}
	return Classify(img) == ModeRGBA
}

// Flatten composites img onto an opaque white background.
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.White, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

// ToRGB drops any alpha information and returns an opaque RGB image.
// Transparent pixels keep their color values instead of being composited.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)

	if p, ok := img.(*image.Paletted); ok {
		lut := make([]color.RGBA, len(p.Palette))
		for i, c := range p.Palette {
			n := color.NRGBAModel.Convert(c).(color.NRGBA)
			lut[i] = color.RGBA{R: n.R, G: n.G, B: n.B, A: 0xff}
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				idx := int(p.ColorIndexAt(x, y))
				if idx < len(lut) {
					dst.SetRGBA(x, y, lut[idx])
				}
			}
		}
		return dst
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			n := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x, y, color.RGBA{R: n.R, G: n.G, B: n.B, A: 0xff})
		}
	}
	return dst
}

// ToRGBA expands img into a full non-premultiplied RGBA image.
func ToRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

// DistinctColors counts the distinct pixel values of img, stopping once the
// count exceeds limit. Paletted images are counted by index.
func DistinctColors(img image.Image, limit int) int {
	b := img.Bounds()

	if p, ok := img.(*image.Paletted); ok {
		var seen [MaxPaletteColors]bool
		count := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				idx := p.ColorIndexAt(x, y)
				if !seen[idx] {
					seen[idx] = true
					count++
				}
			}
		}
		return count
	}

	seen := make(map[color.NRGBA64]struct{}, limit+1)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			seen[c] = struct{}{}
			if len(seen) > limit {
				return len(seen)
			}
		}
	}
	return len(seen)
}
