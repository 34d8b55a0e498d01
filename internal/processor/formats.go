package processor

import (
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/gen2brain/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"imgpress/pkg/imgutil"
)

// capability describes what an output format can store.
type capability struct {
	alpha   bool
	palette bool
	lossy   bool
	gray    bool
	cmyk    bool
	// known is false for formats the pipeline passes through untouched.
	known bool
}

var capabilities = map[imgutil.Kind]capability{
	imgutil.KindJPEG: {lossy: true, gray: true, cmyk: true, known: true},
	imgutil.KindBMP:  {gray: true, known: true},
	imgutil.KindPNG:  {alpha: true, palette: true, gray: true, known: true},
	imgutil.KindWebP: {alpha: true, lossy: true, gray: true, known: true},
	imgutil.KindTIFF: {alpha: true, palette: true, gray: true, cmyk: true},
}

func capabilityFor(ext string) capability {
	return capabilities[imgutil.KindForExt(ext)]
}

// convertFor adapts img to what the format behind ext can hold.
func convertFor(img image.Image, ext string) image.Image {
	c := capabilityFor(ext)
	if !c.known {
		return img
	}

	mode := imgutil.Classify(img)
	switch {
	case mode == imgutil.ModeRGBA && !c.alpha:
		return imgutil.Flatten(img)
	case mode == imgutil.ModePalette && !c.palette:
		// WebP keeps palette transparency, JPEG and BMP drop it.
		if c.alpha && imgutil.HasTransparency(img) {
			return imgutil.ToRGBA(img)
		}
		return imgutil.ToRGB(img)
	case mode == imgutil.ModePalette && imgutil.HasTransparency(img):
		return imgutil.ToRGBA(img)
	case mode == imgutil.ModeCMYK && !c.cmyk:
		return imgutil.ToRGB(img)
	}
	return img
}

// normalizeFor prepares img for a quality-driven encode in the format
// behind ext.
func normalizeFor(img image.Image, ext string) image.Image {
	c := capabilityFor(ext)
	mode := imgutil.Classify(img)

	switch {
	case c.lossy:
		switch mode {
		case imgutil.ModeRGB, imgutil.ModeGray:
			return img
		case imgutil.ModeRGBA:
			return imgutil.Flatten(img)
		default:
			return imgutil.ToRGB(img)
		}
	case c.palette && c.known:
		if mode == imgutil.ModePalette && imgutil.DistinctColors(img, imgutil.MaxPaletteColors) > imgutil.MaxPaletteColors {
			if imgutil.HasTransparency(img) {
				return imgutil.ToRGBA(img)
			}
			return imgutil.ToRGB(img)
		}
	}
	return img
}

// encode writes img in the format behind ext. Quality 0 selects the
// encoder default.
func encode(w io.Writer, img image.Image, ext string, quality int) error {
	if quality <= 0 {
		quality = DefaultEncodeQuality
	}

	switch imgutil.KindForExt(ext) {
	case imgutil.KindJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case imgutil.KindPNG:
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		if imgutil.Classify(img) == imgutil.ModePalette &&
			imgutil.DistinctColors(img, imgutil.MaxPaletteColors) <= imgutil.MaxPaletteColors {
			enc.CompressionLevel = png.BestCompression
		}
		return enc.Encode(w, img)
	case imgutil.KindWebP:
		return webp.Encode(w, img, webp.Options{Quality: quality, Method: 6})
	case imgutil.KindBMP:
		return bmp.Encode(w, img)
	case imgutil.KindTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	}
}
