package processor

import (
	"image"
	"io"
)

// Prepared is an image ready to be written, with the format and quality
// its encoder should use.
type Prepared struct {
	Image   image.Image
	Ext     string
	Quality int
}

// Transformer applies the per-mode conversion and quality rules.
type Transformer struct{}

// Transform prepares img for output. An empty outputExt keeps the input
// format; compress-only always does.
func (Transformer) Transform(img image.Image, mode Mode, inputExt, outputExt string, quality int) Prepared {
	inputExt = normalizeExt(inputExt)
	outputExt = normalizeExt(outputExt)
	if outputExt == "" || mode == ModeCompressOnly {
		outputExt = inputExt
	}

	switch mode {
	case ModeCompressOnly:
		img = normalizeFor(img, outputExt)
	case ModeConvertCompress:
		img = convertFor(img, outputExt)
		img = normalizeFor(img, outputExt)
	case ModeCompressConvert:
		img = normalizeFor(img, inputExt)
		img = convertFor(img, outputExt)
	default:
		img = convertFor(img, outputExt)
		quality = 0
	}

	return Prepared{Image: img, Ext: outputExt, Quality: quality}
}

// Encode writes p to w.
func (Transformer) Encode(w io.Writer, p Prepared) error {
	return encode(w, p.Image, p.Ext, p.Quality)
}
