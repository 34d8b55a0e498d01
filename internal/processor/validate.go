package processor

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"imgpress/pkg/imgutil"
)

const (
	MaxFileSize = 100 << 20
	MaxPixels   = 50_000_000
)

// Validator guards the pipeline against oversized and unreadable inputs.
type Validator struct {
	fs        afero.Fs
	log       *zap.Logger
	maxSize   int64
	maxPixels int64
}

func NewValidator(fs afero.Fs, log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{fs: fs, log: log, maxSize: MaxFileSize, maxPixels: MaxPixels}
}

// Validate reports whether path is safe to process. Rejections are logged
// and never returned as errors.
func (v *Validator) Validate(path string) bool {
	_, ok := v.accept(path)
	return ok
}

// accept is Validate that also returns the inspected file. The scanner
// goes through it so both paths log rejections the same way.
func (v *Validator) accept(path string) (ImageFile, bool) {
	file, err := v.Inspect(path)
	if err != nil {
		v.report(path, err)
		return file, false
	}
	return file, true
}

// Inspect runs the same checks as Validate and describes the file without
// logging.
func (v *Validator) Inspect(path string) (ImageFile, error) {
	file := ImageFile{Path: path, Ext: strings.ToLower(filepath.Ext(path))}

	info, err := v.fs.Stat(path)
	if err != nil {
		return file, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	file.Size = info.Size()
	if file.Size > v.maxSize {
		return file, fmt.Errorf("%w: %.1fMB > %dMB", ErrTooLarge, megabytes(file.Size), v.maxSize>>20)
	}

	f, err := v.fs.Open(path)
	if err != nil {
		return file, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer f.Close()

	kind, err := imgutil.SniffReader(f)
	if err != nil {
		return file, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if kind == imgutil.KindUnknown {
		return file, fmt.Errorf("%w: unrecognized file signature", ErrCorrupt)
	}
	file.Kind = kind

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return file, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return file, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	file.Width, file.Height = cfg.Width, cfg.Height
	if file.Pixels() > v.maxPixels {
		return file, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return file, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if _, _, err := image.Decode(f); err != nil {
		return file, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return file, nil
}

func (v *Validator) report(path string, err error) {
	name := filepath.Base(path)
	switch {
	case isLimitError(err):
		v.log.Warn("skipping image over limit", zap.String("file", name), zap.Error(err))
	default:
		v.log.Error("invalid image file", zap.String("file", name), zap.Error(err))
	}
}

func isLimitError(err error) bool {
	return errors.Is(err, ErrTooLarge) || errors.Is(err, ErrTooManyPixels)
}

func megabytes(n int64) float64 {
	return float64(n) / (1 << 20)
}
