package processor

import (
	"errors"
	"fmt"
	"strings"

	"imgpress/pkg/imgutil"
)

type Mode int

const (
	ModeConvertOnly Mode = iota
	ModeCompressConvert
	ModeConvertCompress
	ModeCompressOnly
)

func (m Mode) String() string {
	switch m {
	case ModeCompressConvert:
		return "compress-convert"
	case ModeConvertCompress:
		return "convert-compress"
	case ModeCompressOnly:
		return "compress-only"
	case ModeConvertOnly:
		return "convert-only"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Title is the human-readable mode name shown in menus and headers.
func (m Mode) Title() string {
	switch m {
	case ModeCompressConvert:
		return "Compress + Convert"
	case ModeConvertCompress:
		return "Convert + Compress"
	case ModeCompressOnly:
		return "Compress Only"
	default:
		return "Convert Only"
	}
}

// Compresses reports whether the mode uses a quality setting.
func (m Mode) Compresses() bool {
	return m != ModeConvertOnly
}

// Converts reports whether the mode may change the output format.
func (m Mode) Converts() bool {
	return m != ModeCompressOnly
}

// DefaultSuffix is the filename suffix offered when the user adds one.
func (m Mode) DefaultSuffix() string {
	if m == ModeConvertOnly {
		return "-converted"
	}
	return "-compressed"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compress-convert", "compress_convert":
		return ModeCompressConvert, nil
	case "convert-compress", "convert_compress":
		return ModeConvertCompress, nil
	case "compress-only", "compress_only", "compress":
		return ModeCompressOnly, nil
	case "convert-only", "convert_only", "convert", "":
		return ModeConvertOnly, nil
	default:
		return ModeConvertOnly, fmt.Errorf("unknown mode %q", s)
	}
}

const (
	DefaultQuality       = 80
	DefaultEncodeQuality = 95
)

// Options is the per-run processing configuration. It is built once and
// read by every per-file step.
type Options struct {
	Mode Mode
	// Quality is 1-100; zero means the encoder default.
	Quality int
	// TargetExt is the output extension with its dot; empty keeps the
	// input format.
	TargetExt string
	// Suffix is appended to the output stem; empty keeps the original name.
	Suffix    string
	OutputDir string
}

func (o Options) Validate() error {
	if o.Mode < ModeConvertOnly || o.Mode > ModeCompressOnly {
		return fmt.Errorf("invalid mode %d", int(o.Mode))
	}
	if o.Quality < 0 || o.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", o.Quality)
	}
	if o.TargetExt != "" && imgutil.KindForExt(o.TargetExt) == imgutil.KindUnknown {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, o.TargetExt)
	}
	if o.OutputDir == "" {
		return errors.New("output directory required")
	}
	return nil
}

// ImageFile is a validated candidate found by the scanner.
type ImageFile struct {
	Path   string
	Ext    string
	Size   int64
	Width  int
	Height int
	Kind   imgutil.Kind
}

func (f ImageFile) Pixels() int64 {
	return int64(f.Width) * int64(f.Height)
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

type Result struct {
	Input     string
	Output    string
	Status    Status
	BytesIn   int64
	BytesOut  int64
	Reduction float64
	Err       error
}

type Summary struct {
	Successful int
	Skipped    int
	Failed     int
	BytesIn    int64
	BytesOut   int64
}

func (s Summary) Total() int {
	return s.Successful + s.Skipped + s.Failed
}

// Reduction is the size saved across successful files, in percent.
func (s Summary) Reduction() float64 {
	return reduction(s.BytesIn, s.BytesOut)
}

func reduction(before, after int64) float64 {
	if before <= 0 {
		return 0
	}
	return float64(before-after) / float64(before) * 100
}

type EventKind int

const (
	EventStarted EventKind = iota
	EventSkipped
	EventDone
	EventFailed
	EventFinished
)

// ProgressUpdate describes one step of a run. Index is 1-based; Finished
// events carry Index == Total and the final summary.
type ProgressUpdate struct {
	Kind     EventKind
	Index    int
	Total    int
	Name     string
	Output   string
	BytesIn  int64
	BytesOut int64
	Err      error
	Summary  Summary
}

// Observer receives progress updates synchronously on the run goroutine.
type Observer func(ProgressUpdate)

var (
	ErrInputMissing      = errors.New("input folder not found")
	ErrTooLarge          = errors.New("file exceeds size limit")
	ErrTooManyPixels     = errors.New("image exceeds pixel limit")
	ErrCorrupt           = errors.New("invalid image file")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)
