package processor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"imgpress/pkg/imgutil"
)

// Runner processes a batch of images one at a time.
type Runner struct {
	fs          afero.Fs
	log         *zap.Logger
	chooser     ConflictChooser
	observer    Observer
	transformer Transformer
	results     []Result
}

func NewRunner(fs afero.Fs, log *zap.Logger, chooser ConflictChooser) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{fs: fs, log: log, chooser: chooser}
}

// SetObserver registers fn to receive progress updates. Updates are
// delivered on the goroutine calling Run.
func (r *Runner) SetObserver(fn Observer) {
	r.observer = fn
}

// Results returns the per-file outcomes of the last Run.
func (r *Runner) Results() []Result {
	return r.results
}

// Run processes files with opts. Per-file failures are counted, not
// returned; the error is non-nil only when the output folder cannot be
// created, a conflict prompt fails, or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, files []ImageFile, opts Options) (Summary, error) {
	summary := Summary{}
	r.results = nil

	if err := opts.Validate(); err != nil {
		return summary, err
	}
	if err := r.fs.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return summary, fmt.Errorf("create output folder: %w", err)
	}

	namer := NewNamer(r.fs, opts.OutputDir, r.chooser)
	targetExt := ""
	if opts.Mode.Converts() {
		targetExt = opts.TargetExt
	}

	total := len(files)
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		name := filepath.Base(file.Path)
		r.emit(ProgressUpdate{Kind: EventStarted, Index: i + 1, Total: total, Name: name})

		dest, ok, err := namer.Resolve(ctx, file.Path, targetExt, opts.Suffix)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			return summary, fmt.Errorf("choose output for %s: %w", name, err)
		}
		if !ok {
			summary.Skipped++
			r.results = append(r.results, Result{Input: file.Path, Status: StatusSkipped})
			r.emit(ProgressUpdate{Kind: EventSkipped, Index: i + 1, Total: total, Name: name})
			continue
		}

		before, after, err := r.processFile(ctx, file, dest, opts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return summary, ctxErr
			}
			summary.Failed++
			r.log.Error("failed to process image", zap.String("file", name), zap.Error(err))
			r.results = append(r.results, Result{Input: file.Path, Output: dest, Status: StatusFailed, Err: err})
			r.emit(ProgressUpdate{Kind: EventFailed, Index: i + 1, Total: total, Name: name, Output: dest, Err: err})
			continue
		}

		summary.Successful++
		summary.BytesIn += before
		summary.BytesOut += after
		r.results = append(r.results, Result{
			Input:     file.Path,
			Output:    dest,
			Status:    StatusSuccess,
			BytesIn:   before,
			BytesOut:  after,
			Reduction: reduction(before, after),
		})
		r.emit(ProgressUpdate{
			Kind:     EventDone,
			Index:    i + 1,
			Total:    total,
			Name:     name,
			Output:   dest,
			BytesIn:  before,
			BytesOut: after,
		})
	}

	r.emit(ProgressUpdate{Kind: EventFinished, Index: total, Total: total, Summary: summary})
	return summary, nil
}

func (r *Runner) emit(update ProgressUpdate) {
	if r.observer != nil {
		r.observer(update)
	}
}

// processFile writes one converted image to dest and returns the input and
// output sizes.
func (r *Runner) processFile(ctx context.Context, file ImageFile, dest string, opts Options) (int64, int64, error) {
	img, before, err := r.load(file)
	if err != nil {
		return 0, 0, err
	}

	prepared := r.transformer.Transform(img, opts.Mode, file.Ext, filepath.Ext(dest), opts.Quality)

	tmp, err := afero.TempFile(r.fs, filepath.Dir(dest), ".imgpress-*.tmp")
	if err != nil {
		return 0, 0, err
	}
	tmpName := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = r.fs.Remove(tmpName)
		}
	}()

	if err := r.transformer.Encode(tmp, prepared); err != nil {
		_ = tmp.Close()
		return 0, 0, fmt.Errorf("encode %s: %w", prepared.Ext, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, 0, err
	}

	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if err := replaceFile(r.fs, tmpName, dest); err != nil {
		return 0, 0, err
	}
	renamed = true

	info, err := r.fs.Stat(dest)
	if err != nil {
		return 0, 0, err
	}
	return before, info.Size(), nil
}

// load decodes file and applies its EXIF orientation.
func (r *Runner) load(file ImageFile) (image.Image, int64, error) {
	src, err := r.fs.Open(file.Path)
	if err != nil {
		return nil, 0, err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, 0, err
	}

	orientation := imgutil.OrientationNormal
	if file.Kind.CarriesExif() {
		if orientation, err = imgutil.ReadOrientation(src); err != nil {
			r.log.Debug("ignoring unreadable exif", zap.String("file", filepath.Base(file.Path)), zap.Error(err))
			orientation = imgutil.OrientationNormal
		}
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, 0, err
	}
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return imgutil.ApplyOrientation(img, orientation), info.Size(), nil
}

func replaceFile(fs afero.Fs, tmpPath, destPath string) error {
	if err := fs.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := fs.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return fs.Rename(tmpPath, destPath)
}
