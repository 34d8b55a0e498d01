package processor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"imgpress/pkg/imgutil"
)

func scanInput(t *testing.T, fs afero.Fs) []ImageFile {
	t.Helper()
	v, _ := newObservedValidator(fs)
	files, err := NewScanner(fs, v).Scan("in")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return files
}

func collect(r *Runner) *[]ProgressUpdate {
	var updates []ProgressUpdate
	r.SetObserver(func(u ProgressUpdate) { updates = append(updates, u) })
	return &updates
}

func TestRunCompressOnlyScenario(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "in/photo.png", pngBytes(t, transparentImage(50, 40)))
	writeFile(t, fs, "in/shot.JPG", jpegBytes(t, opaqueImage(30, 20)))
	writeFile(t, fs, "in/broken.png", []byte("plain text"))

	files := scanInput(t, fs)
	if len(files) != 2 {
		t.Fatalf("scanned %d files, want 2", len(files))
	}

	r := NewRunner(fs, nil, FixedChooser(ChoiceSkip))
	updates := collect(r)

	summary, err := r.Run(context.Background(), files, Options{
		Mode:      ModeCompressOnly,
		Quality:   60,
		TargetExt: ".webp",
		Suffix:    "-compressed",
		OutputDir: "out",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Successful != 2 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Fatalf("summary = %+v, want 2 successful", summary)
	}

	img, format := decodeFile(t, fs, filepath.Join("out", "photo-compressed.png"))
	if format != "png" || img.Bounds().Dx() != 50 || img.Bounds().Dy() != 40 {
		t.Errorf("photo output = %s %v", format, img.Bounds())
	}
	img, format = decodeFile(t, fs, filepath.Join("out", "shot-compressed.jpg"))
	if format != "jpeg" || img.Bounds().Dx() != 30 || img.Bounds().Dy() != 20 {
		t.Errorf("shot output = %s %v", format, img.Bounds())
	}

	var kinds []EventKind
	for _, u := range *updates {
		kinds = append(kinds, u.Kind)
	}
	want := []EventKind{EventStarted, EventDone, EventStarted, EventDone, EventFinished}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, kinds[i], want[i])
		}
	}
	last := (*updates)[len(*updates)-1]
	if last.Summary != summary || last.Index != 2 || last.Total != 2 {
		t.Errorf("finished event = %+v", last)
	}

	results := r.Results()
	if len(results) != 2 || results[0].Status != StatusSuccess || results[0].BytesIn == 0 || results[0].BytesOut == 0 {
		t.Errorf("results = %+v", results)
	}
}

func TestRunRoundTripKeepsDimensions(t *testing.T) {
	fs := afero.NewOsFs()
	dir := t.TempDir()
	src := filepath.Join(dir, "pic.png")
	writeFile(t, fs, src, pngBytes(t, opaqueImage(64, 48)))

	v, _ := newObservedValidator(fs)
	r := NewRunner(fs, nil, FixedChooser(ChoiceNew))

	file, err := v.Inspect(src)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	toJPEG := Options{Mode: ModeConvertOnly, TargetExt: ".jpg", OutputDir: filepath.Join(dir, "jpeg")}
	if s, err := r.Run(context.Background(), []ImageFile{file}, toJPEG); err != nil || s.Successful != 1 {
		t.Fatalf("to jpeg: %+v %v", s, err)
	}

	jpegPath := filepath.Join(dir, "jpeg", "pic.jpg")
	file, err = v.Inspect(jpegPath)
	if err != nil {
		t.Fatalf("Inspect jpeg: %v", err)
	}
	back := Options{Mode: ModeConvertCompress, Quality: 80, TargetExt: ".png", OutputDir: filepath.Join(dir, "png")}
	if s, err := r.Run(context.Background(), []ImageFile{file}, back); err != nil || s.Successful != 1 {
		t.Fatalf("to png: %+v %v", s, err)
	}

	img, format := decodeFile(t, fs, filepath.Join(dir, "png", "pic.png"))
	if format != "png" || img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("round trip = %s %v, want png 64x48", format, img.Bounds())
	}
}

func TestRunSkipsOnConflict(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "in/a.png", pngBytes(t, opaqueImage(4, 4)))
	writeFile(t, fs, "out/a-converted.png", []byte("existing"))

	r := NewRunner(fs, nil, FixedChooser(ChoiceSkip))
	updates := collect(r)

	summary, err := r.Run(context.Background(), scanInput(t, fs), Options{Mode: ModeConvertOnly, Suffix: "-converted", OutputDir: "out"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Skipped != 1 || summary.Successful != 0 {
		t.Fatalf("summary = %+v, want 1 skipped", summary)
	}
	if (*updates)[1].Kind != EventSkipped {
		t.Errorf("second event = %v, want skipped", (*updates)[1].Kind)
	}
	data, _ := afero.ReadFile(fs, "out/a-converted.png")
	if string(data) != "existing" {
		t.Error("skipped file was overwritten")
	}
}

func TestRunCountsFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "in/good.png", pngBytes(t, opaqueImage(4, 4)))
	writeFile(t, fs, "in/gone.png", []byte("garbage"))

	core, logs := observer.New(zap.ErrorLevel)
	r := NewRunner(fs, zap.New(core), nil)
	updates := collect(r)

	files := []ImageFile{
		{Path: "in/gone.png", Ext: ".png", Kind: imgutil.KindPNG},
		{Path: "in/good.png", Ext: ".png", Kind: imgutil.KindPNG},
	}
	summary, err := r.Run(context.Background(), files, Options{Mode: ModeConvertOnly, TargetExt: ".bmp", OutputDir: "out"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 || summary.Successful != 1 {
		t.Fatalf("summary = %+v, want 1 failed and 1 successful", summary)
	}
	if (*updates)[1].Kind != EventFailed || (*updates)[1].Err == nil {
		t.Errorf("failure event = %+v", (*updates)[1])
	}
	if logs.FilterMessage("failed to process image").Len() != 1 {
		t.Error("failure not logged")
	}
	if ok, _ := afero.Exists(fs, "out/gone.bmp"); ok {
		t.Error("failed file left an output")
	}
	if ok, _ := afero.Exists(fs, "out/good.bmp"); !ok {
		t.Error("good file not written")
	}
	assertNoTempFiles(t, fs, "out")
}

func TestRunCancelledBeforeRename(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "in/a.png", pngBytes(t, opaqueImage(8, 8)))
	writeFile(t, fs, "in/b.png", pngBytes(t, opaqueImage(8, 8)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRunner(fs, nil, nil)
	r.SetObserver(func(u ProgressUpdate) {
		if u.Kind == EventStarted {
			cancel()
		}
	})

	summary, err := r.Run(ctx, scanInput(t, fs), Options{Mode: ModeConvertOnly, OutputDir: "out"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if summary.Successful != 0 || summary.Total() != 0 {
		t.Errorf("summary = %+v, want nothing counted", summary)
	}
	if ok, _ := afero.Exists(fs, "out/a.png"); ok {
		t.Error("cancelled write left a destination file")
	}
	assertNoTempFiles(t, fs, "out")
}

func TestRunAppliesOrientation(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "in/cam.jpg", withOrientation(jpegBytes(t, opaqueImage(8, 4)), 6))

	r := NewRunner(fs, nil, nil)
	if _, err := r.Run(context.Background(), scanInput(t, fs), Options{Mode: ModeConvertOnly, TargetExt: ".png", OutputDir: "out"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	img, _ := decodeFile(t, fs, "out/cam.png")
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 8 {
		t.Errorf("bounds = %v, want 4x8", b)
	}
}

func TestRunIgnoresExifLikeBytesInBMP(t *testing.T) {
	fs := afero.NewMemMapFs()
	// Trailing bytes after the pixel array are ignored by the decoder but
	// would match a search for an EXIF header.
	data := append(bmpBytes(t, opaqueImage(8, 4)), exifBlock(6)...)
	writeFile(t, fs, "in/scan.bmp", data)

	r := NewRunner(fs, nil, nil)
	if _, err := r.Run(context.Background(), scanInput(t, fs), Options{Mode: ModeConvertOnly, TargetExt: ".png", OutputDir: "out"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	img, _ := decodeFile(t, fs, "out/scan.png")
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("bounds = %v, want 8x4", b)
	}
}

func TestRunRejectsInvalidOptions(t *testing.T) {
	r := NewRunner(afero.NewMemMapFs(), nil, nil)
	if _, err := r.Run(context.Background(), nil, Options{Quality: 101, OutputDir: "out"}); err == nil {
		t.Error("quality 101 accepted")
	}
	if _, err := r.Run(context.Background(), nil, Options{TargetExt: ".gif", OutputDir: "out"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func assertNoTempFiles(t *testing.T, fs afero.Fs, dir string) {
	t.Helper()
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
