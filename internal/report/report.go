package report

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"imgpress/internal/processor"
)

// Report is the YAML record of one run.
type Report struct {
	GeneratedAt time.Time `yaml:"generated_at"`
	Mode        string    `yaml:"mode"`
	Quality     int       `yaml:"quality,omitempty"`
	Format      string    `yaml:"format"`
	Suffix      string    `yaml:"suffix"`
	OutputDir   string    `yaml:"output_dir"`
	Summary     Totals    `yaml:"summary"`
	Files       []File    `yaml:"files"`
}

type Totals struct {
	Successful int     `yaml:"successful"`
	Skipped    int     `yaml:"skipped"`
	Failed     int     `yaml:"failed"`
	BytesIn    int64   `yaml:"bytes_in"`
	BytesOut   int64   `yaml:"bytes_out"`
	Reduction  float64 `yaml:"reduction_percent"`
}

type File struct {
	Input     string  `yaml:"input"`
	Output    string  `yaml:"output,omitempty"`
	Status    string  `yaml:"status"`
	BytesIn   int64   `yaml:"bytes_in,omitempty"`
	BytesOut  int64   `yaml:"bytes_out,omitempty"`
	Reduction float64 `yaml:"reduction_percent,omitempty"`
	Error     string  `yaml:"error,omitempty"`
}

func New(opts processor.Options, summary processor.Summary, results []processor.Result, now time.Time) Report {
	format := "original"
	if opts.TargetExt != "" && opts.Mode.Converts() {
		format = opts.TargetExt
	}
	quality := 0
	if opts.Mode.Compresses() {
		quality = opts.Quality
	}

	r := Report{
		GeneratedAt: now.UTC(),
		Mode:        opts.Mode.String(),
		Quality:     quality,
		Format:      format,
		Suffix:      opts.Suffix,
		OutputDir:   opts.OutputDir,
		Summary: Totals{
			Successful: summary.Successful,
			Skipped:    summary.Skipped,
			Failed:     summary.Failed,
			BytesIn:    summary.BytesIn,
			BytesOut:   summary.BytesOut,
			Reduction:  round1(summary.Reduction()),
		},
		Files: make([]File, 0, len(results)),
	}

	for _, res := range results {
		f := File{
			Input:     res.Input,
			Output:    res.Output,
			Status:    string(res.Status),
			BytesIn:   res.BytesIn,
			BytesOut:  res.BytesOut,
			Reduction: round1(res.Reduction),
		}
		if res.Err != nil {
			f.Error = res.Err.Error()
		}
		r.Files = append(r.Files, f)
	}
	return r
}

// Write stores r as YAML at path.
func Write(fs afero.Fs, path string, r Report) error {
	data, err := yaml.Marshal(&r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
