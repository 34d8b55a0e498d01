package config

import (
	"errors"
	"testing"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"imgpress/internal/processor"
)

func parse(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("imgpress", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(parse(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Input != "./input" || cfg.Output != "./output" {
		t.Errorf("folders = %q, %q", cfg.Input, cfg.Output)
	}
	if cfg.Mode != "convert-only" || cfg.Quality != 80 || cfg.Format != "original" || cfg.OnConflict != "ask" {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("IMGPRESS_INPUT", "/photos")
	t.Setenv("IMGPRESS_QUALITY", "55")
	t.Setenv("IMGPRESS_ON_CONFLICT", "skip")
	t.Setenv("IMGPRESS_MODE", "compress-only")

	cfg, err := Load(parse(t, "--mode", "convert-compress", "-y", "--keep-name"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Input != "/photos" || cfg.Quality != 55 || cfg.OnConflict != "skip" {
		t.Errorf("env values not applied: %+v", cfg)
	}
	if cfg.Mode != "convert-compress" {
		t.Errorf("mode = %q, flag should win over env", cfg.Mode)
	}
	if !cfg.Yes || !cfg.KeepName {
		t.Errorf("bool flags not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	base, err := Load(parse(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mode", func(c *Config) { c.Mode = "shrink" }},
		{"quality low", func(c *Config) { c.Quality = 0 }},
		{"quality high", func(c *Config) { c.Quality = 101 }},
		{"format", func(c *Config) { c.Format = "gif" }},
		{"conflict", func(c *Config) { c.OnConflict = "merge" }},
		{"output", func(c *Config) { c.Output = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestOptions(t *testing.T) {
	cfg := Config{Input: "in", Output: "out", Mode: "convert-compress", Quality: 70, Format: "webp", Suffix: "small", OnConflict: "ask"}
	opts, err := cfg.Options(nil)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	want := processor.Options{Mode: processor.ModeConvertCompress, Quality: 70, TargetExt: ".webp", Suffix: "-small", OutputDir: "out"}
	if opts != want {
		t.Errorf("opts = %+v, want %+v", opts, want)
	}

	cfg = Config{Input: "in", Output: "out", Mode: "convert-only", Quality: 70, Format: "original", KeepName: true, OnConflict: "ask"}
	opts, err = cfg.Options(nil)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	want = processor.Options{Mode: processor.ModeConvertOnly, OutputDir: "out"}
	if opts != want {
		t.Errorf("opts = %+v, want %+v", opts, want)
	}
}

func TestOptionsCompressOnlyDropsFormat(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := Config{Input: "in", Output: "out", Mode: "compress-only", Quality: 60, Format: "png", OnConflict: "ask"}

	opts, err := cfg.Options(zap.New(core))
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.TargetExt != "" || opts.Suffix != "-compressed" || opts.Quality != 60 {
		t.Errorf("opts = %+v", opts)
	}
	if logs.FilterMessage("ignoring output format for compress-only mode").Len() != 1 {
		t.Error("dropped format not reported")
	}
}

func TestOptionsRejectsUnknownFormat(t *testing.T) {
	cfg := Config{Input: "in", Output: "out", Mode: "convert-only", Quality: 80, Format: "gif", OnConflict: "ask"}
	if _, err := cfg.Options(nil); !errors.Is(err, processor.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestConflictChoice(t *testing.T) {
	tests := []struct {
		in     string
		choice processor.Choice
		ask    bool
	}{
		{"ask", processor.ChoiceSkip, true},
		{"", processor.ChoiceSkip, true},
		{"replace", processor.ChoiceReplace, false},
		{"rename", processor.ChoiceNew, false},
		{"skip", processor.ChoiceSkip, false},
	}
	for _, tt := range tests {
		choice, ask, err := Config{OnConflict: tt.in}.ConflictChoice()
		if err != nil || choice != tt.choice || ask != tt.ask {
			t.Errorf("ConflictChoice(%q) = %v, %v, %v", tt.in, choice, ask, err)
		}
	}
}
