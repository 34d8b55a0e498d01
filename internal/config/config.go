package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"imgpress/internal/processor"
)

// Config holds every setting that can come from flags or IMGPRESS_*
// environment variables.
type Config struct {
	Input      string `mapstructure:"input"`       // folder scanned for images
	Output     string `mapstructure:"output"`      // destination folder
	Mode       string `mapstructure:"mode"`        // compress-convert, convert-compress, compress-only, convert-only
	Quality    int    `mapstructure:"quality"`     // 1-100, compress modes only
	Format     string `mapstructure:"format"`      // original, jpg, png, webp
	Suffix     string `mapstructure:"suffix"`      // empty means the mode default
	KeepName   bool   `mapstructure:"keep-name"`   // write outputs without a suffix
	OnConflict string `mapstructure:"on-conflict"` // ask, replace, skip, rename
	Yes        bool   `mapstructure:"yes"`         // skip confirmation and settings prompts
	Plain      bool   `mapstructure:"plain"`       // line output instead of the live view
	Report     string `mapstructure:"report"`      // optional YAML report path
	Verbose    bool   `mapstructure:"verbose"`
}

const EnvPrefix = "IMGPRESS"

// RegisterFlags adds the run flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("input", "./input", "folder containing the images to process")
	fs.String("output", "./output", "folder receiving processed images")
	fs.String("mode", "convert-only", "processing mode: compress-convert, convert-compress, compress-only, convert-only")
	fs.Int("quality", processor.DefaultQuality, "compression quality 1-100")
	fs.String("format", "original", "output format: original, jpg, png, webp")
	fs.String("suffix", "", "suffix added to output names (default depends on mode)")
	fs.Bool("keep-name", false, "keep the original file names")
	fs.String("on-conflict", "ask", "existing output files: ask, replace, skip, rename")
	fs.BoolP("yes", "y", false, "use flag and environment settings without prompting")
	fs.Bool("plain", false, "print progress as plain lines")
	fs.String("report", "", "write a YAML run report to this file")
	fs.BoolP("verbose", "v", false, "enable debug logging")
}

// Load merges defaults, environment and flags. Flags set on the command
// line win over the environment.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	v.SetDefault("input", "./input")
	v.SetDefault("output", "./output")
	v.SetDefault("mode", "convert-only")
	v.SetDefault("quality", processor.DefaultQuality)
	v.SetDefault("format", "original")
	v.SetDefault("suffix", "")
	v.SetDefault("keep-name", false)
	v.SetDefault("on-conflict", "ask")
	v.SetDefault("yes", false)
	v.SetDefault("plain", false)
	v.SetDefault("report", "")
	v.SetDefault("verbose", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return fmt.Errorf("input folder must not be empty")
	}
	if strings.TrimSpace(c.Output) == "" {
		return fmt.Errorf("output folder must not be empty")
	}
	if _, err := processor.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", c.Quality)
	}
	if _, err := formatExt(c.Format); err != nil {
		return err
	}
	if _, _, err := c.ConflictChoice(); err != nil {
		return err
	}
	return nil
}

// ConflictChoice reports the fixed answer for existing outputs. ask is
// true when the user should be prompted instead.
func (c Config) ConflictChoice() (choice processor.Choice, ask bool, err error) {
	v := strings.ToLower(strings.TrimSpace(c.OnConflict))
	if v == "" || v == "ask" {
		return processor.ChoiceSkip, true, nil
	}
	choice, err = processor.ParseChoice(v)
	return choice, false, err
}

// Options maps the configuration onto run options. A target format given
// for compress-only is dropped with a warning.
func (c Config) Options(log *zap.Logger) (processor.Options, error) {
	if err := c.Validate(); err != nil {
		return processor.Options{}, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	mode, _ := processor.ParseMode(c.Mode)
	ext, _ := formatExt(c.Format)

	opts := processor.Options{Mode: mode, OutputDir: c.Output}
	if mode.Compresses() {
		opts.Quality = c.Quality
	}
	if ext != "" {
		if mode.Converts() {
			opts.TargetExt = ext
		} else {
			log.Warn("ignoring output format for compress-only mode", zap.String("format", c.Format))
		}
	}
	if !c.KeepName {
		opts.Suffix = processor.NormalizeSuffix(c.Suffix, mode.DefaultSuffix())
	}

	return opts, opts.Validate()
}

func formatExt(format string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), ".")) {
	case "", "original", "keep":
		return "", nil
	case "jpg", "jpeg":
		return ".jpg", nil
	case "png":
		return ".png", nil
	case "webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("%w: %s", processor.ErrUnsupportedFormat, format)
	}
}
