package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Choice is the answer to an existing-output conflict.
type Choice int

const (
	ChoiceReplace Choice = iota
	ChoiceSkip
	ChoiceNew
)

func (c Choice) String() string {
	switch c {
	case ChoiceReplace:
		return "replace"
	case ChoiceSkip:
		return "skip"
	case ChoiceNew:
		return "rename"
	default:
		return fmt.Sprintf("choice(%d)", int(c))
	}
}

// ParseChoice accepts the --on-conflict values other than "ask".
func ParseChoice(s string) (Choice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "replace", "r":
		return ChoiceReplace, nil
	case "skip", "s":
		return ChoiceSkip, nil
	case "rename", "new", "n":
		return ChoiceNew, nil
	default:
		return ChoiceSkip, fmt.Errorf("unknown conflict choice %q", s)
	}
}

// ConflictChooser decides what to do when a destination already exists.
// Implementations only return one of the three choices; invalid answers are
// handled inside the chooser.
type ConflictChooser interface {
	ChooseConflict(ctx context.Context, name string) (Choice, error)
}

// FixedChooser answers every conflict the same way.
type FixedChooser Choice

func (c FixedChooser) ChooseConflict(ctx context.Context, _ string) (Choice, error) {
	if err := ctx.Err(); err != nil {
		return ChoiceSkip, err
	}
	return Choice(c), nil
}

type Namer struct {
	fs        afero.Fs
	outputDir string
	chooser   ConflictChooser
}

func NewNamer(fs afero.Fs, outputDir string, chooser ConflictChooser) *Namer {
	if chooser == nil {
		chooser = FixedChooser(ChoiceSkip)
	}
	return &Namer{fs: fs, outputDir: outputDir, chooser: chooser}
}

// Resolve picks the destination for inputPath. ok is false when the user
// chose to skip the file. The returned path is free on disk unless the
// user chose to replace it.
func (n *Namer) Resolve(ctx context.Context, inputPath, targetExt, suffix string) (string, bool, error) {
	ext := targetExt
	if ext == "" {
		ext = filepath.Ext(inputPath)
	}
	ext = normalizeExt(ext)
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))

	if suffix == "" {
		return n.resolvePlain(ctx, stem, ext)
	}
	return n.resolveSuffixed(ctx, stem+suffix, ext)
}

// resolvePlain asks once; a new name takes the first free counter.
func (n *Namer) resolvePlain(ctx context.Context, stem, ext string) (string, bool, error) {
	path := n.join(stem, ext)
	exists, err := n.exists(path)
	if err != nil {
		return "", false, err
	}
	if !exists {
		return path, true, nil
	}

	choice, err := n.chooser.ChooseConflict(ctx, filepath.Base(path))
	if err != nil {
		return "", false, err
	}
	switch choice {
	case ChoiceReplace:
		return path, true, nil
	case ChoiceSkip:
		return "", false, nil
	}

	for counter := 2; ; counter++ {
		path = n.join(fmt.Sprintf("%s-%d", stem, counter), ext)
		exists, err := n.exists(path)
		if err != nil {
			return "", false, err
		}
		if !exists {
			return path, true, nil
		}
	}
}

// resolveSuffixed asks at every collision, moving to the next counter on
// each new-name answer.
func (n *Namer) resolveSuffixed(ctx context.Context, base, ext string) (string, bool, error) {
	path := n.join(base, ext)
	for counter := 2; ; counter++ {
		exists, err := n.exists(path)
		if err != nil {
			return "", false, err
		}
		if !exists {
			return path, true, nil
		}

		choice, err := n.chooser.ChooseConflict(ctx, filepath.Base(path))
		if err != nil {
			return "", false, err
		}
		switch choice {
		case ChoiceReplace:
			return path, true, nil
		case ChoiceSkip:
			return "", false, nil
		}
		path = n.join(fmt.Sprintf("%s-%d", base, counter), ext)
	}
}

func (n *Namer) join(stem, ext string) string {
	return filepath.Join(n.outputDir, stem+ext)
}

func (n *Namer) exists(path string) (bool, error) {
	ok, err := afero.Exists(n.fs, path)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", path, err)
	}
	return ok, nil
}

// NormalizeSuffix applies the default for an empty suffix and adds a dash
// separator when the user left one out.
func NormalizeSuffix(suffix, def string) string {
	suffix = strings.TrimSpace(suffix)
	switch {
	case suffix == "":
		return def
	case strings.HasPrefix(suffix, "-"), strings.HasPrefix(suffix, "_"):
		return suffix
	default:
		return "-" + suffix
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
