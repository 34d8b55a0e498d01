package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"imgpress/internal/processor"
	"imgpress/internal/tui"
)

// Prompter asks the interactive questions of a run. Input is read by a
// single goroutine so a pending question can be abandoned when the context
// is cancelled.
type Prompter struct {
	out   io.Writer
	lines chan string
	err   error
}

func New(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{out: out, lines: make(chan string)}
	go p.read(in)
	return p
}

func (p *Prompter) read(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		p.lines <- scanner.Text()
	}
	p.err = scanner.Err()
	if p.err == nil {
		p.err = io.EOF
	}
	close(p.lines)
}

// ask prints question and waits for one line of input.
func (p *Prompter) ask(ctx context.Context, question string) (string, error) {
	fmt.Fprint(p.out, question)
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			fmt.Fprintln(p.out)
			return "", p.err
		}
		return strings.TrimSpace(line), nil
	}
}

type option struct {
	label string
	hint  string
}

// menu prints numbered options and returns the 1-based choice. An empty
// answer selects def.
func (p *Prompter) menu(ctx context.Context, heading, intro string, options []option, def int) (int, error) {
	fmt.Fprintf(p.out, "\n%s\n\n%s\n", headingStyle.Render(heading), intro)
	for i, opt := range options {
		line := fmt.Sprintf("  %s %-18s %s", numberStyle.Render(fmt.Sprintf("%d.", i+1)), opt.label, hintStyle.Render(opt.hint))
		if i+1 == def {
			line += " " + recommendStyle.Render("[RECOMMENDED]")
		}
		fmt.Fprintln(p.out, line)
	}

	question := fmt.Sprintf("\nEnter your choice (1-%d, or press Enter for recommended): ", len(options))
	for {
		answer, err := p.ask(ctx, question)
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return def, nil
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return n, nil
		}
		p.invalid(fmt.Sprintf("Invalid choice. Please select 1-%d, or press Enter for recommended.", len(options)))
	}
}

func (p *Prompter) invalid(msg string) {
	fmt.Fprintln(p.out, errorStyle.Render(msg))
}

var modeOrder = []processor.Mode{
	processor.ModeCompressConvert,
	processor.ModeConvertCompress,
	processor.ModeCompressOnly,
	processor.ModeConvertOnly,
}

func (p *Prompter) Mode(ctx context.Context) (processor.Mode, error) {
	n, err := p.menu(ctx, "Processing Mode Selection", "Choose processing mode:", []option{
		{processor.ModeCompressConvert.Title(), "(compress quality, then convert format)"},
		{processor.ModeConvertCompress.Title(), "(convert format first, then compress quality)"},
		{processor.ModeCompressOnly.Title(), "(reduce quality, keep original format)"},
		{processor.ModeConvertOnly.Title(), "(change format, keep original quality)"},
	}, 4)
	if err != nil {
		return processor.ModeConvertOnly, err
	}
	return modeOrder[n-1], nil
}

// Quality offers the presets and a custom value in 1..100.
func (p *Prompter) Quality(ctx context.Context) (int, error) {
	n, err := p.menu(ctx, "Compression Quality", "Select compression quality:", []option{
		{"High Quality", "(90% quality, ~30% size reduction)"},
		{"Medium Quality", "(80% quality, ~45% size reduction)"},
		{"Low Quality", "(60% quality, ~65% size reduction)"},
		{"Custom", "(enter your own quality 1-100)"},
	}, 2)
	if err != nil {
		return 0, err
	}

	switch n {
	case 1:
		return 90, nil
	case 2:
		return processor.DefaultQuality, nil
	case 3:
		return 60, nil
	}

	for {
		answer, err := p.ask(ctx, "Enter quality percentage (1-100): ")
		if err != nil {
			return 0, err
		}
		if q, err := strconv.Atoi(answer); err == nil && q >= 1 && q <= 100 {
			return q, nil
		}
		p.invalid("Please enter a number between 1 and 100.")
	}
}

var formatOrder = []string{"", ".jpg", ".png", ".webp"}

// Format returns the target extension, or "" to keep the input format.
func (p *Prompter) Format(ctx context.Context) (string, error) {
	n, err := p.menu(ctx, "Output Format Selection", "Select output format:", []option{
		{"Keep Original", "(same as input format)"},
		{"JPEG (.jpg)", "(best compression, no transparency)"},
		{"PNG (.png)", "(lossless, supports transparency)"},
		{"WebP (.webp)", "(modern format, excellent compression)"},
	}, 1)
	if err != nil {
		return "", err
	}
	return formatOrder[n-1], nil
}

// Suffix asks whether to rename outputs. An empty result keeps the
// original file names.
func (p *Prompter) Suffix(ctx context.Context, mode processor.Mode) (string, error) {
	n, err := p.menu(ctx, "Output Filename Settings", "Choose output filename format:", []option{
		{"Add suffix", "to filename"},
		{"Keep original", "filename (no suffix)"},
	}, 1)
	if err != nil {
		return "", err
	}
	if n == 2 {
		return "", nil
	}

	def := mode.DefaultSuffix()
	fmt.Fprintf(p.out, "\n%s\nExample: '%s' will rename 'photo.jpg' to 'photo%s.jpg'\n", hintStyle.Render("Enter suffix for output files:"), def, def)
	answer, err := p.ask(ctx, fmt.Sprintf("Suffix (press Enter for '%s'): ", def))
	if err != nil {
		return "", err
	}
	return processor.NormalizeSuffix(answer, def), nil
}

// Confirm asks a yes/no question until it gets an answer.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	fmt.Fprintf(p.out, "\n%s\n", warnStyle.Render(question))
	for {
		answer, err := p.ask(ctx, "Continue with processing? (y/n): ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		p.invalid("Please enter 'y' or 'n'.")
	}
}

// ChooseConflict implements processor.ConflictChooser.
func (p *Prompter) ChooseConflict(ctx context.Context, name string) (processor.Choice, error) {
	fmt.Fprintf(p.out, "\n%s\n", warnStyle.Render(fmt.Sprintf("File '%s' already exists in the output folder.", name)))
	for {
		answer, err := p.ask(ctx, "Choose: (r)eplace, (s)kip, or (n)ew name? ")
		if err != nil {
			return processor.ChoiceSkip, err
		}
		switch strings.ToLower(answer) {
		case "r", "replace":
			return processor.ChoiceReplace, nil
		case "s", "skip":
			return processor.ChoiceSkip, nil
		case "n", "new", "new name":
			return processor.ChoiceNew, nil
		}
		p.invalid("Please enter 'r', 's', or 'n'.")
	}
}

// Collect runs the settings questions in order and builds the run options.
func (p *Prompter) Collect(ctx context.Context, outputDir string) (processor.Options, error) {
	opts := processor.Options{OutputDir: outputDir}

	mode, err := p.Mode(ctx)
	if err != nil {
		return opts, err
	}
	opts.Mode = mode

	if mode.Compresses() {
		if opts.Quality, err = p.Quality(ctx); err != nil {
			return opts, err
		}
	}
	if mode.Converts() {
		if opts.TargetExt, err = p.Format(ctx); err != nil {
			return opts, err
		}
	}
	if opts.Suffix, err = p.Suffix(ctx, mode); err != nil {
		return opts, err
	}

	return opts, opts.Validate()
}

var (
	headingStyle   = lipgloss.NewStyle().Foreground(tui.ColorAccentAlt).Bold(true)
	numberStyle    = lipgloss.NewStyle().Foreground(tui.ColorAccent)
	hintStyle      = lipgloss.NewStyle().Foreground(tui.ColorDim)
	recommendStyle = lipgloss.NewStyle().Bold(true)
	warnStyle      = lipgloss.NewStyle().Foreground(tui.ColorWarn).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(tui.ColorError)
)
