package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"imgpress/internal/config"
	"imgpress/internal/logging"
	"imgpress/internal/processor"
	"imgpress/internal/prompt"
	"imgpress/internal/report"
	"imgpress/internal/tui"
)

func runRoot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(cfg.Verbose, cmd.ErrOrStderr())
	defer func() { _ = log.Sync() }()

	s := &session{
		cfg: cfg,
		log: log,
		fs:  afero.NewOsFs(),
		in:  cmd.InOrStdin(),
		out: cmd.OutOrStdout(),
		tty: isTerminal(cmd.OutOrStdout()),
	}
	return s.run(cmd.Context())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// session is one interactive run: scan, confirm, collect settings,
// process, summarize.
type session struct {
	cfg      config.Config
	log      *zap.Logger
	fs       afero.Fs
	in       io.Reader
	out      io.Writer
	tty      bool
	prompter *prompt.Prompter
}

func (s *session) prompts() *prompt.Prompter {
	if s.prompter == nil {
		s.prompter = prompt.New(s.in, s.out)
	}
	return s.prompter
}

func (s *session) run(ctx context.Context) error {
	fmt.Fprintln(s.out, tui.Banner())

	files, err := s.scan()
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, tui.RenderImageList(files))

	var opts processor.Options
	if s.cfg.Yes {
		if opts, err = s.cfg.Options(s.log); err != nil {
			return err
		}
	} else {
		ok, err := s.prompts().Confirm(ctx, "Are these the correct images to process?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(s.out, "\n"+cancelStyle.Render("Operation cancelled by user."))
			return nil
		}
		if opts, err = s.prompts().Collect(ctx, s.cfg.Output); err != nil {
			return err
		}
	}

	summary, results, err := s.process(ctx, files, opts)
	if err != nil {
		return err
	}

	if s.cfg.Report != "" {
		r := report.New(opts, summary, results, time.Now())
		if err := report.Write(s.fs, s.cfg.Report, r); err != nil {
			return err
		}
	}

	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, tui.RenderReport(summary))
	return nil
}

// scan lists the input images, printing why when there are none.
func (s *session) scan() ([]processor.ImageFile, error) {
	scanner := processor.NewScanner(s.fs, processor.NewValidator(s.fs, s.log))
	files, err := scanner.Scan(s.cfg.Input)
	switch {
	case errors.Is(err, processor.ErrInputMissing):
		fmt.Fprintln(s.out, errorStyle.Render(fmt.Sprintf("Input folder '%s' not found.", absPath(s.cfg.Input))))
		fmt.Fprintln(s.out, "Create it and add the images you want to process.")
		return nil, errNoImages
	case err != nil:
		return nil, err
	case len(files) == 0:
		fmt.Fprintln(s.out, errorStyle.Render("No supported image files found in the input folder!"))
		fmt.Fprintf(s.out, "Supported formats: %s\n", strings.Join(processor.SupportedExtensions, ", "))
		return nil, errNoImages
	}
	return files, nil
}

func (s *session) chooser() processor.ConflictChooser {
	choice, ask, _ := s.cfg.ConflictChoice()
	if !ask || s.cfg.Yes {
		return processor.FixedChooser(choice)
	}
	return s.prompts()
}

func (s *session) process(ctx context.Context, files []processor.ImageFile, opts processor.Options) (processor.Summary, []processor.Result, error) {
	heading := tui.Heading(opts)
	chooser := s.chooser()

	if !s.cfg.Plain && s.tty {
		if summary, results, err, ok := s.processLive(ctx, files, opts, heading, chooser); ok {
			return summary, results, err
		}
		s.log.Debug("live view unavailable, using plain output")
	}

	fmt.Fprintln(s.out, "\n"+headingStyle.Render(heading)+"\n")
	runner := processor.NewRunner(s.fs, s.log, chooser)
	runner.SetObserver(tui.NewPlain(s.out).Observe)
	summary, err := runner.Run(ctx, files, opts)
	return summary, runner.Results(), err
}

// processLive runs the batch under the bubbletea view. ok is false when
// the program could not start, before any file was touched.
func (s *session) processLive(ctx context.Context, files []processor.ImageFile, opts processor.Options, heading string, chooser processor.ConflictChooser) (processor.Summary, []processor.Result, error, bool) {
	updates := make(chan processor.ProgressUpdate, 2*len(files)+1)
	ready := make(chan struct{})
	model := tui.NewModel(heading, len(files), updates).WithReady(ready)
	program := tea.NewProgram(model,
		tea.WithInput(nil),
		tea.WithOutput(s.out),
		tea.WithoutSignalHandler(),
	)

	uiDone := make(chan struct{})
	go func() {
		if _, err := program.Run(); err != nil {
			s.log.Debug("progress view stopped", zap.Error(err))
		}
		close(uiDone)
	}()

	select {
	case <-ready:
	case <-uiDone:
		return processor.Summary{}, nil, nil, false
	}

	if _, fixed := chooser.(processor.FixedChooser); !fixed {
		chooser = pausingChooser{program: program, next: chooser}
	}
	runner := processor.NewRunner(s.fs, liveLogger(s.log), chooser)
	runner.SetObserver(func(u processor.ProgressUpdate) { updates <- u })

	summary, err := runner.Run(ctx, files, opts)
	close(updates)
	<-uiDone
	return summary, runner.Results(), err, true
}

// liveLogger silences per-file errors while the live view owns the
// terminal. The view already shows them through failed events.
func liveLogger(log *zap.Logger) *zap.Logger {
	return log.WithOptions(zap.IncreaseLevel(zapcore.DPanicLevel))
}

// pausingChooser hands the terminal back for a conflict prompt while the
// live view is running.
type pausingChooser struct {
	program *tea.Program
	next    processor.ConflictChooser
}

func (c pausingChooser) ChooseConflict(ctx context.Context, name string) (processor.Choice, error) {
	_ = c.program.ReleaseTerminal()
	defer func() { _ = c.program.RestoreTerminal() }()
	return c.next.ChooseConflict(ctx, name)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
