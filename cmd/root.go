package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"imgpress/internal/config"
	"imgpress/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:   "imgpress",
	Short: "imgpress - batch compress and convert images",
	Long: "imgpress compresses and/or converts every image in an input folder and writes the results to an output folder.\n" +
		"Run without flags for the interactive flow, or pass --yes to use flag and IMGPRESS_* environment settings.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// errNoImages ends the command with a failure exit code after the reason
// has already been printed.
var errNoImages = errors.New("no images found")

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stdout, "\n"+cancelStyle.Render("Operation cancelled by user."))
	case errors.Is(err, errNoImages):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, errorStyle.Render("Unexpected error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	config.RegisterFlags(rootCmd.PersistentFlags())
}

var (
	cancelStyle  = lipgloss.NewStyle().Foreground(tui.ColorWarn)
	errorStyle   = lipgloss.NewStyle().Foreground(tui.ColorError)
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccentAlt)
)
