package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"imgpress/internal/config"
	"imgpress/internal/logging"
	"imgpress/internal/tui"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the images that would be processed without writing anything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		log := logging.New(cfg.Verbose, cmd.ErrOrStderr())
		defer func() { _ = log.Sync() }()

		s := &session{cfg: cfg, log: log, fs: afero.NewOsFs(), out: cmd.OutOrStdout()}
		files, err := s.scan()
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, tui.RenderImageList(files))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
