package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// cli carries the state shared by all subcommands.
type cli struct {
	verbose bool
	log     *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "bondgen",
		Short: "Generate municipal bond certificates from a template and two schedules",
		Long: `bondgen fills a Word certificate template once per bond described by a
maturity schedule and a CUSIP schedule, and packages the results as a zip.

Example Usage:
  bondgen tags certificate.docx
  bondgen schedule maturity maturities.xlsx
  bondgen generate --template certificate.docx --maturity maturities.xlsx \
    --cusip cusips.csv --run run.yaml --out out/`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if c.verbose {
				level = slog.LevelDebug
			}
			c.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newGenerateCmd(c),
		newTagsCmd(c),
		newScheduleCmd(c),
		newWordsCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the bondgen version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bondgen %s\n", version)
		},
	}
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
