package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/dgallion1/bondgen/internal/config"
	"github.com/dgallion1/bondgen/internal/pipeline"
	"github.com/spf13/cobra"
)

type generateFlags struct {
	template  string
	maturity  string
	cusip     string
	run       string
	prefix    string
	start     int
	datedDate string
	issuer    string
	out       string
	preview   bool
}

func newGenerateCmd(c *cli) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Fill the template for every bond and write the zip archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.template, "template", "", "Certificate template (.docx)")
	flags.StringVar(&f.maturity, "maturity", "", "Maturity schedule (.xlsx or .csv)")
	flags.StringVar(&f.cusip, "cusip", "", "CUSIP schedule (.xlsx or .csv)")
	flags.StringVar(&f.run, "run", "", "YAML run file with issuer values and numbering")
	flags.StringVar(&f.prefix, "prefix", "", "Bond number prefix (overrides the run file)")
	flags.IntVar(&f.start, "start", 0, "First bond number (overrides the run file)")
	flags.StringVar(&f.datedDate, "dated-date", "", "Dated date YYYY-MM-DD (overrides the run file)")
	flags.StringVar(&f.issuer, "issuer", "", "Issuer name (overrides the run file)")
	flags.StringVar(&f.out, "out", ".", "Directory the archive is written to")
	flags.BoolVar(&f.preview, "preview", false, "Print the first certificate as text instead of writing the archive")
	for _, name := range []string{"template", "maturity", "cusip"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

// request builds the pipeline request from the flags. Flags set on the
// command line win over the run file.
func (f *generateFlags) request(cmd *cobra.Command) (pipeline.Request, error) {
	var run config.Run
	if f.run != "" {
		r, err := config.LoadRun(f.run)
		if err != nil {
			return pipeline.Request{}, err
		}
		run = r
	}
	flags := cmd.Flags()
	if flags.Changed("prefix") {
		run.Numbering.Prefix = f.prefix
	}
	if flags.Changed("start") {
		run.Numbering.StartingNumber = f.start
	}
	if flags.Changed("dated-date") {
		run.DatedDate = f.datedDate
	}
	if flags.Changed("issuer") {
		run.IssuerName = f.issuer
	}
	if err := run.Validate(); err != nil {
		return pipeline.Request{}, err
	}

	req := pipeline.Request{
		TemplateName: filepath.Base(f.template),
		MaturityName: filepath.Base(f.maturity),
		CusipName:    filepath.Base(f.cusip),
		Numbering:    run.Numbering,
		DatedDate:    run.DatedDate,
		Info:         run.Supplementary,
	}
	var err error
	if req.Template, err = readInput(f.template); err != nil {
		return req, err
	}
	if req.Maturity, err = readInput(f.maturity); err != nil {
		return req, err
	}
	if req.Cusip, err = readInput(f.cusip); err != nil {
		return req, err
	}
	return req, nil
}

func (c *cli) runGenerate(cmd *cobra.Command, f *generateFlags) error {
	req, err := f.request(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if f.preview {
		res, err := pipeline.Preview(cmd.Context(), req)
		if err != nil {
			return describe(err)
		}
		for _, w := range res.Warnings {
			c.log.Warn("schedule warning", "warning", w)
		}
		fmt.Fprintf(out, "Bond %s (1 of %d)\n\n", res.Bond.BondNumber, res.Total)
		for _, line := range res.Lines {
			fmt.Fprintln(out, line)
		}
		return nil
	}

	start := time.Now()
	res, err := pipeline.Run(cmd.Context(), req, func(stage pipeline.Stage, partial *pipeline.Output) {
		c.log.Debug("stage", "stage", stage)
	})
	if err != nil {
		return describe(err)
	}
	for _, w := range slices.Concat(res.Maturity.Warnings, res.Cusip.Warnings) {
		c.log.Warn("schedule warning", "warning", w)
	}

	if err := os.MkdirAll(f.out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(f.out, res.ArchiveName)
	if err := os.WriteFile(path, res.Archive, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	c.log.Info("archive written", "path", path, "bonds", len(res.Bonds),
		"bytes", len(res.Archive), "duration_ms", time.Since(start).Milliseconds())
	fmt.Fprintf(out, "%d certificates written to %s\n", len(res.Bonds), path)
	return nil
}

// describe prefixes pipeline errors with their code.
func describe(err error) error {
	if be := bonderr.As(err); be != nil {
		return fmt.Errorf("%s: %s", be.Code, be.Message)
	}
	return err
}
