package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dgallion1/bondgen/internal/schedule"
	"github.com/dgallion1/bondgen/internal/template"
	"github.com/dgallion1/bondgen/internal/words"
	"github.com/spf13/cobra"
)

func newTagsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tags <template.docx>",
		Short: "List and validate the {{TAG}} placeholders of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := template.FormatFor(args[0])
			if err != nil {
				return describe(err)
			}
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			m, err := template.Extract(format, data)
			if err != nil {
				return describe(err)
			}
			c.log.Debug("template read", "template_id", m.TemplateID, "hash", m.TemplateHash)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TAG\tCOUNT\tREQUIRED")
			for _, t := range m.Tags {
				fmt.Fprintf(tw, "%s\t%d\t%t\n", t.Name, t.Count, t.Required)
			}
			return tw.Flush()
		},
	}
}

func newScheduleCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Parse a schedule and print its rows",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "maturity <file>",
			Short: "Parse a maturity schedule",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := readInput(args[0])
				if err != nil {
					return err
				}
				sched, err := schedule.ParseMaturity(data, filepath.Base(args[0]))
				if err != nil {
					return describe(err)
				}
				c.log.Debug("columns mapped", "header_row", sched.Diagnostics.HeaderRow, "columns", sched.Diagnostics.Columns)
				printMaturity(cmd.OutOrStdout(), sched)
				return nil
			},
		},
		&cobra.Command{
			Use:   "cusip <file>",
			Short: "Parse a CUSIP schedule",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := readInput(args[0])
				if err != nil {
					return err
				}
				sched, err := schedule.ParseCusip(data, filepath.Base(args[0]))
				if err != nil {
					return describe(err)
				}
				c.log.Debug("columns mapped", "header_row", sched.Diagnostics.HeaderRow, "columns", sched.Diagnostics.Columns)
				printCusip(cmd.OutOrStdout(), sched)
				return nil
			},
		},
	)
	return cmd
}

func printMaturity(w io.Writer, s *schedule.MaturitySchedule) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tSTATUS\tMATURITY\tPRINCIPAL\tRATE\tSERIES\tNOTES")
	for _, r := range s.AllRows {
		principal, rate := "", ""
		if r.PrincipalAmount != nil {
			principal = strconv.FormatInt(*r.PrincipalAmount, 10)
		}
		if r.CouponRate != nil {
			rate = r.CouponRate.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", r.RowNumber, r.Status,
			r.MaturityDate, principal, rate, r.Series, notes(r.Errors, r.Warnings))
	}
	tw.Flush()
	if s.DatedDate != "" {
		fmt.Fprintf(w, "\nDated date: %s\n", s.DatedDate)
	}
	printSummary(w, s.Summary, s.Warnings)
}

func printCusip(w io.Writer, s *schedule.CusipSchedule) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tSTATUS\tMATURITY\tCUSIP\tSERIES\tNOTES")
	for _, r := range s.AllRows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.RowNumber, r.Status,
			r.MaturityDate, r.Cusip, r.Series, notes(r.Errors, r.Warnings))
	}
	tw.Flush()
	printSummary(w, s.Summary, s.Warnings)
}

func printSummary(w io.Writer, sum schedule.Summary, warnings []string) {
	fmt.Fprintf(w, "\n%d rows: %d valid, %d warnings, %d errors, %d skipped\n",
		sum.Total, sum.Valid, sum.Warnings, sum.Errors, sum.Skipped)
	for _, msg := range warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}

func notes(errs, warnings []string) string {
	return strings.Join(append(append([]string(nil), errs...), warnings...), "; ")
}

func newWordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "words <amount>",
		Short: "Spell a whole-dollar amount the way certificates print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.ReplaceAll(strings.TrimPrefix(args[0], "$"), ",", "")
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("%q is not a whole-dollar amount", args[0])
			}
			text, err := words.Dollars(n)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
