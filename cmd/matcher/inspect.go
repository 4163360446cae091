package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gss-opera-matcher/internal/dates"
	"github.com/gss-opera-matcher/internal/itr"
	"github.com/gss-opera-matcher/internal/normalize"
)

// createInspectCmd creates the inspect command group, which shows how
// single values are interpreted by the matcher.
func createInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show how names, dates and ITR scores are read",
	}

	var compound bool
	nameCmd := &cobra.Command{
		Use:   "name <name>...",
		Short: "Normalize names and show their phonetic codes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			for _, arg := range args {
				rows = append(rows, inspectName(arg, compound))
			}
			return renderTable(cmd.OutOrStdout(),
				[]string{"Input", "Normalized", "Canonical First", "Soundex", "Metaphone", "Alt Metaphone"}, rows)
		},
	}
	nameCmd.Flags().BoolVar(&compound, "compound", false, "join surname particles")

	dateCmd := &cobra.Command{
		Use:   "date <value>...",
		Short: "Parse dates the way match columns are parsed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			for _, arg := range args {
				rows = append(rows, inspectDate(arg))
			}
			return renderTable(cmd.OutOrStdout(), []string{"Input", "Date"}, rows)
		},
	}

	itrCmd := &cobra.Command{
		Use:   "itr <score>...",
		Short: "Bucket intent-to-return scores",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(args))
			for _, arg := range args {
				rows = append(rows, inspectITR(arg))
			}
			return renderTable(cmd.OutOrStdout(), []string{"Input", "ITR"}, rows)
		},
	}

	cmd.AddCommand(nameCmd, dateCmd, itrCmd)
	return cmd
}

func inspectName(input string, compound bool) []string {
	normalized := normalize.Name(input, compound)
	primary, secondary := normalize.DoubleMetaphone(normalized)
	return []string{
		input,
		normalized,
		normalize.CanonicalFirstName(normalized),
		normalize.Soundex(normalized),
		primary,
		secondary,
	}
}

func inspectDate(input string) []string {
	d, ok := dates.Parse(input)
	if !ok {
		return []string{input, "(unparseable)"}
	}
	return []string{input, d.String()}
}

func inspectITR(input string) []string {
	bucket, ok := itr.Bucket(input)
	if !ok {
		return []string{input, "(none)"}
	}
	return []string{input, strconv.Itoa(bucket)}
}
