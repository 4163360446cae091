package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gss-opera-matcher/internal/config"
	"github.com/gss-opera-matcher/internal/db"
	"github.com/gss-opera-matcher/internal/embeddings"
	"github.com/gss-opera-matcher/internal/match"
	"github.com/gss-opera-matcher/internal/pipeline"
	"github.com/gss-opera-matcher/internal/tabular"
)

type matchOptions struct {
	gssPath   string
	operaPath string
	outPath   string
	persist   bool
	quiet     bool
}

// createMatchCmd creates the match subcommand
func createMatchCmd() *cobra.Command {
	var opts matchOptions

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match a GSS export against an Opera export",
		Long: `Load a GSS survey export (.csv) and an Opera export (.csv, or a .txt activity
log), pair their rows and write the result table.`,
		Example: `  matcher match --gss gss.csv --opera opera.txt -o results.csv
  matcher match --gss gss.csv --opera opera.csv -a "Jaro-Winkler" --date-tolerance-days 2 --show-all-matches`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.gssPath, "gss", "", "GSS survey file")
	flags.StringVar(&opts.operaPath, "opera", "", "Opera export or activity log")
	flags.StringVarP(&opts.outPath, "out", "o", "", "write results as CSV to this path")
	flags.BoolVar(&opts.persist, "persist", false, "store the run in Postgres")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress progress output")
	addMatchFlags(flags)
	_ = cmd.MarkFlagRequired("gss")
	_ = cmd.MarkFlagRequired("opera")

	return cmd
}

func runMatch(ctx context.Context, stdout, stderr io.Writer, opts matchOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := matchConfig(settings)
	if err != nil {
		return err
	}

	primary, secondary, err := loadInputs(ctx, opts.gssPath, opts.operaPath)
	if err != nil {
		return err
	}

	caps := config.LoadCapabilities()
	semantic := embeddings.NewHandle(embeddings.DefaultLoader(caps))
	defer semantic.Close()

	var progress match.ProgressFunc
	if !opts.quiet {
		progress = progressPrinter(stderr)
	}

	ec := match.EngineConfig{Match: cfg, Capabilities: caps, Semantic: semantic}
	rs, err := pipeline.Run(ctx, ec, primary, secondary, progress)
	if err != nil {
		return fmt.Errorf("match failed: %w", err)
	}

	if opts.outPath != "" {
		if err := tabular.SaveResults(opts.outPath, rs); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %d rows to %s\n", rs.Len(), opts.outPath)
	}

	if err := renderSummary(stdout, rs.Summarize(), primary.Len()); err != nil {
		return err
	}

	if opts.persist {
		conn, err := db.NewConnection(ctx, "")
		if err != nil {
			return err
		}
		defer conn.Close()

		run, err := db.NewStore(conn).SaveRun(ctx, cfg, primary.Len(), secondary.Len(), rs)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Stored run %s\n", run.ID)
	}
	return nil
}

// loadInputs reads both files concurrently.
func loadInputs(ctx context.Context, gssPath, operaPath string) (primary, secondary *match.Table, err error) {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := tabular.Load(gssPath)
		if err != nil {
			return fmt.Errorf("GSS input: %w", err)
		}
		primary = t
		return nil
	})
	g.Go(func() error {
		t, err := tabular.Load(operaPath)
		if err != nil {
			return fmt.Errorf("Opera input: %w", err)
		}
		secondary = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return primary, secondary, nil
}

// progressPrinter prints progress on one line, at most once per five
// percent.
func progressPrinter(w io.Writer) match.ProgressFunc {
	last := -1
	return func(percent int) {
		if percent < 100 && last >= 0 && percent-last < 5 {
			return
		}
		last = percent
		fmt.Fprintf(w, "\rMatching... %3d%%", percent)
		if percent >= 100 {
			fmt.Fprintln(w)
		}
	}
}
