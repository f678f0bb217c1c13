package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/export"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/session"
)

type matchOptions struct {
	jobsFile string
	minScore int
	query    string
	limit    int
	csvPath  string
	json     bool
}

func newMatchCmd(a *app) *cobra.Command {
	opts := &matchOptions{}
	cmd := &cobra.Command{
		Use:   "match [resume-file]",
		Short: "Score a resume against a job collection",
		Long: "Extracts the skills of a resume (file or stdin) and scores every job in the collection, " +
			"printing the jobs at or above --min sorted by score. --csv writes the export rows instead, " +
			"in collection order and without the text query.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("min") {
				opts.minScore = a.cfg.Matcher.DefaultMinScore
			}
			return runMatch(cmd, a, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.jobsFile, "jobs", "j", "", "JSON or YAML job collection (default: built-in samples)")
	cmd.Flags().IntVarP(&opts.minScore, "min", "m", 0, "Minimum score to include (default: matcher.defaultMinScore)")
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "Case-insensitive text filter over title and company")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (0 means all)")
	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "Write matches as CSV to this path (\"-\" for stdout)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print results as JSON")
	cmd.MarkFlagsMutuallyExclusive("csv", "json")
	return cmd
}

func runMatch(cmd *cobra.Command, a *app, opts *matchOptions, args []string) error {
	resume, err := readResume(cmd, args)
	if err != nil {
		return err
	}
	postings, err := loadPostings(opts.jobsFile)
	if err != nil {
		return err
	}
	extractor, rk, err := a.matcher()
	if err != nil {
		return err
	}

	sess := session.New(postings, session.WithExtractor(extractor), session.WithRanker(rk)).WithResume(resume)
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if opts.csvPath != "" {
		rows, err := sess.Export(ctx, opts.minScore)
		if err != nil {
			return err
		}
		return writeCSV(out, opts.csvPath, rows)
	}

	results, err := sess.Results(ctx, ranker.Filter{
		MinScore: opts.minScore,
		Query:    opts.query,
		Limit:    opts.limit,
	})
	if err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"skills": sess.Skills(),
			"jobs":   results,
		})
	}

	fmt.Fprintf(out, "Skills: %s\n\n", strings.Join(sess.Skills(), ", "))
	if len(results) == 0 {
		fmt.Fprintln(out, "No jobs found matching your criteria.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tID\tTITLE\tCOMPANY\tLOCATION")
	for _, sj := range results {
		fmt.Fprintf(tw, "%d%%\t%s\t%s\t%s\t%s\n", sj.Score, sj.ID, sj.Title, sj.Company, sj.Location)
	}
	return tw.Flush()
}

func writeCSV(stdout io.Writer, path string, rows []export.Row) error {
	if path == "-" {
		return export.WriteCSV(stdout, rows)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "Wrote %d jobs to %s\n", len(rows), path)
	return nil
}
