package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type extractOptions struct {
	json   bool
	counts bool
}

func newExtractCmd(a *app) *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract [resume-file]",
		Short: "Print the skills extracted from a resume",
		Long:  "Reads a resume from a file (or stdin when the file is omitted or \"-\") and prints the extracted skills, one per line, in rank order.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, a, opts, args)
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print skills as JSON")
	cmd.Flags().BoolVar(&opts.counts, "counts", false, "Print each skill with its frequency in the resume")
	return cmd
}

func runExtract(cmd *cobra.Command, a *app, opts *extractOptions, args []string) error {
	resume, err := readResume(cmd, args)
	if err != nil {
		return err
	}
	extractor, _, err := a.matcher()
	if err != nil {
		return err
	}
	found := extractor.Extract(resume)
	out := cmd.OutOrStdout()

	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"skills": found, "count": len(found)})
	}
	if opts.counts {
		freq := extractor.Frequencies(resume)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, s := range found {
			fmt.Fprintf(tw, "%s\t%d\n", s, freq[s])
		}
		return tw.Flush()
	}
	for _, s := range found {
		fmt.Fprintln(out, s)
	}
	return nil
}
