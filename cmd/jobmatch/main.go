// Command jobmatch extracts skills from resumes and ranks job postings
// against them, either from the command line or as an HTTP service.
//
// Usage:
//
//	jobmatch serve [--config configs/development.yaml]
//	jobmatch extract resume.txt
//	jobmatch match --jobs jobs.yaml --min 40 --query backend resume.txt
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/scorer"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/skills"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries state shared by every subcommand once the config is loaded.
type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "jobmatch",
		Short:        "Match resumes against job postings",
		Long:         "Extracts candidate skills from a free-text resume and scores job postings by skill overlap, with filtering, CSV export and an HTTP API.",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.loadConfig()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to YAML config file")

	root.AddCommand(newServeCmd(a), newExtractCmd(a), newMatchCmd(a))
	return root
}

func (a *app) loadConfig() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	a.cfg = cfg
	return nil
}

// matcher builds the extractor and ranker from the matcher config.
func (a *app) matcher() (*skills.Extractor, *ranker.Ranker, error) {
	mc := a.cfg.Matcher
	var opts []skills.Option
	if mc.TablesFile != "" {
		tables, err := skills.LoadTables(mc.TablesFile)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, tables.Options()...)
	}
	opts = append(opts, skills.WithMaxSkills(mc.MaxSkills))

	rk := ranker.New(
		ranker.WithScorer(scorer.New(scorer.WithBonusPerSkill(mc.BonusPerSkill))),
		ranker.WithParallelism(mc.Parallelism),
		ranker.WithBreakdown(true),
	)
	return skills.New(opts...), rk, nil
}

// readResume reads the resume from the file named by args, or from stdin
// when no file or "-" is given.
func readResume(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading resume from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading resume file %s: %w", args[0], err)
	}
	return string(data), nil
}

// loadPostings reads a JSON or YAML job file, or returns the built-in
// sample jobs when path is empty.
func loadPostings(path string) ([]jobs.Posting, error) {
	if path == "" {
		return jobs.Samples(), nil
	}
	return jobs.LoadFile(path)
}
