// Package ranker scores a job collection against one resume and applies the
// threshold and text filters that decide what the caller sees.
package ranker

import (
	"context"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/scorer"
)

// ScoredJob is a posting paired with its match score.
type ScoredJob struct {
	jobs.Posting
	Score     int               `json:"score"`
	Breakdown *scorer.Breakdown `json:"breakdown,omitempty"`
}

// Filter selects which scored jobs are shown.
type Filter struct {
	MinScore int    `json:"minScore"`
	Query    string `json:"query"`
	// Limit caps the result length; zero means no cap.
	Limit int `json:"limit"`
}

type Ranker struct {
	scorer      *scorer.Scorer
	parallelism int
	explain     bool
}

type Option func(*Ranker)

func WithScorer(s *scorer.Scorer) Option {
	return func(r *Ranker) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithParallelism bounds how many postings are scored concurrently.
func WithParallelism(n int) Option {
	return func(r *Ranker) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithBreakdown attaches the scorer's breakdown to every result.
func WithBreakdown(on bool) Option {
	return func(r *Ranker) { r.explain = on }
}

func New(opts ...Option) *Ranker {
	r := &Ranker{
		scorer:      scorer.New(),
		parallelism: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRanker = New()

// ScoreAll scores postings with the default ranker.
func ScoreAll(ctx context.Context, postings []jobs.Posting, skills []string, normalizedResume string) ([]ScoredJob, error) {
	return defaultRanker.ScoreAll(ctx, postings, skills, normalizedResume)
}

// ScoreAll scores every posting. The result has one entry per posting, in
// input order.
func (r *Ranker) ScoreAll(ctx context.Context, postings []jobs.Posting, skills []string, normalizedResume string) ([]ScoredJob, error) {
	out := make([]ScoredJob, len(postings))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i := range postings {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b := r.scorer.Explain(postings[i], skills, normalizedResume)
			out[i] = ScoredJob{Posting: postings[i], Score: b.Score}
			if r.explain {
				out[i].Breakdown = &b
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Apply keeps jobs scoring at least f.MinScore whose title or company
// contains f.Query, sorted by descending score. Equal scores keep their
// input order. The input slice is not modified.
func Apply(scored []ScoredJob, f Filter) []ScoredJob {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	result := make([]ScoredJob, 0, len(scored))
	for _, sj := range scored {
		if sj.Score < f.MinScore {
			continue
		}
		if query != "" && !matchesQuery(sj.Posting, query) {
			continue
		}
		result = append(result, sj)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result
}

func matchesQuery(p jobs.Posting, query string) bool {
	return strings.Contains(strings.ToLower(p.Title), query) ||
		strings.Contains(strings.ToLower(p.Company), query)
}
