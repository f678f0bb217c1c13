// Package session holds the caller-owned matching state: the current resume,
// the skills extracted from it and the job collection it is matched against.
//
// A Session is a value. Every method that changes state returns a new
// Session and leaves the receiver untouched, so sessions can be shared
// between goroutines without locking.
package session

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/export"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/skills"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/tokenizer"
)

type Session struct {
	resume     string
	normalized string
	skills     []string
	postings   []jobs.Posting
	extractor  *skills.Extractor
	ranker     *ranker.Ranker
}

type Option func(*Session)

func WithExtractor(e *skills.Extractor) Option {
	return func(s *Session) {
		if e != nil {
			s.extractor = e
		}
	}
}

func WithRanker(r *ranker.Ranker) Option {
	return func(s *Session) {
		if r != nil {
			s.ranker = r
		}
	}
}

// New starts a session with no resume over the given postings.
func New(postings []jobs.Posting, opts ...Option) Session {
	s := Session{
		skills:    []string{},
		postings:  jobs.Clone(postings),
		extractor: skills.New(),
		ranker:    ranker.New(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s Session) Resume() string { return s.resume }

func (s Session) NormalizedResume() string { return s.normalized }

// Skills returns a copy of the extracted skills.
func (s Session) Skills() []string {
	return append([]string{}, s.skills...)
}

// Jobs returns a copy of the job collection.
func (s Session) Jobs() []jobs.Posting { return jobs.Clone(s.postings) }

// WithResume replaces the resume text and re-extracts its skills.
func (s Session) WithResume(text string) Session {
	s.resume = text
	s.normalized = tokenizer.Normalize(text)
	s.skills = s.extractor.Extract(text)
	return s
}

// Clear drops the resume and its skills. The job collection is kept.
func (s Session) Clear() Session {
	s.resume = ""
	s.normalized = ""
	s.skills = []string{}
	return s
}

// WithJobs replaces the job collection.
func (s Session) WithJobs(postings []jobs.Posting) Session {
	s.postings = jobs.Clone(postings)
	return s
}

// Scored returns every job with its score, in collection order.
func (s Session) Scored(ctx context.Context) ([]ranker.ScoredJob, error) {
	return s.ranker.ScoreAll(ctx, s.postings, s.skills, s.normalized)
}

// Results scores the collection and applies f.
func (s Session) Results(ctx context.Context, f ranker.Filter) ([]ranker.ScoredJob, error) {
	scored, err := s.Scored(ctx)
	if err != nil {
		return nil, err
	}
	return ranker.Apply(scored, f), nil
}

// Export returns rows for jobs scoring at least minScore, in collection
// order. The text query does not apply to exports.
func (s Session) Export(ctx context.Context, minScore int) ([]export.Row, error) {
	scored, err := s.Scored(ctx)
	if err != nil {
		return nil, err
	}
	kept := make([]ranker.ScoredJob, 0, len(scored))
	for _, sj := range scored {
		if sj.Score >= minScore {
			kept = append(kept, sj)
		}
	}
	return export.Rows(kept), nil
}
