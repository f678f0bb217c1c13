// Package scorer computes how well a job posting matches a resume.
//
// The score is the share of the job's required skills found in the resume
// (either among the extracted skills or as a substring of the normalized
// resume text), plus a bonus for every resume skill that occurs in the job's
// normalized title and description. The result is rounded half up, scaled to
// a percentage and capped at 100.
//
// Containment is plain substring matching, not token matching: "java" is
// found inside "javascript". This trades precision for recall and is kept as
// is so that scores stay comparable across versions.
package scorer

import (
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/tokenizer"
)

const (
	// DefaultBonusPerSkill is added per resume skill found in the title or
	// description.
	DefaultBonusPerSkill = 0.05
	// MaxScore caps every score.
	MaxScore = 100
)

// Breakdown explains a score.
type Breakdown struct {
	Score      int      `json:"score"`
	Matched    []string `json:"matched"`
	Missing    []string `json:"missing"`
	BonusHits  []string `json:"bonus_hits"`
	SkillScore float64  `json:"skill_score"`
	Bonus      float64  `json:"bonus"`
}

// Scorer scores postings. The zero value is not usable; construct with New.
type Scorer struct {
	bonusPerSkill float64
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithBonusPerSkill sets the per-skill title/description bonus. Negative
// values are ignored.
func WithBonusPerSkill(bonus float64) Option {
	return func(s *Scorer) {
		if bonus >= 0 {
			s.bonusPerSkill = bonus
		}
	}
}

// New builds a Scorer with the default bonus and the given options.
func New(opts ...Option) *Scorer {
	s := &Scorer{bonusPerSkill: DefaultBonusPerSkill}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultScorer = New()

// Score scores job with the default Scorer.
func Score(job jobs.Posting, skills []string, normalizedResume string) int {
	return defaultScorer.Score(job, skills, normalizedResume)
}

// Explain explains job's score with the default Scorer.
func Explain(job jobs.Posting, skills []string, normalizedResume string) Breakdown {
	return defaultScorer.Explain(job, skills, normalizedResume)
}

// Score returns the match percentage in [0, 100]. normalizedResume must
// already be normalized with tokenizer.Normalize.
func (s *Scorer) Score(job jobs.Posting, skills []string, normalizedResume string) int {
	return s.Explain(job, skills, normalizedResume).Score
}

// Explain computes the score and records which skills contributed.
func (s *Scorer) Explain(job jobs.Posting, skills []string, normalizedResume string) Breakdown {
	resumeSkills := make(map[string]struct{}, len(skills))
	for _, sk := range skills {
		resumeSkills[strings.ToLower(sk)] = struct{}{}
	}

	b := Breakdown{
		Matched:   []string{},
		Missing:   []string{},
		BonusHits: []string{},
	}
	for _, required := range job.Skills {
		required = strings.ToLower(required)
		_, listed := resumeSkills[required]
		if listed || strings.Contains(normalizedResume, required) {
			b.Matched = append(b.Matched, required)
		} else {
			b.Missing = append(b.Missing, required)
		}
	}
	if len(job.Skills) > 0 {
		b.SkillScore = float64(len(b.Matched)) / float64(len(job.Skills))
	}

	titleDesc := tokenizer.Normalize(job.Title + " " + job.Description)
	for _, sk := range skills {
		if strings.Contains(titleDesc, strings.ToLower(sk)) {
			b.BonusHits = append(b.BonusHits, sk)
			b.Bonus += s.bonusPerSkill
		}
	}

	b.Score = clamp(roundHalfUp((b.SkillScore + b.Bonus) * 100))
	return b
}

// roundHalfUp rounds x to the nearest integer, halves toward +Inf.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func clamp(score int) int {
	if score > MaxScore {
		return MaxScore
	}
	if score < 0 {
		return 0
	}
	return score
}
