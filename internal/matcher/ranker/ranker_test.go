package ranker

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/scorer"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/skills"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/tokenizer"
)

const demoResume = "Skills: JavaScript, HTML, CSS, Git, Node.js\nExperience in building responsive websites."

func scored(id, title, company string, score int) ScoredJob {
	return ScoredJob{Posting: jobs.Posting{ID: jobs.ID(id), Title: title, Company: company}, Score: score}
}

func ids(in []ScoredJob) []jobs.ID {
	out := make([]jobs.ID, len(in))
	for i, sj := range in {
		out[i] = sj.ID
	}
	return out
}

func TestScoreAll_PreservesInputOrder(t *testing.T) {
	got, err := ScoreAll(context.Background(), jobs.Samples(), skills.Extract(demoResume), tokenizer.Normalize(demoResume))
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, []jobs.ID{"1", "2", "3", "4", "5"}, ids(got))

	scores := make([]int, len(got))
	for i, sj := range got {
		scores[i] = sj.Score
		assert.Nil(t, sj.Breakdown)
	}
	assert.Equal(t, []int{100, 0, 25, 5, 5}, scores)
}

func TestScoreAll_Empty(t *testing.T) {
	got, err := ScoreAll(context.Background(), nil, nil, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScoreAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(WithParallelism(1)).ScoreAll(ctx, jobs.Samples(), []string{"git"}, "git")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScoreAll_WithBreakdownAndScorer(t *testing.T) {
	r := New(WithBreakdown(true), WithScorer(scorer.New(scorer.WithBonusPerSkill(0))), WithParallelism(2))
	got, err := r.ScoreAll(context.Background(), jobs.Samples()[:1], skills.Extract(demoResume), tokenizer.Normalize(demoResume))
	require.NoError(t, err)
	require.NotNil(t, got[0].Breakdown)
	assert.Equal(t, []string{"javascript", "html", "css"}, got[0].Breakdown.Matched)
	assert.Equal(t, 100, got[0].Score)
}

func TestApply_Threshold(t *testing.T) {
	in := []ScoredJob{scored("a", "A", "", 40), scored("b", "B", "", 70)}
	got := Apply(in, Filter{MinScore: 50})
	assert.Equal(t, []jobs.ID{"b"}, ids(got))

	in = []ScoredJob{scored("b", "B", "", 70), scored("a", "A", "", 40)}
	got = Apply(in, Filter{MinScore: 50})
	assert.Equal(t, []jobs.ID{"b"}, ids(got))
}

func TestApply_ThresholdIsInclusive(t *testing.T) {
	got := Apply([]ScoredJob{scored("a", "A", "", 50)}, Filter{MinScore: 50})
	assert.Len(t, got, 1)
}

func TestApply_NegativeThresholdKeepsAll(t *testing.T) {
	in := []ScoredJob{scored("a", "A", "", 0), scored("b", "B", "", 10)}
	got := Apply(in, Filter{MinScore: -20})
	assert.Equal(t, []jobs.ID{"b", "a"}, ids(got))
}

func TestApply_ThresholdAboveMaxKeepsNone(t *testing.T) {
	got := Apply([]ScoredJob{scored("a", "A", "", 100)}, Filter{MinScore: 101})
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestApply_SortsDescendingWithStableTies(t *testing.T) {
	in := []ScoredJob{
		scored("1", "", "", 5),
		scored("2", "", "", 80),
		scored("3", "", "", 5),
		scored("4", "", "", 80),
		scored("5", "", "", 30),
	}
	got := Apply(in, Filter{})
	assert.Equal(t, []jobs.ID{"2", "4", "5", "1", "3"}, ids(got))
	assert.Equal(t, jobs.ID("1"), in[0].ID, "input must not be reordered")
}

func TestApply_Query(t *testing.T) {
	in := []ScoredJob{
		scored("1", "Junior Web Developer", "TechWorks", 10),
		scored("2", "Data Analyst", "Insight Labs", 20),
		scored("3", "Machine Learning Intern", "AI Labs", 30),
	}
	tests := []struct {
		query string
		want  []jobs.ID
	}{
		{"", []jobs.ID{"3", "2", "1"}},
		{"   ", []jobs.ID{"3", "2", "1"}},
		{"labs", []jobs.ID{"3", "2"}},
		{"  DEVELOPER ", []jobs.ID{"1"}},
		{"techworks", []jobs.ID{"1"}},
		{"nothing", []jobs.ID{}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.query), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(in, Filter{Query: tt.query})))
		})
	}
}

func TestApply_QueryAndThreshold(t *testing.T) {
	in := []ScoredJob{
		scored("1", "Go Developer", "X", 40),
		scored("2", "Go Developer", "Y", 90),
		scored("3", "Designer", "Z", 95),
	}
	assert.Equal(t, []jobs.ID{"2"}, ids(Apply(in, Filter{MinScore: 50, Query: "developer"})))
}

func TestApply_Limit(t *testing.T) {
	in := []ScoredJob{scored("1", "", "", 10), scored("2", "", "", 20), scored("3", "", "", 30)}
	assert.Equal(t, []jobs.ID{"3", "2"}, ids(Apply(in, Filter{Limit: 2})))
	assert.Len(t, Apply(in, Filter{Limit: 10}), 3)
}

func TestApply_SampleJobs(t *testing.T) {
	all, err := ScoreAll(context.Background(), jobs.Samples(), skills.Extract(demoResume), tokenizer.Normalize(demoResume))
	require.NoError(t, err)
	assert.Equal(t, []jobs.ID{"1", "3", "4", "5", "2"}, ids(Apply(all, Filter{})))
	assert.Equal(t, []jobs.ID{"1"}, ids(Apply(all, Filter{MinScore: 50})))
}

func BenchmarkScoreAll(b *testing.B) {
	postings := make([]jobs.Posting, 0, 500)
	for i := 0; i < 100; i++ {
		for _, p := range jobs.Samples() {
			p.ID = jobs.ID(fmt.Sprintf("%d-%s", i, p.ID))
			postings = append(postings, p)
		}
	}
	extracted := skills.Extract(demoResume)
	text := tokenizer.Normalize(demoResume)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		all, _ := ScoreAll(ctx, postings, extracted, text)
		_ = Apply(all, Filter{MinScore: 10})
	}
}
