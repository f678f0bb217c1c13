package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/skills"
)

const demoResume = "Skills: JavaScript, HTML, CSS, Git, Node.js\nExperience in building responsive websites."

func TestNew_Empty(t *testing.T) {
	s := New(jobs.Samples())
	assert.Empty(t, s.Resume())
	assert.Empty(t, s.Skills())
	assert.Len(t, s.Jobs(), 5)

	got, err := s.Results(context.Background(), ranker.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 5)
	for _, sj := range got {
		assert.Zero(t, sj.Score)
	}
}

func TestWithResume(t *testing.T) {
	s := New(jobs.Samples()).WithResume(demoResume)
	assert.Equal(t, []string{"javascript", "html", "css", "node", "git", "js", "building", "responsive", "websites"}, s.Skills())

	got, err := s.Results(context.Background(), ranker.Filter{MinScore: 50})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Junior Web Developer", got[0].Title)
	assert.Equal(t, 100, got[0].Score)
}

func TestValueSemantics(t *testing.T) {
	base := New(jobs.Samples())
	withResume := base.WithResume(demoResume)
	cleared := withResume.Clear()

	assert.Empty(t, base.Skills())
	assert.NotEmpty(t, withResume.Skills())
	assert.Empty(t, cleared.Skills())
	assert.Empty(t, cleared.NormalizedResume())
	assert.Len(t, cleared.Jobs(), 5)

	fewer := withResume.WithJobs(jobs.Samples()[:2])
	assert.Len(t, fewer.Jobs(), 2)
	assert.Len(t, withResume.Jobs(), 5)
}

func TestAccessorsReturnCopies(t *testing.T) {
	s := New(jobs.Samples()).WithResume(demoResume)
	sk := s.Skills()
	sk[0] = "mutated"
	assert.Equal(t, "javascript", s.Skills()[0])

	js := s.Jobs()
	js[0].Skills[0] = "mutated"
	assert.Equal(t, "javascript", s.Jobs()[0].Skills[0])
}

func TestExport(t *testing.T) {
	s := New(jobs.Samples()).WithResume(demoResume)
	rows, err := s.Export(context.Background(), 5)
	require.NoError(t, err)

	var got []string
	for _, r := range rows {
		got = append(got, r.ID)
	}
	assert.Equal(t, []string{"1", "3", "4", "5"}, got)
	assert.Equal(t, "javascript|html|css", rows[0].Skills)
}

func TestResults_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(jobs.Samples()).Results(ctx, ranker.Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithExtractor(t *testing.T) {
	s := New(jobs.Samples(), WithExtractor(skills.New(skills.WithMaxSkills(2)))).WithResume(demoResume)
	assert.Equal(t, []string{"javascript", "html"}, s.Skills())
}
