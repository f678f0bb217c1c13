package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/cache"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/skills"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/metrics"
)

const demoResume = "Skills: JavaScript, HTML, CSS, Git, Node.js\nExperience in building responsive websites."

func newHandler(t *testing.T, mutate func(*Deps)) *Handler {
	t.Helper()
	deps := Deps{Store: jobs.NewMemoryStore(jobs.Samples())}
	if mutate != nil {
		mutate(&deps)
	}
	return New(deps)
}

func call(t *testing.T, fn http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(method, target, &buf))
	return rec
}

func decodeMatch(t *testing.T, rec *httptest.ResponseRecorder) MatchResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp MatchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func intPtr(v int) *int { return &v }

func TestSkills(t *testing.T) {
	h := newHandler(t, nil)
	rec := call(t, h.Skills, http.MethodPost, "/api/v1/skills", SkillsRequest{Resume: demoResume})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SkillsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []string{"javascript", "html", "css", "node", "git", "js", "building", "responsive", "websites"}, resp.Skills)
	assert.Equal(t, 9, resp.Count)
}

func TestSkills_EmptyResume(t *testing.T) {
	h := newHandler(t, nil)
	rec := call(t, h.Skills, http.MethodPost, "/api/v1/skills", SkillsRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"skills":[],"count":0}`, rec.Body.String())
}

func TestSkills_BadJSON(t *testing.T) {
	h := newHandler(t, nil)
	rec := call(t, h.Skills, http.MethodPost, "/api/v1/skills", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMatch_Threshold(t *testing.T) {
	h := newHandler(t, nil)
	resp := decodeMatch(t, call(t, h.Match, http.MethodPost, "/api/v1/match", MatchRequest{Resume: demoResume, MinScore: intPtr(50)}))
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, jobs.ID("1"), resp.Jobs[0].ID)
	assert.Equal(t, 100, resp.Jobs[0].Score)
	require.NotNil(t, resp.Jobs[0].Breakdown)
	assert.Equal(t, []string{"javascript", "html", "css"}, resp.Jobs[0].Breakdown.Matched)
	assert.Equal(t, 5, resp.JobsScored)
	assert.Equal(t, 100, resp.TopScore)
	assert.False(t, resp.CacheHit)
}

func TestMatch_SortedAndDefaultThreshold(t *testing.T) {
	h := newHandler(t, nil)
	resp := decodeMatch(t, call(t, h.Match, http.MethodPost, "/api/v1/match", MatchRequest{Resume: demoResume}))
	var ids []jobs.ID
	for _, j := range resp.Jobs {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []jobs.ID{"1", "3", "4", "5", "2"}, ids)
}

func TestMatch_EmptyResumeIsValid(t *testing.T) {
	h := newHandler(t, nil)
	resp := decodeMatch(t, call(t, h.Match, http.MethodPost, "/api/v1/match", MatchRequest{}))
	assert.Empty(t, resp.Skills)
	require.Len(t, resp.Jobs, 5)
	for _, j := range resp.Jobs {
		assert.Zero(t, j.Score)
	}
}

func TestMatch_NegativeThresholdKeepsAll(t *testing.T) {
	h := newHandler(t, func(d *Deps) { d.DefaultMinScore = 50 })
	resp := decodeMatch(t, call(t, h.Match, http.MethodPost, "/api/v1/match", MatchRequest{Resume: demoResume, MinScore: intPtr(-10)}))
	assert.Len(t, resp.Jobs, 5)

	resp = decodeMatch(t, call(t, h.Match, http.MethodPost, "/api/v1/match", MatchRequest{Resume: demoResume}))
	assert.Len(t, resp.Jobs, 1, "default threshold applies when min_score is absent")
}

func TestMatch_QueryAndInlineJobs(t *testing.T) {
	h := newHandler(t, nil)
	req := MatchRequest{
		Resume: "Go, SQL and Docker",
		Query:  "acme",
		Jobs: []jobs.Posting{
			{ID: "a", Title: "Go Developer", Company: "Acme", Skills: []string{"go", "sql"}},
			{ID: "b", Title: "Go Developer", Company: "Other", Skills: []string{"go"}},
		},
	}
	resp := decodeMatch(t, call(t, h.Match, http.MethodPost, "/api/v1/match", req))
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, jobs.ID("a"), resp.Jobs[0].ID)
	assert.Equal(t, 2, resp.JobsScored)
}

func TestMatch_InvalidInlineJobs(t *testing.T) {
	h := newHandler(t, nil)
	rec := call(t, h.Match, http.MethodPost, "/api/v1/match", MatchRequest{Jobs: []jobs.Posting{{ID: "1", Skills: []string{}}}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "title is required", body.Fields["0.title"])
}

func TestMatch_RequestValidation(t *testing.T) {
	h := newHandler(t, nil)
	rec := call(t, h.Match, http.MethodPost, "/api/v1/match", MatchRequest{Query: strings.Repeat("q", 300)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(t, h.Match, http.MethodPost, "/api/v1/match", MatchRequest{Limit: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(t, h.Match, http.MethodPost, "/api/v1/match", `{"jobs":{"id":1}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMatch_BodyTooLarge(t *testing.T) {
	h := newHandler(t, func(d *Deps) { d.MaxBodyBytes = 16 })
	rec := call(t, h.Match, http.MethodPost, "/api/v1/match", MatchRequest{Resume: demoResume})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return nil, goredis.Nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	s.data = map[string][]byte{}
	return n, nil
}

func TestMatch_Cache(t *testing.T) {
	mc := cache.New(&memStore{data: map[string][]byte{}}, time.Minute)
	h := newHandler(t, func(d *Deps) { d.Cache = mc })
	req := MatchRequest{Resume: demoResume, MinScore: intPtr(5)}

	rec := call(t, h.Match, http.MethodPost, "/api/v1/match", req)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	first := decodeMatch(t, rec)

	rec = call(t, h.Match, http.MethodPost, "/api/v1/match", req)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	second := decodeMatch(t, rec)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Jobs, second.Jobs)

	rec = call(t, h.CacheStats, http.MethodGet, "/api/v1/cache/stats", nil)
	assert.Contains(t, rec.Body.String(), `"hit_rate":"50.0%"`)

	rec = call(t, h.CacheInvalidate, http.MethodPost, "/api/v1/cache/invalidate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"keys_deleted":1`)
}

func TestMatch_CacheSeparatesExtractorTables(t *testing.T) {
	store := &memStore{data: map[string][]byte{}}
	defaults := newHandler(t, func(d *Deps) {
		d.Cache = cache.New(store, time.Minute, cache.WithNamespace("k12-b0.05"))
	})
	custom := newHandler(t, func(d *Deps) {
		d.Extractor = skills.New(skills.WithVocabulary([]string{"kafka"}))
		d.Cache = cache.New(store, time.Minute, cache.WithNamespace("k12-b0.05"))
	})
	req := MatchRequest{Resume: "kafka rust rust rust go python"}

	rec := call(t, defaults.Match, http.MethodPost, "/api/v1/match", req)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, []string{"python", "rust", "kafka", "go"}, decodeMatch(t, rec).Skills)

	rec = call(t, custom.Match, http.MethodPost, "/api/v1/match", req)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, []string{"kafka", "rust", "go", "python"}, decodeMatch(t, rec).Skills)

	rec = call(t, custom.Match, http.MethodPost, "/api/v1/match", req)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, []string{"kafka", "rust", "go", "python"}, decodeMatch(t, rec).Skills)
	assert.Len(t, store.data, 2)
}

func TestCache_Disabled(t *testing.T) {
	h := newHandler(t, nil)
	rec := call(t, h.CacheStats, http.MethodGet, "/api/v1/cache/stats", nil)
	assert.JSONEq(t, `{"status":"disabled"}`, rec.Body.String())
	rec = call(t, h.CacheInvalidate, http.MethodPost, "/api/v1/cache/invalidate", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExport(t *testing.T) {
	h := newHandler(t, nil)
	rec := call(t, h.Export, http.MethodPost, "/api/v1/match/export", MatchRequest{Resume: demoResume, MinScore: intPtr(5), Query: "ignored"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="recommended_jobs.csv"`, rec.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"id", "title", "company", "location", "score", "skills", "desc"}, records[0])
	assert.Equal(t, []string{"1", "Junior Web Developer", "TechWorks", "Remote", "100", "javascript|html|css", "Build web pages using HTML/CSS and JS."}, records[1])
	assert.Equal(t, "3", records[2][0], "exports keep collection order")
}

func TestJobs_ListGetReplace(t *testing.T) {
	h := newHandler(t, nil)

	rec := call(t, h.ListJobs, http.MethodGet, "/api/v1/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []jobs.Posting
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	assert.Len(t, listed, 5)

	rec = call(t, h.ReplaceJobs, http.MethodPut, "/api/v1/jobs", `{"id":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "JSON must be an array of job objects")

	rec = call(t, h.ReplaceJobs, http.MethodPut, "/api/v1/jobs", `[{"id":7,"title":"SRE","company":"Ops","skills":["linux"],"location":"Remote","desc":"Keep things up"}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.GetJob)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"SRE"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type readOnlyStore struct{ inner *jobs.MemoryStore }

func (s readOnlyStore) List(ctx context.Context) ([]jobs.Posting, error) { return s.inner.List(ctx) }
func (s readOnlyStore) Get(ctx context.Context, id jobs.ID) (*jobs.Posting, error) {
	return s.inner.Get(ctx, id)
}

func TestReplaceJobs_ReadOnlySource(t *testing.T) {
	h := newHandler(t, func(d *Deps) { d.Store = readOnlyStore{jobs.NewMemoryStore(jobs.Samples())} })
	rec := call(t, h.ReplaceJobs, http.MethodPut, "/api/v1/jobs", `[]`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMatch_AnalyticsAndMetrics(t *testing.T) {
	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(nil, 16, analytics.WithRecorder(agg))
	m := metrics.New(prometheus.NewRegistry())
	h := newHandler(t, func(d *Deps) {
		d.Collector = collector
		d.Metrics = m
	})

	decodeMatch(t, call(t, h.Match, http.MethodPost, "/api/v1/match", MatchRequest{Resume: demoResume}))
	call(t, h.Skills, http.MethodPost, "/api/v1/skills", SkillsRequest{Resume: demoResume})
	call(t, h.Match, http.MethodPost, "/api/v1/match", "{")

	stats := agg.Stats()
	assert.EqualValues(t, 1, stats.TotalMatches)
	assert.EqualValues(t, 1, stats.TotalExtracts)
	assert.Equal(t, 100.0, stats.AvgTopScore)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MatchRequestsTotal.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MatchRequestsTotal.WithLabelValues("error")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.JobsScoredTotal))
}
