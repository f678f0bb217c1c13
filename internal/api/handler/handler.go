// Package handler serves the matching API: skill extraction, ranked matches,
// CSV export and job collection management.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/cache"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/export"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/session"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/skills"
	apperrors "github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/tracing"
)

// Deps are the collaborators a Handler needs. Cache, Collector and Metrics
// are optional.
type Deps struct {
	Store           jobs.Store
	Extractor       *skills.Extractor
	Ranker          *ranker.Ranker
	Cache           *cache.MatchCache
	Collector       *analytics.Collector
	Metrics         *metrics.Metrics
	DefaultMinScore int
	MaxBodyBytes    int64
}

type Handler struct {
	deps     Deps
	validate *validator.Validate
	logger   *slog.Logger
}

func New(deps Deps) *Handler {
	if deps.Extractor == nil {
		deps.Extractor = skills.New()
	}
	if deps.Ranker == nil {
		deps.Ranker = ranker.New(ranker.WithBreakdown(true))
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 1 << 20
	}
	return &Handler{
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   slog.Default().With("component", "match-handler"),
	}
}

type SkillsRequest struct {
	Resume string `json:"resume"`
}

type SkillsResponse struct {
	Skills []string `json:"skills"`
	Count  int      `json:"count"`
}

// MatchRequest is the body of the match and export endpoints. A nil
// MinScore uses the configured default; Jobs, when present, replaces the
// stored collection for this request only.
type MatchRequest struct {
	Resume   string         `json:"resume"`
	MinScore *int           `json:"min_score"`
	Query    string         `json:"query" validate:"max=256"`
	Limit    int            `json:"limit" validate:"min=0,max=1000"`
	Jobs     []jobs.Posting `json:"jobs"`
}

type MatchResponse struct {
	Skills     []string           `json:"skills"`
	Count      int                `json:"count"`
	Jobs       []ranker.ScoredJob `json:"jobs"`
	JobsScored int                `json:"jobs_scored"`
	TopScore   int                `json:"top_score"`
	CacheHit   bool               `json:"cache_hit"`
}

// Skills extracts the skills of a resume.
func (h *Handler) Skills(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req SkillsRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	extracted := h.deps.Extractor.Extract(req.Resume)
	if m := h.deps.Metrics; m != nil {
		m.SkillsExtracted.Observe(float64(len(extracted)))
	}
	h.track(analytics.ExtractEvent{
		Type:        analytics.EventExtract,
		SkillCount:  len(extracted),
		Skills:      extracted,
		ResumeBytes: len(req.Resume),
		LatencyMs:   time.Since(start).Milliseconds(),
		Timestamp:   time.Now().UTC(),
		RequestID:   logger.RequestID(r.Context()),
	})
	h.writeJSON(w, http.StatusOK, SkillsResponse{Skills: extracted, Count: len(extracted)})
}

// Match scores the job collection against a resume and returns the jobs
// that pass the filter, best first.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "match", logger.RequestID(r.Context()))
	defer func() {
		span.End()
		span.Log(logger.FromContext(ctx))
	}()
	log := logger.FromContext(ctx)

	var req MatchRequest
	if err := h.decode(w, r, &req); err != nil {
		h.observeMatch("error", start, false)
		h.writeError(w, r, err)
		return
	}
	sess, err := h.session(ctx, req)
	if err != nil {
		h.observeMatch("error", start, false)
		h.writeError(w, r, err)
		return
	}
	if sess.Resume() == "" || len(sess.Skills()) == 0 {
		log.Debug("match with no extractable skills")
	}
	filter := ranker.Filter{MinScore: h.minScore(req.MinScore), Query: req.Query, Limit: req.Limit}

	result, cacheHit, err := h.results(ctx, sess, filter)
	if err != nil {
		h.observeMatch("error", start, false)
		h.writeError(w, r, err)
		return
	}
	span.SetAttr("cache_hit", cacheHit)
	span.SetAttr("returned", len(result.Jobs))

	latency := time.Since(start)
	resultType := "miss"
	switch {
	case len(result.Jobs) == 0:
		resultType = "zero_result"
	case cacheHit:
		resultType = "hit"
	}
	h.observeMatch(resultType, start, cacheHit)
	if m := h.deps.Metrics; m != nil {
		m.MatchResultsCount.Observe(float64(len(result.Jobs)))
		if !cacheHit {
			m.JobsScoredTotal.Add(float64(result.JobsScored))
		}
	}
	h.track(analytics.MatchEvent{
		Type:             analytics.EventMatch,
		ResumeSkillCount: len(result.Skills),
		Skills:           result.Skills,
		JobsScored:       result.JobsScored,
		JobsReturned:     len(result.Jobs),
		TopScore:         result.TopScore,
		MinScore:         filter.MinScore,
		Query:            filter.Query,
		LatencyMs:        latency.Milliseconds(),
		CacheHit:         cacheHit,
		Timestamp:        time.Now().UTC(),
		RequestID:        logger.RequestID(ctx),
	})
	log.Info("match completed",
		"skills", len(result.Skills),
		"jobs_scored", result.JobsScored,
		"returned", len(result.Jobs),
		"top_score", result.TopScore,
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)

	if cacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	h.writeJSON(w, http.StatusOK, MatchResponse{
		Skills:     result.Skills,
		Count:      len(result.Skills),
		Jobs:       result.Jobs,
		JobsScored: result.JobsScored,
		TopScore:   result.TopScore,
		CacheHit:   cacheHit,
	})
}

// Export writes every job scoring at least the threshold as CSV, in
// collection order. The text query does not apply.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	var req MatchRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sess, err := h.session(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	minScore := h.minScore(req.MinScore)
	rows, err := sess.Export(ctx, minScore)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, rows); err != nil {
		logger.FromContext(ctx).Error("failed to write csv", "error", err)
		return
	}
	h.track(analytics.MatchEvent{
		Type:             analytics.EventMatch,
		ResumeSkillCount: len(sess.Skills()),
		Skills:           sess.Skills(),
		JobsScored:       len(sess.Jobs()),
		JobsReturned:     len(rows),
		MinScore:         minScore,
		LatencyMs:        time.Since(start).Milliseconds(),
		Export:           true,
		Timestamp:        time.Now().UTC(),
		RequestID:        logger.RequestID(ctx),
	})
}

// ListJobs returns the current job collection.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	postings, err := h.deps.Store.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, postings)
}

// GetJob returns one posting by id.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Store.Get(r.Context(), jobs.ID(r.PathValue("id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// ReplaceJobs swaps in a new collection from a JSON array body.
func (h *Handler) ReplaceJobs(w http.ResponseWriter, r *http.Request) {
	replacer, ok := h.deps.Store.(jobs.Replacer)
	if !ok {
		h.writeError(w, r, apperrors.ErrSourceReadOnly)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.deps.MaxBodyBytes))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: reading body: %v", apperrors.ErrInvalidInput, err))
		return
	}
	postings, err := jobs.ParseJSON(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := replacer.Replace(r.Context(), postings); err != nil {
		h.writeError(w, r, err)
		return
	}
	if m := h.deps.Metrics; m != nil {
		m.JobsLoaded.Set(float64(len(postings)))
	}
	logger.FromContext(r.Context()).Info("job collection replaced", "count", len(postings))
	h.writeJSON(w, http.StatusOK, map[string]int{"count": len(postings)})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.deps.Cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil {
		h.writeError(w, r, apperrors.New(apperrors.ErrCacheUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	deleted, err := h.deps.Cache.Invalidate(r.Context())
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", apperrors.ErrCacheUnavailable, err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// session builds the per-request matching state.
func (h *Handler) session(ctx context.Context, req MatchRequest) (session.Session, error) {
	_, span := tracing.StartChildSpan(ctx, "load_jobs")
	defer span.End()

	postings := req.Jobs
	if postings == nil {
		var err error
		postings, err = h.deps.Store.List(ctx)
		if err != nil {
			return session.Session{}, err
		}
	} else if err := jobs.Validate(postings); err != nil {
		return session.Session{}, err
	}
	span.SetAttr("jobs", len(postings))
	return session.New(postings,
		session.WithExtractor(h.deps.Extractor),
		session.WithRanker(h.deps.Ranker),
	).WithResume(req.Resume), nil
}

func (h *Handler) results(ctx context.Context, sess session.Session, f ranker.Filter) (*cache.Result, bool, error) {
	compute := func() (*cache.Result, error) {
		_, span := tracing.StartChildSpan(ctx, "score")
		defer span.End()
		ranked, err := sess.Results(ctx, f)
		if err != nil {
			return nil, err
		}
		top := 0
		if len(ranked) > 0 {
			top = ranked[0].Score
		}
		return &cache.Result{
			Skills:      sess.Skills(),
			Jobs:        ranked,
			JobsScored:  len(sess.Jobs()),
			TopScore:    top,
			GeneratedAt: time.Now().UTC(),
		}, nil
	}
	if h.deps.Cache == nil {
		r, err := compute()
		return r, false, err
	}
	return h.deps.Cache.GetOrCompute(ctx, cache.Key{
		Extractor:        h.deps.Extractor.Fingerprint(),
		NormalizedResume: sess.NormalizedResume(),
		Postings:         sess.Jobs(),
		Filter:           f,
	}, compute)
}

// minScore applies the default. Negative thresholds act as 0.
func (h *Handler) minScore(v *int) int {
	score := h.deps.DefaultMinScore
	if v != nil {
		score = *v
	}
	if score < 0 {
		return 0
	}
	return score
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.deps.MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decoding request body: %v", apperrors.ErrInvalidInput, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) observeMatch(resultType string, start time.Time, cacheHit bool) {
	m := h.deps.Metrics
	if m == nil {
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
	}
	m.MatchRequestsTotal.WithLabelValues(resultType).Inc()
	m.MatchLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

func (h *Handler) track(event any) {
	if h.deps.Collector != nil {
		h.deps.Collector.Track(event)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}
	status := apperrors.HTTPStatusCode(err)
	body := errorBody{Error: err.Error()}
	var verr *jobs.ValidationError
	if errors.As(err, &verr) {
		body.Error = "invalid job postings"
		body.Fields = verr.Fields
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	}
	h.writeJSON(w, status, body)
}
