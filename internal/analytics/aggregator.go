package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/kafka"
)

const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalMatches       int64       `json:"total_matches"`
	TotalExtracts      int64       `json:"total_extracts"`
	TotalExports       int64       `json:"total_exports"`
	CacheHits          int64       `json:"cache_hits"`
	CacheMisses        int64       `json:"cache_misses"`
	CacheHitRate       float64     `json:"cache_hit_rate"`
	ZeroResultCount    int64       `json:"zero_result_count"`
	AvgLatencyMs       float64     `json:"avg_latency_ms"`
	P50LatencyMs       int64       `json:"p50_latency_ms"`
	P95LatencyMs       int64       `json:"p95_latency_ms"`
	P99LatencyMs       int64       `json:"p99_latency_ms"`
	AvgTopScore        float64     `json:"avg_top_score"`
	AvgSkillsPerResume float64     `json:"avg_skills_per_resume"`
	TopSkills          []TermCount `json:"top_skills"`
	TopQueries         []TermCount `json:"top_queries"`
	MatchesPerMinute   float64     `json:"matches_per_minute"`
}

type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals over match and extract events.
type Aggregator struct {
	mu            sync.Mutex
	totalMatches  int64
	totalExtracts int64
	totalExports  int64
	cacheHits     int64
	cacheMisses   int64
	zeroResults   int64
	topScoreSum   int64
	skillSum      int64
	resumes       int64
	latencies     []int64
	latencyNext   int
	skillCounts   map[string]int64
	queryCounts   map[string]int64
	startTime     time.Time
	now           func() time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:   make([]int64, 0, 1024),
		skillCounts: make(map[string]int64),
		queryCounts: make(map[string]int64),
		startTime:   time.Now(),
		now:         time.Now,
		logger:      slog.Default().With("component", "analytics-aggregator"),
	}
}

// Record folds one event into the totals. Unknown types are ignored.
func (a *Aggregator) Record(event any) {
	switch e := event.(type) {
	case MatchEvent:
		a.recordMatch(e)
	case *MatchEvent:
		a.recordMatch(*e)
	case ExtractEvent:
		a.recordExtract(e)
	case *ExtractEvent:
		a.recordExtract(*e)
	default:
		a.logger.Debug("ignoring analytics event", "type", fmt.Sprintf("%T", event))
	}
}

// HandleEvent adapts the aggregator to a Kafka consumer.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		probe, err := kafka.DecodeJSON[struct {
			Type EventType `json:"type"`
		}](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch probe.Type {
		case EventMatch:
			ev, err := kafka.DecodeJSON[MatchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode match event", "error", err)
				return nil
			}
			agg.recordMatch(ev)
		case EventExtract:
			ev, err := kafka.DecodeJSON[ExtractEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode extract event", "error", err)
				return nil
			}
			agg.recordExtract(ev)
		default:
			agg.logger.Warn("unknown analytics event type", "type", probe.Type, "key", string(key))
		}
		return nil
	}
}

func (a *Aggregator) recordMatch(event MatchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalMatches++
	if event.Export {
		a.totalExports++
	}
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if event.JobsReturned == 0 {
		a.zeroResults++
	}
	a.topScoreSum += int64(event.TopScore)
	a.addLatency(event.LatencyMs)
	if q := event.Query; q != "" {
		a.queryCounts[q]++
	}
	a.countSkills(event.ResumeSkillCount, event.Skills)
}

func (a *Aggregator) recordExtract(event ExtractEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalExtracts++
	a.countSkills(event.SkillCount, event.Skills)
}

func (a *Aggregator) countSkills(n int, skills []string) {
	a.resumes++
	a.skillSum += int64(n)
	for _, s := range skills {
		a.skillCounts[s]++
	}
}

// addLatency keeps the most recent maxLatencySamples values.
func (a *Aggregator) addLatency(ms int64) {
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, ms)
		return
	}
	a.latencies[a.latencyNext] = ms
	a.latencyNext = (a.latencyNext + 1) % maxLatencySamples
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalMatches:    a.totalMatches,
		TotalExtracts:   a.totalExtracts,
		TotalExports:    a.totalExports,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
	}
	if lookups := a.cacheHits + a.cacheMisses; lookups > 0 {
		stats.CacheHitRate = float64(a.cacheHits) / float64(lookups)
	}
	if a.totalMatches > 0 {
		stats.AvgTopScore = float64(a.topScoreSum) / float64(a.totalMatches)
	}
	if a.resumes > 0 {
		stats.AvgSkillsPerResume = float64(a.skillSum) / float64(a.resumes)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopSkills = topN(a.skillCounts, 10)
	stats.TopQueries = topN(a.queryCounts, 10)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.MatchesPerMinute = float64(stats.TotalMatches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent terms; equal counts sort by term.
func topN(counts map[string]int64, n int) []TermCount {
	result := make([]TermCount, 0, len(counts))
	for term, count := range counts {
		result = append(result, TermCount{Term: term, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Term < result[j].Term
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
