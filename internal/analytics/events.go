// Package analytics records what the matcher is asked to do. Request handlers
// Track events on a Collector, which batches them to Kafka and optionally
// feeds a local Aggregator. The Aggregator can also consume the Kafka topic
// from a separate process.
package analytics

import "time"

type EventType string

const (
	EventMatch   EventType = "match"
	EventExtract EventType = "extract"
)

// MatchEvent describes one ranked match request.
type MatchEvent struct {
	Type             EventType `json:"type"`
	ResumeSkillCount int       `json:"resume_skill_count"`
	Skills           []string  `json:"skills"`
	JobsScored       int       `json:"jobs_scored"`
	JobsReturned     int       `json:"jobs_returned"`
	TopScore         int       `json:"top_score"`
	MinScore         int       `json:"min_score"`
	Query            string    `json:"query"`
	LatencyMs        int64     `json:"latency_ms"`
	CacheHit         bool      `json:"cache_hit"`
	Export           bool      `json:"export"`
	Timestamp        time.Time `json:"timestamp"`
	RequestID        string    `json:"request_id"`
}

// ExtractEvent describes one skill extraction request.
type ExtractEvent struct {
	Type        EventType `json:"type"`
	SkillCount  int       `json:"skill_count"`
	Skills      []string  `json:"skills"`
	ResumeBytes int       `json:"resume_bytes"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id"`
}

// Key returns the partition key for an event.
func Key(event any) string {
	switch e := event.(type) {
	case MatchEvent:
		return string(EventMatch)
	case ExtractEvent:
		return string(EventExtract)
	case *MatchEvent:
		return Key(*e)
	case *ExtractEvent:
		return Key(*e)
	default:
		return "unknown"
	}
}
