// Package cache stores ranked match results in Redis, keyed by the
// normalized resume, the job collection and the filter that produced them.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/ranker"
	pkgredis "github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/redis"
)

const keyPrefix = "match:"

// Store is the subset of the Redis client the cache needs. Misses are
// reported with an error for which pkgredis.IsNilError is true.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Result is what a match request produces and what gets cached.
type Result struct {
	Skills      []string           `json:"skills"`
	Jobs        []ranker.ScoredJob `json:"jobs"`
	JobsScored  int                `json:"jobs_scored"`
	TopScore    int                `json:"top_score"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Key identifies a cacheable match. Extractor is the extractor's
// fingerprint, so results from differently configured extractors sharing a
// store never collide.
type Key struct {
	Extractor        string
	NormalizedResume string
	Postings         []jobs.Posting
	Filter           ranker.Filter
}

type MatchCache struct {
	store     Store
	ttl       time.Duration
	namespace string
	group     singleflight.Group
	logger    *slog.Logger
	hits      atomic.Int64
	misses    atomic.Int64
	onHit     func()
	onMiss    func()
}

type Option func(*MatchCache)

// WithNamespace separates entries computed under different matcher
// settings, such as a different skill cap or bonus weight.
func WithNamespace(ns string) Option {
	return func(c *MatchCache) { c.namespace = ns }
}

// WithCounters registers callbacks run on every hit and miss.
func WithCounters(onHit, onMiss func()) Option {
	return func(c *MatchCache) {
		c.onHit = onHit
		c.onMiss = onMiss
	}
}

func New(store Store, ttl time.Duration, opts ...Option) *MatchCache {
	c := &MatchCache{
		store:  store,
		ttl:    ttl,
		logger: slog.Default().With("component", "match-cache"),
		onHit:  func() {},
		onMiss: func() {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MatchCache) Get(ctx context.Context, k Key) (*Result, bool) {
	key := c.buildKey(k)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.onHit()
	c.logger.Debug("cache hit", "key", key)
	return &result, true
}

func (c *MatchCache) Set(ctx context.Context, k Key, result *Result) {
	key := c.buildKey(k)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for k, or runs computeFn once per
// key across concurrent callers and caches its result. The bool reports a
// cache hit. Store failures degrade to computing.
func (c *MatchCache) GetOrCompute(
	ctx context.Context,
	k Key,
	computeFn func() (*Result, error),
) (*Result, bool, error) {
	if result, ok := c.Get(ctx, k); ok {
		return result, true, nil
	}
	key := c.buildKey(k)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, k, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Result), false, nil
}

// Invalidate drops every cached match result.
func (c *MatchCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return deleted, nil
}

func (c *MatchCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *MatchCache) miss() {
	c.misses.Add(1)
	c.onMiss()
}

func (c *MatchCache) buildKey(k Key) string {
	h := sha256.New()
	fmt.Fprintf(h, "ns=%s\x00", c.namespace)
	fmt.Fprintf(h, "extractor=%s\x00", k.Extractor)
	fmt.Fprintf(h, "resume=%s\x00", k.NormalizedResume)
	fmt.Fprintf(h, "jobs=%s\x00", Fingerprint(k.Postings))
	fmt.Fprintf(h, "min=%d\x00query=%s\x00limit=%d",
		k.Filter.MinScore, strings.ToLower(strings.TrimSpace(k.Filter.Query)), k.Filter.Limit)
	return keyPrefix + hex.EncodeToString(h.Sum(nil)[:16])
}

// Fingerprint hashes a job collection so that any change to it yields a
// different cache key.
func Fingerprint(postings []jobs.Posting) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, p := range postings {
		// Posting holds only strings, so encoding cannot fail.
		_ = enc.Encode(p)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
