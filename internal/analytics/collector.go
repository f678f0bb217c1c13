package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/kafka"
)

// Publisher sends a batch of events downstream. *kafka.Producer satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Recorder consumes events in-process. *Aggregator satisfies it.
type Recorder interface {
	Record(event any)
}

// Collector buffers events and flushes them to the Publisher when the batch
// is full or the flush interval elapses. Track never blocks: events are
// dropped when the buffer is full.
type Collector struct {
	publisher     Publisher
	recorder      Recorder
	eventCh       chan kafka.Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}
	closeOnce     sync.Once

	mu      sync.Mutex
	closed  bool
	dropped int64
}

type CollectorOption func(*Collector)

func WithRecorder(r Recorder) CollectorOption {
	return func(c *Collector) { c.recorder = r }
}

func WithBatch(size int, interval time.Duration) CollectorOption {
	return func(c *Collector) {
		if size > 0 {
			c.batchSize = size
		}
		if interval > 0 {
			c.flushInterval = interval
		}
	}
}

// NewCollector creates a Collector. A nil publisher keeps events local to the
// recorder.
func NewCollector(publisher Publisher, bufferSize int, opts ...CollectorOption) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	c := &Collector{
		publisher:     publisher,
		eventCh:       make(chan kafka.Event, bufferSize),
		batchSize:     100,
		flushInterval: 5 * time.Second,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the flush loop. It returns immediately; the loop ends when
// ctx is cancelled or Close is called, after a final flush.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if c.publisher != nil {
			if err := c.publisher.PublishBatch(ctx, batch); err != nil {
				c.logger.Error("batch flush failed", "batch_size", len(batch), "error", err)
			}
		}
		batch = batch[:0]
	}
	final := func() {
		for {
			select {
			case ev, ok := <-c.eventCh:
				if !ok {
					c.finalFlush(flush)
					return
				}
				batch = append(batch, ev)
			default:
				c.finalFlush(flush)
				return
			}
		}
	}

	for {
		select {
		case ev, ok := <-c.eventCh:
			if !ok {
				c.finalFlush(flush)
				return
			}
			batch = append(batch, ev)
			if len(batch) >= c.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			final()
			return
		}
	}
}

func (c *Collector) finalFlush(flush func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	flush(ctx)
}

// Track records event locally and queues it for publishing.
func (c *Collector) Track(event any) {
	if c.recorder != nil {
		c.recorder.Record(event)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- kafka.Event{Key: Key(event), Value: event}:
	default:
		c.dropped++
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (c *Collector) Dropped() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close stops accepting events, flushes what is buffered and waits for the
// loop to exit. Start must have been called.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.eventCh)
		c.mu.Unlock()
	})
	<-c.done
}
