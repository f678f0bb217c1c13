package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_PublishBatch(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "match-analytics")
	err := p.PublishBatch(context.Background(), []Event{
		{Key: "match", Value: map[string]int{"top_score": 80}},
		{Key: "extract", Value: map[string]int{"skills": 9}},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "match", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"top_score":80}`, string(w.msgs[0].Value))
}

func TestProducer_Errors(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newProducer(w, "t")
	assert.ErrorContains(t, p.Publish(context.Background(), Event{Key: "k", Value: 1}), "broker down")
	assert.Error(t, p.Publish(context.Background(), Event{Key: "k", Value: make(chan int)}))
	assert.NoError(t, p.PublishBatch(context.Background(), nil))
}

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.pending[0]
	r.pending = r.pending[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func TestConsumer_CommitsHandledMessages(t *testing.T) {
	r := &fakeReader{pending: []kafka.Message{
		{Offset: 1, Value: []byte(`{"n":1}`)},
		{Offset: 2, Value: []byte(`bad`)},
		{Offset: 3, Value: []byte(`{"n":3}`)},
	}}
	var seen []int
	c := newConsumer(r, "t", func(_ context.Context, _ []byte, value []byte) error {
		v, err := DecodeJSON[struct{ N int }](value)
		if err != nil {
			return err
		}
		seen = append(seen, v.N)
		return nil
	})
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, []int{1, 3}, seen)
	assert.Equal(t, []int64{1, 3}, r.committed)
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	r := &fakeReader{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newConsumer(r, "t", func(context.Context, []byte, []byte) error { return nil })
	require.NoError(t, c.Start(ctx))
	assert.True(t, r.closed)
}

func TestPing_NoBrokers(t *testing.T) {
	require.Error(t, Ping(context.Background(), nil))
}

func TestPing_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	err := Ping(ctx, []string{"127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka unreachable")
}
