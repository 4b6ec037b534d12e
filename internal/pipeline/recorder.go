package pipeline

import (
	"context"
	"sync"

	"github.com/primal-host/firehose-monitor/internal/firehose"
	"github.com/primal-host/firehose-monitor/internal/metrics"
)

// Sink persists or otherwise consumes a classified activity event. The
// reference implementation below (memorySink) keeps timelines
// in-process; a durable sink can be substituted without touching the
// recorder's concurrency model.
type Sink interface {
	Append(accountDID string, event firehose.TimedEvent)
}

// memorySink keeps an AccountTimeline per account DID, exactly as the
// original client's activity::account_events does before any
// persistence layer is involved.
type memorySink struct {
	mu        sync.Mutex
	timelines map[string]*firehose.AccountTimeline
}

func newMemorySink() *memorySink {
	return &memorySink{timelines: make(map[string]*firehose.AccountTimeline)}
}

func (s *memorySink) Append(accountDID string, event firehose.TimedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timelines[accountDID]
	if !ok {
		t = &firehose.AccountTimeline{DID: accountDID}
		s.timelines[accountDID] = t
	}
	t.Events = append(t.Events, event)
}

// Timeline returns a copy of the recorded events for an account, or nil
// if none have been recorded.
func (s *memorySink) Timeline(accountDID string) []firehose.TimedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timelines[accountDID]
	if !ok {
		return nil
	}
	out := make([]firehose.TimedEvent, len(t.Events))
	copy(out, t.Events)
	return out
}

// Recorder owns the bounded queue of classified activity events and a
// single Sink. It is the Go counterpart of activity::event_recorder:
// wait_enqueue/wait_dequeue become a buffered channel, and the
// operational_stats{stat="events_backlog"} gauge is bumped on enqueue
// and decremented on dequeue, as in event_recorder.cpp.
type Recorder struct {
	queue   chan firehose.TimedEvent
	sink    Sink
	metrics *metrics.Registry
}

// NewRecorder creates a recorder with the given bounded queue capacity.
// If sink is nil, an in-memory sink is used.
func NewRecorder(queueSize int, sink Sink, reg *metrics.Registry) *Recorder {
	if sink == nil {
		sink = newMemorySink()
	}
	return &Recorder{
		queue:   make(chan firehose.TimedEvent, queueSize),
		sink:    sink,
		metrics: reg,
	}
}

// Enqueue submits a classified event for recording. It blocks when the
// queue is full.
func (r *Recorder) Enqueue(event firehose.TimedEvent) {
	r.metrics.Operational.WithLabelValues("events_backlog").Inc()
	r.queue <- event
}

// Run drains the queue until ctx is cancelled and the queue is empty.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case event, ok := <-r.queue:
			if !ok {
				return
			}
			r.metrics.Operational.WithLabelValues("events_backlog").Dec()
			r.sink.Append(event.AccountDID, event)
		case <-ctx.Done():
			r.drain()
			return
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case event, ok := <-r.queue:
			if !ok {
				return
			}
			r.metrics.Operational.WithLabelValues("events_backlog").Dec()
			r.sink.Append(event.AccountDID, event)
		default:
			return
		}
	}
}
