package pipeline

import (
	"testing"
	"time"

	"github.com/primal-host/firehose-monitor/internal/firehose"
	"github.com/primal-host/firehose-monitor/internal/matcher"
	"github.com/primal-host/firehose-monitor/internal/metrics"
)

type testSink struct {
	events []firehose.TimedEvent
}

func (s *testSink) Append(accountDID string, event firehose.TimedEvent) {
	s.events = append(s.events, event)
}

func newTestPostProcessor(t *testing.T) (*PostProcessor, *testSink) {
	t.Helper()
	m, err := matcher.New([]matcher.Rule{{Pattern: "cat"}})
	if err != nil {
		t.Fatalf("matcher.New() error = %v", err)
	}
	reg := metrics.New()
	sink := &testSink{}
	rec := NewRecorder(10, sink, reg)
	return NewPostProcessor(10, m, reg, rec, nil, DefaultThresholds()), sink
}

func mentionFacets(n int) []any {
	facets := make([]any, n)
	for i := range facets {
		facets[i] = map[string]any{"features": []any{map[string]any{"$type": firehose.FacetMention}}}
	}
	return facets
}

// Scenario 5 (spec §8): an account payload with active=false and
// status="tombstone" produces an inactive(tombstone) activity for the
// did in the payload, timestamped at the payload's time.
func TestClassifyPayloadAccountTombstoneStatus(t *testing.T) {
	pp, sink := newTestPostProcessor(t)

	frame := &firehose.Frame{
		MsgType: "#account",
		Payload: map[string]any{
			"did":    "did:plc:example",
			"active": false,
			"status": "tombstone",
			"time":   "2026-01-01T00:00:00Z",
		},
	}

	candidates := pp.classifyPayload(frame)
	pp.recorder.drain()
	if len(candidates) != 0 {
		t.Fatalf("classifyPayload() candidates = %v, want none", candidates)
	}
	if len(sink.events) != 1 {
		t.Fatalf("events = %v, want 1", sink.events)
	}
	got := sink.events[0]
	if got.AccountDID != "did:plc:example" || got.Kind != "inactive" || got.Detail != "tombstone" {
		t.Errorf("event = %+v, want inactive(tombstone) for did:plc:example", got)
	}
	want, _ := time.Parse(time.RFC3339, "2026-01-01T00:00:00Z")
	if !got.At.Equal(want) {
		t.Errorf("At = %v, want %v", got.At, want)
	}
}

func TestClassifyPayloadAccountActive(t *testing.T) {
	pp, sink := newTestPostProcessor(t)

	frame := &firehose.Frame{
		MsgType: "#account",
		Payload: map[string]any{"did": "did:plc:example", "active": true, "time": "2026-01-01T00:00:00Z"},
	}

	pp.classifyPayload(frame)
	pp.recorder.drain()
	if len(sink.events) != 1 || sink.events[0].Kind != "active" {
		t.Fatalf("events = %v, want one active event", sink.events)
	}
}

func TestClassifyPayloadAccountInactiveNoStatus(t *testing.T) {
	pp, sink := newTestPostProcessor(t)

	frame := &firehose.Frame{
		MsgType: "#account",
		Payload: map[string]any{"did": "did:plc:example", "active": false, "time": "2026-01-01T00:00:00Z"},
	}

	pp.classifyPayload(frame)
	pp.recorder.drain()
	if len(sink.events) != 1 || sink.events[0].Kind != "inactive" || sink.events[0].Detail != "unknown" {
		t.Fatalf("events = %v, want one inactive(unknown) event", sink.events)
	}
}

func TestClassifyPayloadTombstoneMessage(t *testing.T) {
	pp, sink := newTestPostProcessor(t)

	frame := &firehose.Frame{
		MsgType: "#tombstone",
		Payload: map[string]any{"did": "did:plc:example", "time": "2026-01-01T00:00:00Z"},
	}

	pp.classifyPayload(frame)
	pp.recorder.drain()
	if len(sink.events) != 1 || sink.events[0].Kind != "inactive" || sink.events[0].Detail != "tombstone" {
		t.Fatalf("events = %v, want one inactive(tombstone) event", sink.events)
	}
}

func TestClassifyPayloadHandle(t *testing.T) {
	pp, sink := newTestPostProcessor(t)

	frame := &firehose.Frame{
		MsgType: "#identity",
		Payload: map[string]any{
			"did":    "did:plc:example",
			"handle": "cat.bsky.social",
			"time":   "2026-01-01T00:00:00Z",
		},
	}

	candidates := pp.classifyPayload(frame)
	pp.recorder.drain()
	if len(candidates) != 1 || candidates[0].Value != "cat.bsky.social" {
		t.Fatalf("classifyPayload() candidates = %v, want one handle candidate", candidates)
	}
	if len(sink.events) != 1 || sink.events[0].Kind != "handle" {
		t.Fatalf("events = %v, want one handle event", sink.events)
	}
}

func TestClassifyPayloadInfoIsNoOp(t *testing.T) {
	pp, sink := newTestPostProcessor(t)

	frame := &firehose.Frame{MsgType: "#info", Payload: map[string]any{}}

	if candidates := pp.classifyPayload(frame); candidates != nil {
		t.Errorf("classifyPayload() candidates = %v, want none", candidates)
	}
	pp.recorder.drain()
	if len(sink.events) != 0 {
		t.Errorf("events = %v, want none", sink.events)
	}
}

// Facet thresholds are strict (>), not inclusive (>=): exactly
// MentionThreshold mentions must not fire facet_threshold.
func TestHandlePostFacetThresholdIsStrict(t *testing.T) {
	pp, sink := newTestPostProcessor(t)

	record := map[string]any{
		"$type":  firehose.TypeFeedPost,
		"facets": mentionFacets(firehose.MentionThreshold),
		"embed":  map[string]any{"$type": "app.bsky.embed.images"},
	}

	pp.handlePost("did:plc:example", "app.bsky.feed.post/1", record, time.Now())
	pp.recorder.drain()

	for _, ev := range sink.events {
		if ev.Kind == "facet_threshold" {
			t.Errorf("facet_threshold fired at exactly MentionThreshold mentions, want strict >, events = %v", sink.events)
		}
	}
}

func TestHandlePostFacetThresholdFiresWhenExceeded(t *testing.T) {
	pp, sink := newTestPostProcessor(t)

	record := map[string]any{
		"$type":  firehose.TypeFeedPost,
		"facets": mentionFacets(firehose.MentionThreshold + 1),
		"embed":  map[string]any{"$type": "app.bsky.embed.images"},
	}

	pp.handlePost("did:plc:example", "app.bsky.feed.post/1", record, time.Now())
	pp.recorder.drain()

	found := false
	for _, ev := range sink.events {
		if ev.Kind == "facet_threshold" && ev.Detail == "mentions" {
			found = true
		}
	}
	if !found {
		t.Errorf("events = %v, want a facet_threshold(mentions) event", sink.events)
	}
}

// Tag count is seeded from the top-level "tags" field and augmented by
// #tag facet features (spec §4.3).
func TestCountFacetsIncludesTopLevelTags(t *testing.T) {
	record := map[string]any{
		"tags": []any{"one", "two"},
		"facets": []any{
			map[string]any{"features": []any{map[string]any{"$type": firehose.FacetTag}}},
		},
	}

	counts := firehose.CountFacets(record)
	if counts.Tags != 3 {
		t.Errorf("Tags = %d, want 3 (2 top-level + 1 facet)", counts.Tags)
	}
}
