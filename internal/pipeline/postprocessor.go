// Package pipeline runs the two long-lived consumer stages: the
// post-processor, which decodes and classifies each firehose frame,
// and the activity recorder, which owns per-account timelines. Both
// are bounded, channel-based workers adapted from the teacher's
// internal/events.Manager fan-out shape (primal-host-primal-pds), with
// classification logic grounded in the original client's
// post_processor.cpp.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/primal-host/firehose-monitor/internal/firehose"
	"github.com/primal-host/firehose-monitor/internal/matcher"
	"github.com/primal-host/firehose-monitor/internal/metrics"
	"github.com/primal-host/firehose-monitor/internal/moderation"
)

// Thresholds configures the facet counts that promote a post into a
// recorded activity event, in addition to whatever a rule-set match
// reports. Defaults mirror the original client's Pushy* constants.
type Thresholds struct {
	Mention int
	Link    int
	Tag     int
	Total   int
}

// DefaultThresholds returns the thresholds recovered from the original
// client (helpers.hpp: PushyMentionCount/PushyTagCount/PushyTotalCount).
func DefaultThresholds() Thresholds {
	return Thresholds{
		Mention: firehose.MentionThreshold,
		Link:    firehose.LinkThreshold,
		Tag:     firehose.TagThreshold,
		Total:   firehose.TotalThreshold,
	}
}

// PostProcessor decodes raw frames pulled off its bounded queue,
// extracts and matches candidates, emits metrics, and forwards
// classified activity to a Recorder.
type PostProcessor struct {
	queue      chan []byte
	matcher    *matcher.Matcher
	metrics    *metrics.Registry
	recorder   *Recorder
	labeled    *moderation.Cache
	thresholds Thresholds
}

// NewPostProcessor creates a post-processor with the given bounded
// queue capacity. labeled may be nil, in which case the
// already-labeled suppression check is skipped.
func NewPostProcessor(queueSize int, m *matcher.Matcher, reg *metrics.Registry, rec *Recorder, labeled *moderation.Cache, th Thresholds) *PostProcessor {
	return &PostProcessor{
		queue:      make(chan []byte, queueSize),
		matcher:    m,
		metrics:    reg,
		recorder:   rec,
		labeled:    labeled,
		thresholds: th,
	}
}

// Enqueue submits a raw frame for processing. It blocks when the queue
// is full, applying backpressure to the network reader rather than
// dropping frames.
func (p *PostProcessor) Enqueue(raw []byte) {
	p.metrics.Operational.WithLabelValues("post_backlog").Inc()
	p.queue <- raw
}

// Run drains the queue until ctx is cancelled and the queue is empty,
// then returns. Each frame's errors are absorbed: they are logged and
// metriced, never propagated, so one malformed frame never stops the
// stream.
func (p *PostProcessor) Run(ctx context.Context) {
	for {
		select {
		case raw, ok := <-p.queue:
			if !ok {
				return
			}
			p.metrics.Operational.WithLabelValues("post_backlog").Dec()
			p.process(raw)
		case <-ctx.Done():
			p.drain()
			return
		}
	}
}

// drain processes whatever is already queued after a shutdown signal,
// without accepting anything new (Enqueue is expected to stop being
// called once shutdown begins).
func (p *PostProcessor) drain() {
	for {
		select {
		case raw, ok := <-p.queue:
			if !ok {
				return
			}
			p.metrics.Operational.WithLabelValues("post_backlog").Dec()
			p.process(raw)
		default:
			return
		}
	}
}

func (p *PostProcessor) process(raw []byte) {
	frame, err := firehose.DecodeFrame(raw)
	if err != nil {
		log.Printf("pipeline: %v", err)
		p.metrics.IncFirehose(map[string]string{"op": "error"})
		return
	}

	if frame.Op == -1 {
		p.metrics.IncFirehose(map[string]string{"op": "error"})
		return
	}
	p.metrics.IncFirehose(map[string]string{"op": "message"})
	p.metrics.IncFirehose(map[string]string{"op": "message", "type": frame.MsgType})

	if frame.MsgType != "#commit" {
		candidates := p.classifyPayload(frame)
		repo := frame.Repo
		if repo == "" {
			repo = stringField(frame.Payload, "did")
		}
		p.finishMatching(repo, candidates)
		return
	}

	var candidates []firehose.Candidate
	pathByCid := make(map[string]string, len(frame.Ops))

	for _, op := range frame.Ops {
		collection, _, err := splitPath(op.Path)
		if err != nil {
			log.Printf("pipeline: %v", err)
			continue
		}
		p.metrics.IncFirehose(map[string]string{"op": "message", "type": frame.MsgType, "collection": collection, "kind": string(op.Action)})

		if op.Cid == nil {
			continue
		}
		key := op.Cid.String()
		if existing, dup := pathByCid[key]; dup {
			log.Printf("pipeline: duplicate cid %s at path %s, already used for path %s", key, op.Path, existing)
			continue
		}
		pathByCid[key] = op.Path
	}

	for _, blk := range frame.Blocks {
		if blk.Record == nil {
			continue
		}
		candidates = append(candidates, firehose.ExtractCandidates(blk.Record)...)
		candidates = append(candidates, firehose.ExtractEmbedCandidates(blk.Record)...)
	}

	for _, op := range frame.Ops {
		blk, ok := frame.BlockForOp(op)
		if !ok || blk.Record == nil {
			continue
		}
		p.handleContent(frame.Repo, op.Path, blk)
	}

	p.finishMatching(frame.Repo, candidates)
}

// finishMatching runs the matcher over one message's candidates,
// publishes match metrics, and -- unless the account is already
// labeled -- enqueues a summary "matches" activity event. Shared by
// both commit and non-commit message handling.
func (p *PostProcessor) finishMatching(repo string, candidates []firehose.Candidate) {
	if len(candidates) == 0 {
		return
	}

	matchCount := 0
	for _, cand := range candidates {
		hits := p.matcher.Matches(cand.Value)
		for _, hit := range hits {
			p.metrics.MatchedElements.WithLabelValues(hit.Pattern, cand.Type, cand.Field).Inc()
			matchCount++
		}
	}
	if matchCount == 0 {
		return
	}

	if p.labeled != nil && p.labeled.Contains(repo) {
		p.metrics.RealtimeAlerts.WithLabelValues("suppressed").Inc()
		return
	}
	p.metrics.RealtimeAlerts.WithLabelValues("reported").Inc()

	p.recorder.Enqueue(firehose.TimedEvent{
		AccountDID: repo,
		Kind:       "matches",
		At:         time.Now().UTC(),
		Detail:     fmt.Sprintf("%d rule match(es)", matchCount),
	})
}

// splitPath separates an op's "<collection>/<rkey>" path, rejecting a
// blank collection or key -- the original client treats either as a
// hard parse error (std::invalid_argument in post_processor.cpp).
func splitPath(path string) (collection, rkey string, err error) {
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			collection, rkey = path[:i], path[i+1:]
			if collection == "" {
				return "", "", fmt.Errorf("blank collection in op.path %q", path)
			}
			if rkey == "" {
				return "", "", fmt.Errorf("blank key in op.path %q", path)
			}
			return collection, rkey, nil
		}
	}
	return "", "", fmt.Errorf("malformed op.path %q", path)
}
