package pipeline

import (
	"time"

	"github.com/primal-host/firehose-monitor/internal/firehose"
)

// classifyPayload handles every non-commit message type (#identity,
// #handle, #account, #tombstone, #info, #migrate). These carry no
// archive for the Candidate Extractor to walk, so the Post-Processor
// classifies them directly against the decoded payload map, mirroring
// the tail of firehose_payload::handle in the original client. It
// returns any candidates the payload itself contributes (a new handle
// is matched against the rule set exactly like a post's text).
func (p *PostProcessor) classifyPayload(frame *firehose.Frame) []firehose.Candidate {
	payload := frame.Payload
	did := stringField(payload, "did")
	at := parseTimeOrNow(stringField(payload, "time"))

	switch frame.MsgType {
	case "#identity", "#handle":
		handle := stringField(payload, "handle")
		if handle == "" {
			return nil
		}
		p.recorder.Enqueue(firehose.TimedEvent{AccountDID: did, Kind: "handle", At: at, Detail: handle})
		return []firehose.Candidate{{Type: frame.MsgType, Field: "handle", Value: handle}}

	case "#account":
		active, _ := payload["active"].(bool)
		status := stringField(payload, "status")
		p.metrics.IncFirehose(map[string]string{"op": "message", "type": frame.MsgType, "status": activeStatusLabel(active)})
		switch {
		case active:
			p.recorder.Enqueue(firehose.TimedEvent{AccountDID: did, Kind: "active", At: at})
		case status != "":
			p.recorder.Enqueue(firehose.TimedEvent{AccountDID: did, Kind: "inactive", At: at, Detail: status})
		default:
			p.recorder.Enqueue(firehose.TimedEvent{AccountDID: did, Kind: "inactive", At: at, Detail: "unknown"})
		}
		return nil

	case "#tombstone":
		p.recorder.Enqueue(firehose.TimedEvent{AccountDID: did, Kind: "inactive", At: at, Detail: "tombstone"})
		return nil

	default:
		// #info, #migrate: no-op beyond the generic counters already
		// bumped by the caller.
		return nil
	}
}

func activeStatusLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

// handleContent classifies one verified record block into the
// activity events it represents, mirroring
// firehose_payload::handle_content in the original client.
func (p *PostProcessor) handleContent(repo, path string, blk firehose.Block) {
	record := blk.Record
	createdAt := stringField(record, "createdAt")
	at := parseTimeOrNow(createdAt)

	switch blk.Type {
	case firehose.TypeFeedPost:
		p.handlePost(repo, path, record, at)
	case "app.bsky.graph.block":
		p.recorder.Enqueue(firehose.TimedEvent{AccountDID: repo, Kind: "block", Path: path, At: at, Detail: stringField(record, "subject")})
	case "app.bsky.graph.follow":
		p.recorder.Enqueue(firehose.TimedEvent{AccountDID: repo, Kind: "follow", Path: path, At: at, Detail: stringField(record, "subject")})
	case "app.bsky.feed.like":
		p.recorder.Enqueue(firehose.TimedEvent{AccountDID: repo, Kind: "like", Path: path, At: at, Detail: nestedStringField(record, "subject", "uri")})
	case firehose.TypeActorProfile:
		if createdAt == "" {
			at = time.Now().UTC()
		}
		p.recorder.Enqueue(firehose.TimedEvent{AccountDID: repo, Kind: "profile", Path: path, At: at})
	case "app.bsky.feed.repost":
		p.recorder.Enqueue(firehose.TimedEvent{AccountDID: repo, Kind: "repost", Path: path, At: at, Detail: nestedStringField(record, "subject", "uri")})
	}
}

func (p *PostProcessor) handlePost(repo, path string, record map[string]any, at time.Time) {
	// One activity is recorded per post: a quote embed overrides a reply,
	// and a plain post is recorded only when neither applies.
	activity := firehose.TimedEvent{AccountDID: repo, Kind: "post", Path: path, At: at}

	if reply, ok := record["reply"].(map[string]any); ok {
		activity.Kind = "reply"
		activity.Detail = nestedStringField(reply, "root", "uri") + " <- " + nestedStringField(reply, "parent", "uri")
	}

	embed, _ := record["embed"].(map[string]any)
	embedType := stringField(embed, "$type")
	switch embedType {
	case firehose.TypeEmbedRecord:
		activity.Kind = "quote"
		activity.Detail = nestedStringField(embed, "record", "uri")
	case firehose.TypeEmbedRecordWithMedia:
		inner, _ := embed["record"].(map[string]any)
		activity.Kind = "quote"
		activity.Detail = nestedStringField(inner, "record", "uri")
	}

	// Facet counting and language observation both only happen when
	// the record actually declares a facets array, mirroring the
	// original client's nesting (post_processor.cpp) even though an
	// absent facets array would tally zero anyway.
	if _, hasFacets := record["facets"]; hasFacets {
		if embedType == firehose.TypeEmbedVideo {
			for _, lang := range stringSliceField(embed, "langs") {
				p.metrics.IncFirehose(map[string]string{"embed": embedType, "language": lang})
			}
		}

		counts := firehose.CountFacets(record)
		if counts.Mentions > 0 {
			p.metrics.FirehoseFacets.WithLabelValues("mention").Observe(float64(counts.Mentions))
			if counts.Mentions > p.thresholds.Mention {
				p.recorder.Enqueue(firehose.TimedEvent{AccountDID: repo, Kind: "facet_threshold", Path: path, At: at, Detail: "mentions"})
			}
		}
		if counts.Links > 0 {
			p.metrics.FirehoseFacets.WithLabelValues("link").Observe(float64(counts.Links))
			if counts.Links > p.thresholds.Link {
				p.recorder.Enqueue(firehose.TimedEvent{AccountDID: repo, Kind: "facet_threshold", Path: path, At: at, Detail: "links"})
			}
		}
		if counts.Tags > 0 {
			p.metrics.FirehoseFacets.WithLabelValues("tag").Observe(float64(counts.Tags))
			if counts.Tags > p.thresholds.Tag {
				p.recorder.Enqueue(firehose.TimedEvent{AccountDID: repo, Kind: "facet_threshold", Path: path, At: at, Detail: "tags"})
			}
		}
		if counts.Total() > 0 {
			p.metrics.FirehoseFacets.WithLabelValues("total").Observe(float64(counts.Total()))
			if counts.Total() > p.thresholds.Total {
				p.recorder.Enqueue(firehose.TimedEvent{AccountDID: repo, Kind: "facet_threshold", Path: path, At: at, Detail: "total"})
			}
		}

		for _, lang := range stringSliceField(record, "langs") {
			p.metrics.IncFirehose(map[string]string{"collection": firehose.TypeFeedPost, "language": lang})
		}
	}

	p.recorder.Enqueue(activity)
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func stringSliceField(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func nestedStringField(m map[string]any, key, nested string) string {
	if m == nil {
		return ""
	}
	inner, ok := m[key].(map[string]any)
	if !ok {
		return ""
	}
	return stringField(inner, nested)
}

func parseTimeOrNow(iso8601 string) time.Time {
	if iso8601 == "" {
		return time.Now().UTC()
	}
	t, err := time.Parse(time.RFC3339, iso8601)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}
