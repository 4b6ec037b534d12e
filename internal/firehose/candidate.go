package firehose

import "strings"

// Known record and facet type strings, carried over from the original
// client's lexicon table (original helpers.hpp).
const (
	TypeFeedPost     = "app.bsky.feed.post"
	TypeActorProfile = "app.bsky.actor.profile"

	TypeEmbedExternal       = "app.bsky.embed.external"
	TypeEmbedImages         = "app.bsky.embed.images"
	TypeEmbedRecord         = "app.bsky.embed.record"
	TypeEmbedRecordWithMedia = "app.bsky.embed.recordWithMedia"
	TypeEmbedVideo          = "app.bsky.embed.video"

	FacetLink    = "app.bsky.richtext.facet#link"
	FacetMention = "app.bsky.richtext.facet#mention"
	FacetTag     = "app.bsky.richtext.facet#tag"
)

// Threshold constants recovered from the original client's
// PushyMentionCount/PushyTagCount/PushyTotalCount (helpers.hpp). A post
// whose facet count strictly exceeds any of these is flagged regardless
// of whether its text also matches the rule set.
const (
	MentionThreshold = 4
	LinkThreshold    = 4
	TagThreshold     = 4
	TotalThreshold   = 6
)

// targetFields maps a record's collection ($type) to the field
// pointers whose string values are candidate matcher input. Mirrors
// json::TargetFieldNames from the original client.
var targetFields = map[string][]string{
	TypeFeedPost:     {"/text"},
	TypeActorProfile: {"/description", "/displayName"},
}

// ExtractCandidates walks a decoded record's known text-bearing fields
// and returns one Candidate per non-empty string found. Embeds are
// walked separately by ExtractEmbedCandidates since their shape varies
// by embed type.
func ExtractCandidates(record map[string]any) []Candidate {
	typ := recordType(record)
	fields, ok := targetFields[typ]
	if !ok {
		return nil
	}

	var out []Candidate
	for _, field := range fields {
		v, ok := lookupPointer(record, field)
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		out = append(out, Candidate{Type: typ, Field: field, Value: s})
	}
	return out
}

// ExtractEmbedCandidates pulls matchable text out of a post's embed,
// following the original client's per-embed-type field list. Quote
// posts (app.bsky.embed.record / recordWithMedia) contribute no text
// of their own here -- their classification as an activity event is
// handled by the post-processor's Matryoshka quote-override rule.
func ExtractEmbedCandidates(record map[string]any) []Candidate {
	embed, ok := lookupPointer(record, "/embed")
	if !ok {
		return nil
	}
	embedMap, ok := embed.(map[string]any)
	if !ok {
		return nil
	}

	typ := recordType(embedMap)
	var out []Candidate

	switch typ {
	case TypeEmbedExternal:
		if v, ok := lookupPointer(embedMap, "/external/uri"); ok {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, Candidate{Type: typ, Field: "/external/uri", Value: s})
			}
		}
		if v, ok := lookupPointer(embedMap, "/external/title"); ok {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, Candidate{Type: typ, Field: "/external/title", Value: s})
			}
		}
		if v, ok := lookupPointer(embedMap, "/external/description"); ok {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, Candidate{Type: typ, Field: "/external/description", Value: s})
			}
		}
	}

	return out
}

// lookupPointer resolves a slash-delimited field pointer ("/a/b")
// against nested map[string]any values, JSON-Pointer style.
func lookupPointer(record map[string]any, pointer string) (any, bool) {
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	var cur any = record
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// FacetCounts tallies richtext facet features on a post record by
// feature type, for comparison against the Pushy* thresholds.
type FacetCounts struct {
	Links    int
	Mentions int
	Tags     int
}

// Total is the sum of all facet kinds, compared against TotalThreshold.
func (f FacetCounts) Total() int {
	return f.Links + f.Mentions + f.Tags
}

// ExceedsThreshold reports whether any individual facet count or the
// combined total strictly exceeds its configured threshold (the
// original client's `if (mentions > MentionFacetThreshold)`, not >=).
func (f FacetCounts) ExceedsThreshold(mention, link, tag, total int) bool {
	return f.Mentions > mention || f.Links > link || f.Tags > tag || f.Total() > total
}

// CountFacets tallies the facet features attached to a post record's
// "facets" array. The tag count is seeded from the top-level "tags"
// field, if present, and augmented by any #tag facet features -- the
// original client counts both into one tally.
func CountFacets(record map[string]any) FacetCounts {
	var counts FacetCounts

	if tags, ok := record["tags"].([]any); ok {
		counts.Tags = len(tags)
	}

	facetsVal, ok := record["facets"]
	if !ok {
		return counts
	}
	facets, ok := facetsVal.([]any)
	if !ok {
		return counts
	}

	for _, f := range facets {
		facet, ok := f.(map[string]any)
		if !ok {
			continue
		}
		featuresVal, ok := facet["features"]
		if !ok {
			continue
		}
		features, ok := featuresVal.([]any)
		if !ok {
			continue
		}
		for _, feat := range features {
			featMap, ok := feat.(map[string]any)
			if !ok {
				continue
			}
			switch recordType(featMap) {
			case FacetLink:
				counts.Links++
			case FacetMention:
				counts.Mentions++
			case FacetTag:
				counts.Tags++
			}
		}
	}
	return counts
}
