package firehose

import "testing"

func TestExtractCandidatesPost(t *testing.T) {
	record := map[string]any{
		"$type": TypeFeedPost,
		"text":  "hello world",
	}

	got := ExtractCandidates(record)
	if len(got) != 1 {
		t.Fatalf("ExtractCandidates() = %v, want 1 candidate", got)
	}
	if got[0].Field != "/text" || got[0].Value != "hello world" {
		t.Errorf("ExtractCandidates() = %+v, want field /text value %q", got[0], "hello world")
	}
}

func TestExtractCandidatesUnknownType(t *testing.T) {
	record := map[string]any{"$type": "app.bsky.feed.like", "subject": "x"}
	if got := ExtractCandidates(record); got != nil {
		t.Errorf("ExtractCandidates() = %v, want nil for unmapped collection", got)
	}
}

func TestExtractCandidatesEmptyFieldSkipped(t *testing.T) {
	record := map[string]any{"$type": TypeFeedPost, "text": ""}
	if got := ExtractCandidates(record); len(got) != 0 {
		t.Errorf("ExtractCandidates() = %v, want no candidates for empty text", got)
	}
}

func TestExtractEmbedCandidatesExternal(t *testing.T) {
	record := map[string]any{
		"$type": TypeFeedPost,
		"text":  "check this out",
		"embed": map[string]any{
			"$type": TypeEmbedExternal,
			"external": map[string]any{
				"uri":   "https://example.com",
				"title": "Example",
			},
		},
	}

	got := ExtractEmbedCandidates(record)
	if len(got) != 2 {
		t.Fatalf("ExtractEmbedCandidates() = %v, want 2 candidates", got)
	}
}

func TestCountFacets(t *testing.T) {
	record := map[string]any{
		"facets": []any{
			map[string]any{
				"features": []any{
					map[string]any{"$type": FacetMention},
					map[string]any{"$type": FacetTag},
					map[string]any{"$type": FacetLink},
				},
			},
			map[string]any{
				"features": []any{
					map[string]any{"$type": FacetMention},
				},
			},
		},
	}

	counts := CountFacets(record)
	if counts.Mentions != 2 || counts.Links != 1 || counts.Tags != 1 {
		t.Fatalf("CountFacets() = %+v, want {Mentions:2 Links:1 Tags:1}", counts)
	}
	if counts.Total() != 4 {
		t.Errorf("Total() = %d, want 4", counts.Total())
	}
}

func TestFacetCountsExceedsThreshold(t *testing.T) {
	counts := FacetCounts{Mentions: 5}
	if !counts.ExceedsThreshold(4, 4, 4, 6) {
		t.Error("ExceedsThreshold() = false, want true when mentions exceeds threshold")
	}
	counts = FacetCounts{Mentions: 4}
	if counts.ExceedsThreshold(4, 4, 4, 6) {
		t.Error("ExceedsThreshold() = true, want false when mentions only meets (not exceeds) threshold")
	}
	counts = FacetCounts{Mentions: 1}
	if counts.ExceedsThreshold(4, 4, 4, 6) {
		t.Error("ExceedsThreshold() = true, want false when nothing meets a threshold")
	}
}

func TestLookupPointerNested(t *testing.T) {
	record := map[string]any{
		"a": map[string]any{
			"b": "value",
		},
	}
	v, ok := lookupPointer(record, "/a/b")
	if !ok || v != "value" {
		t.Errorf("lookupPointer(/a/b) = (%v, %v), want (value, true)", v, ok)
	}

	if _, ok := lookupPointer(record, "/a/missing"); ok {
		t.Error("lookupPointer(/a/missing) = true, want false")
	}
}
