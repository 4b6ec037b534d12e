package matcher

import "testing"

func TestCanonicalize(t *testing.T) {
	if got := Canonicalize("HELLO World"); got != "hello world" {
		t.Errorf("Canonicalize() = %q, want %q", got, "hello world")
	}
}

func TestMatchesAny(t *testing.T) {
	m, err := New([]Rule{{Pattern: "spam"}, {Pattern: "scam"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !m.MatchesAny("this is SPAM content") {
		t.Error("MatchesAny() = false, want true (case-insensitive substring match)")
	}
	if m.MatchesAny("perfectly fine text") {
		t.Error("MatchesAny() = true, want false")
	}
}

func TestMatchesReturnsPatternIdentity(t *testing.T) {
	m, err := New([]Rule{{Pattern: "foo"}, {Pattern: "bar"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	hits := m.Matches("a foo and a bar in one string")
	if len(hits) != 2 {
		t.Fatalf("Matches() = %v, want 2 hits", hits)
	}
	patterns := map[string]bool{hits[0].Pattern: true, hits[1].Pattern: true}
	if !patterns["foo"] || !patterns["bar"] {
		t.Errorf("Matches() patterns = %v, want {foo bar}", patterns)
	}
}
