package firehose

import "testing"

func TestComputeCIDDeterministic(t *testing.T) {
	raw := []byte{0xa1, 0x61, 0x61, 0x01} // arbitrary DAG-CBOR-shaped bytes

	c1, err := computeCID(raw)
	if err != nil {
		t.Fatalf("computeCID() error = %v", err)
	}
	c2, err := computeCID(raw)
	if err != nil {
		t.Fatalf("computeCID() error = %v", err)
	}
	if !c1.Equals(c2) {
		t.Errorf("computeCID() not deterministic: %s != %s", c1, c2)
	}
}

func TestComputeCIDDiffersOnInput(t *testing.T) {
	c1, err := computeCID([]byte{0x01})
	if err != nil {
		t.Fatalf("computeCID() error = %v", err)
	}
	c2, err := computeCID([]byte{0x02})
	if err != nil {
		t.Fatalf("computeCID() error = %v", err)
	}
	if c1.Equals(c2) {
		t.Error("computeCID() returned equal CIDs for different input")
	}
}

func TestRecordType(t *testing.T) {
	if got := recordType(map[string]any{"$type": TypeFeedPost}); got != TypeFeedPost {
		t.Errorf("recordType() = %q, want %q", got, TypeFeedPost)
	}
	if got := recordType(map[string]any{}); got != "" {
		t.Errorf("recordType() = %q, want empty string", got)
	}
}
