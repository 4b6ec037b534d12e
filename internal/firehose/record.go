package firehose

import (
	"fmt"

	"github.com/bluesky-social/indigo/atproto/data"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// decodeRecord converts DAG-CBOR bytes into the atproto data model: a
// map[string]any whose nested values are strings, numbers, bools, byte
// slices, nested maps/slices, and CID links for "$link"-shaped values.
func decodeRecord(cborBytes []byte) (map[string]any, error) {
	return data.UnmarshalCBOR(cborBytes)
}

// computeCID returns the CIDv1 (SHA-256, DAG-CBOR codec) of raw block
// bytes, used to verify a block's claimed identity.
func computeCID(raw []byte) (cid.Cid, error) {
	builder := cid.NewPrefixV1(cid.DagCBOR, multihash.SHA2_256)
	return builder.Sum(raw)
}

// recordType returns the "$type" field of a decoded record, or "" if
// absent or not a string.
func recordType(record map[string]any) string {
	t, _ := record["$type"].(string)
	return t
}

// verifyBlock decodes raw bytes into a Block and confirms its hash
// matches claimedCid. A hash mismatch returns ErrCidMismatch and the
// block should be dropped, not the whole frame.
func verifyBlock(claimedCid cid.Cid, raw []byte) (Block, error) {
	actual, err := computeCID(raw)
	if err != nil {
		return Block{}, fmt.Errorf("firehose: hash block: %w", err)
	}
	if !actual.Equals(claimedCid) {
		return Block{}, fmt.Errorf("%w: claimed %s, computed %s", ErrCidMismatch, claimedCid, actual)
	}

	record, err := decodeRecord(raw)
	if err != nil {
		// Not every block is a record (e.g. MST nodes); callers only
		// care about blocks that decode into records.
		return Block{Cid: claimedCid, Record: nil}, nil
	}
	return Block{Cid: claimedCid, Record: record, Type: recordType(record)}, nil
}
