package firehose

import (
	"bytes"
	"fmt"
	"io"

	atproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/events"
	"github.com/ipfs/go-cid"
)

// Frame is a fully decoded firehose message: its header, and, for
// commit messages, the repository mutation it describes plus every
// content-addressed block that survived CID verification.
type Frame struct {
	Op      int64
	MsgType string

	// Populated only when MsgType == "#commit".
	Repo   string
	Rev    string
	Ops    []Op
	Blocks []Block

	// Payload carries the decoded map for every non-commit message type
	// (#identity, #handle, #account, #tombstone, #info, #migrate). The
	// post-processor classifies these directly since they have no
	// archive for the candidate extractor to walk.
	Payload map[string]any

	// index of Blocks by CID string, built once for candidate
	// extraction's path-by-cid walk.
	blockIndex map[string]Block
}

// DecodeFrame decodes one raw firehose frame: exactly two concatenated
// CBOR data items (header, then payload). Anything other than exactly
// two well-formed items is ErrMalformedFrame.
//
// Non-commit message types (#identity, #account, #info, ...) decode
// their payload into Frame.Payload; Repo/Ops/Blocks stay empty, which
// is sufficient for the post-processor to classify and skip the
// archive-dependent steps.
func DecodeFrame(raw []byte) (*Frame, error) {
	r := bytes.NewReader(raw)

	var header events.EventHeader
	if err := header.UnmarshalCBOR(r); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedFrame, err)
	}
	if r.Len() == 0 {
		return nil, fmt.Errorf("%w: no payload item", ErrMalformedFrame)
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read payload: %v", ErrMalformedFrame, err)
	}

	frame := &Frame{Op: header.Op, MsgType: header.MsgType}

	if header.MsgType != "#commit" {
		// Still must be a single well-formed CBOR item, or the frame
		// boundary invariant is violated.
		decoded, err := decodeRecord(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: payload: %v", ErrMalformedFrame, err)
		}
		frame.Payload = decoded
		return frame, nil
	}

	var commit atproto.SyncSubscribeRepos_Commit
	pr := bytes.NewReader(payload)
	if err := commit.UnmarshalCBOR(pr); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrMalformedFrame, err)
	}
	if pr.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after payload item", ErrMalformedFrame, pr.Len())
	}

	frame.Repo = commit.Repo
	frame.Rev = commit.Rev

	ops := make([]Op, 0, len(commit.Ops))
	for _, o := range commit.Ops {
		op := Op{Action: OpAction(o.Action), Path: o.Path}
		if o.Cid != nil {
			c := cid.Cid(*o.Cid)
			op.Cid = &c
		}
		if o.Prev != nil {
			c := cid.Cid(*o.Prev)
			op.Prev = &c
		}
		ops = append(ops, op)
	}
	frame.Ops = ops

	blocks, err := decodeArchive([]byte(commit.Blocks))
	if err != nil {
		return nil, err
	}
	frame.Blocks = blocks
	frame.blockIndex = blocksByCid(blocks)

	return frame, nil
}

// BlockForOp returns the verified, decoded block a create/update op
// points at, or false if it wasn't present or didn't survive
// verification. Duplicate cid targets across ops in the same frame
// keep whichever block was indexed first; callers that need to detect
// the duplicate itself should inspect Ops directly.
func (f *Frame) BlockForOp(op Op) (Block, bool) {
	if op.Cid == nil {
		return Block{}, false
	}
	blk, ok := f.blockIndex[op.Cid.String()]
	return blk, ok
}
