// Package firehose decodes com.atproto.sync.subscribeRepos wire frames:
// the header/payload envelope, the embedded CAR archive of repository
// blocks, and the individual records those blocks contain.
package firehose

import "errors"

// Sentinel errors returned by the decode pipeline, wrapped so callers
// can tell them apart with errors.Is. The post-processor logs any
// decode error, counts it under firehose{op="error"}, and skips the
// frame without aborting the stream.
var (
	// ErrMalformedFrame means the frame did not contain exactly two
	// concatenated CBOR data items (header + payload).
	ErrMalformedFrame = errors.New("firehose: malformed frame")

	// ErrArchiveDecode means the commit's embedded blocks could not be
	// parsed as a CAR v1 archive.
	ErrArchiveDecode = errors.New("firehose: archive decode failed")

	// ErrCidMismatch means a block's declared CID did not match the
	// hash of its bytes. The block is dropped; the frame is not.
	ErrCidMismatch = errors.New("firehose: cid mismatch")

	// ErrUnknownOpType means a repo op's Action field was not one of
	// create, update, or delete.
	ErrUnknownOpType = errors.New("firehose: unknown op type")
)
