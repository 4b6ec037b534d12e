package firehose

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"

	car "github.com/ipld/go-car"
)

// decodeArchive parses a commit's embedded "blocks" bytes as a CAR v1
// archive and returns every block that verifies against its own CID.
// Blocks whose hash doesn't match are logged and dropped rather than
// failing the whole archive, matching the post-processor's general
// policy of absorbing per-block errors.
func decodeArchive(raw []byte) ([]Block, error) {
	reader, err := car.NewCarReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveDecode, err)
	}

	var out []Block
	for {
		blk, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArchiveDecode, err)
		}

		verified, err := verifyBlock(blk.Cid(), blk.RawData())
		if err != nil {
			log.Printf("firehose: dropping block %s: %v", blk.Cid(), err)
			continue
		}
		out = append(out, verified)
	}
	return out, nil
}

// blocksByCid indexes decoded blocks for path-by-cid lookups while
// walking a commit's ops.
func blocksByCid(blks []Block) map[string]Block {
	idx := make(map[string]Block, len(blks))
	for _, b := range blks {
		key := b.Cid.String()
		if _, dup := idx[key]; !dup {
			idx[key] = b
		}
	}
	return idx
}
