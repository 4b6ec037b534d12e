package firehose

import (
	"time"

	"github.com/ipfs/go-cid"
)

// OpAction is the kind of mutation a repo op describes.
type OpAction string

const (
	OpCreate OpAction = "create"
	OpUpdate OpAction = "update"
	OpDelete OpAction = "delete"
)

// Op is one repository mutation carried by a commit.
type Op struct {
	Action OpAction
	Path   string // "<collection>/<rkey>"
	Cid    *cid.Cid
	Prev   *cid.Cid
}

// Block is one content-addressed record recovered from a commit's CAR
// archive, already CID-verified.
type Block struct {
	Cid    cid.Cid
	Record map[string]any // atproto data model, nil if not decodable
	Type   string         // record's "$type" field, "" if absent
}

// Candidate is a single field value pulled out of a record for matching.
type Candidate struct {
	Type  string // record $type this candidate came from
	Field string // field pointer, e.g. "/text"
	Value string
}

// MatchHit is one keyword match against one candidate.
type MatchHit struct {
	Candidate Candidate
	Pattern   string
	Start     int
	End       int
}

// MatchResult groups every hit found for a single candidate.
type MatchResult struct {
	Candidate Candidate
	Hits      []MatchHit
}

// TimedEvent is one classified activity event ready for recording.
type TimedEvent struct {
	AccountDID string
	Kind       string // "post", "reply", "quote", "block", "follow", "like", "profile", "repost", "facet_threshold", "handle", "active", "inactive", "matches"
	Path       string
	At         time.Time
	Detail     string // free-form context, e.g. which threshold tripped
}

// AccountTimeline is the in-memory activity history kept for one account.
type AccountTimeline struct {
	DID    string
	Events []TimedEvent
}
