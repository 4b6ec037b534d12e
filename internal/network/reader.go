// Package network is a thin websocket client that forwards raw
// firehose frames to a post-processor. It carries no decoding logic of
// its own: the wire format is internal/firehose's concern. Mirrors the
// teacher's server-side handleSubscribeRepos (internal/server/xrpc_sync.go)
// on the client side, using the same gorilla/websocket dependency.
package network

import (
	"context"
	"fmt"
	"log"

	"github.com/gorilla/websocket"
)

// FrameSink receives raw frame bytes as they arrive off the wire.
type FrameSink interface {
	Enqueue(raw []byte)
}

// Reader dials a subscribeRepos-shaped websocket endpoint and forwards
// every binary message it receives.
type Reader struct {
	url  string
	sink FrameSink
}

// NewReader creates a Reader for the given websocket URL.
func NewReader(url string, sink FrameSink) *Reader {
	return &Reader{url: url, sink: sink}
}

// Run connects and reads frames until ctx is cancelled or the
// connection drops. It does not retry; the caller decides whether to
// reconnect.
func (r *Reader) Run(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("network: dial %s: %w", r.url, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		conn.Close()
	}()
	defer func() { <-done }()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("network: read: %w", err)
		}
		if msgType != websocket.BinaryMessage {
			log.Printf("network: ignoring non-binary message (type %d)", msgType)
			continue
		}
		r.sink.Enqueue(data)
	}
}
