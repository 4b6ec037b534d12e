// Package moderation maintains an in-memory cache of accounts already
// labeled by moderators, polled periodically from the moderation
// database. It is the Go counterpart of the original client's
// bsky::moderation::ozone_adapter (ozone_adapter.cpp), adapted from the
// teacher's pgx connection-pool conventions (internal/database).
package moderation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const labeledQuery = `SELECT DISTINCT("subjectDid") FROM moderation_event WHERE action = 'tools.ozone.moderation.defs#modEventLabel'`

// Cache polls the moderation database on an interval and holds the
// current set of labeled account DIDs behind an atomic pointer, so
// readers never block on the refresh.
type Cache struct {
	pool     *pgxpool.Pool
	connStr  string
	interval time.Duration

	labeled atomic.Pointer[map[string]struct{}]
}

// Connect opens a pool against the moderation database and returns a
// Cache ready to Run. The pool uses the same conservative sizing the
// teacher applies to its own management pool.
func Connect(ctx context.Context, connString string, interval time.Duration) (*Cache, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("moderation: parse config: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("moderation: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("moderation: ping: %w", err)
	}

	log.Printf("moderation: connected to %s", safeConnString(connString))

	empty := make(map[string]struct{})
	c := &Cache{pool: pool, connStr: connString, interval: interval}
	c.labeled.Store(&empty)
	return c, nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() {
	c.pool.Close()
}

// Run polls the moderation database on the configured interval until
// ctx is cancelled, replacing the cached label set each time. The
// first refresh runs immediately when Run starts, before the first
// tick; until it completes, Contains reports false for every account.
func (c *Cache) Run(ctx context.Context) {
	if err := c.refresh(ctx); err != nil {
		log.Printf("moderation: initial refresh failed: %v", err)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.refresh(ctx); err != nil {
				log.Printf("moderation: refresh failed: %v", err)
			}
		}
	}
}

func (c *Cache) refresh(ctx context.Context) error {
	rows, err := c.pool.Query(ctx, labeledQuery)
	if err != nil {
		return fmt.Errorf("moderation: query labeled accounts: %w", err)
	}
	defer rows.Close()

	next := make(map[string]struct{})
	for rows.Next() {
		var did string
		if err := rows.Scan(&did); err != nil {
			return fmt.Errorf("moderation: scan: %w", err)
		}
		next[did] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("moderation: rows: %w", err)
	}

	c.labeled.Store(&next)
	return nil
}

// Contains reports whether an account DID is currently labeled. Safe
// for concurrent use; never blocks on a refresh in progress.
func (c *Cache) Contains(did string) bool {
	set := c.labeled.Load()
	if set == nil {
		return false
	}
	_, ok := (*set)[did]
	return ok
}

// safeConnString masks the password in a connection string before it
// is logged, mirroring ozone_adapter::safe_connection_string.
func safeConnString(connString string) string {
	const sentinel = "password="
	start := strings.Index(connString, sentinel)
	if start == -1 {
		return connString
	}
	start += len(sentinel)
	end := strings.IndexByte(connString[start:], ' ')
	if end == -1 {
		return connString[:start] + "********"
	}
	return connString[:start] + "********" + connString[start+end:]
}
