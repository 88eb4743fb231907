// Package snapshotpublish lets external readers observe book depth
// without touching the live book. The depth copy itself must be taken on
// the goroutine that owns the book (the same one applying updates to
// it) — Publisher never reads a *orderbook.Book itself; it only
// receives already-copied DepthSnapshot values over a channel and
// writes them to Redis, so the only thing ever shared across goroutines
// here is plain data, never the book's internal structures. This is the
// concrete mechanism behind the core's concurrency rule that external
// consumers must read through a snapshot taken on the owning thread,
// never the book itself.
//
// Grounded on a funds-service Redis cache's client construction and
// get/set idiom (internal/funds/cache.go, pkg/xredis/redis.go); since
// there is no generated protobuf schema for book depth in this module's
// dependency set, values are marshaled as JSON rather than protobuf.
package snapshotpublish

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brightline-markets/feedcore/internal/orderbook"
)

// DepthSnapshot is the JSON-serializable book summary published to Redis.
// Its slices are owned copies made at construction time; it carries no
// reference back into a live book.
type DepthSnapshot struct {
	Symbol string               `json:"symbol"`
	Bids   []orderbook.PriceQty `json:"bids"`
	Asks   []orderbook.PriceQty `json:"asks"`
	AsOf   int64                `json:"as_of_unix_nano"`
}

// Publisher writes DepthSnapshot values handed to it to a Redis key. It
// never touches an order book directly.
type Publisher struct {
	client *redis.Client
	symbol string
}

// NewClient constructs a Redis client with the pool/timeout settings this
// pipeline uses for all its connections.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     20,
		MinIdleConns: 2,
	})
}

// New returns a Publisher for symbol.
func New(client *redis.Client, symbol string) *Publisher {
	return &Publisher{client: client, symbol: symbol}
}

func (p *Publisher) key() string {
	return fmt.Sprintf("feedcore:book:%s", p.symbol)
}

// Publish marshals snap and writes it to Redis with a short TTL, so a
// crashed publisher doesn't leave stale readers indefinitely. snap must
// already be a copy — Publish performs no book access of its own.
func (p *Publisher) Publish(ctx context.Context, snap DepthSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, p.key(), payload, 5*time.Second).Err()
}

// Run drains snapshots and writes each to Redis until either ctx is
// cancelled or snapshots is closed. The channel should be fed by the
// goroutine that owns the book, never by Run itself, so the book is
// never read concurrently with the goroutine mutating it.
func (p *Publisher) Run(ctx context.Context, snapshots <-chan DepthSnapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := p.Publish(ctx, snap); err != nil {
				log.Printf("[snapshotpublish] publish failed for %s: %v", snap.Symbol, err)
			}
		}
	}
}

// ReadLatest fetches and unmarshals the most recently published snapshot
// for symbol from Redis. Used by external readers instead of touching the
// live book.
func ReadLatest(ctx context.Context, client *redis.Client, symbol string) (DepthSnapshot, error) {
	key := fmt.Sprintf("feedcore:book:%s", symbol)
	b, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return DepthSnapshot{}, err
	}
	var snap DepthSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return DepthSnapshot{}, err
	}
	return snap, nil
}
