package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SummaryStore caches summaries by page digest so an unchanged-by-digest
// page never hits the paid summarizer twice. It is deliberately separate
// from the item cache: digests are content-addressed, items are keyed by
// source identity.
type SummaryStore interface {
	Get(digest string) (string, bool)
	Put(digest, summary string)
	// Flush persists pending entries; stores that write through may no-op.
	Flush() error
}

// FileSummaryStore keeps digest->summary pairs in a JSON file with the
// same atomic-save discipline as the item cache.
type FileSummaryStore struct {
	path string

	mu      sync.Mutex
	entries map[string]string
}

// NewFileSummaryStore loads the existing summary cache, tolerating a
// missing or corrupt file as an empty store.
func NewFileSummaryStore(path string) *FileSummaryStore {
	s := &FileSummaryStore{path: path, entries: make(map[string]string)}
	if data, err := os.ReadFile(path); err == nil {
		var entries map[string]string
		if err := json.Unmarshal(data, &entries); err == nil {
			s.entries = entries
		}
	}
	return s
}

func (s *FileSummaryStore) Get(digest string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[digest]
	return v, ok
}

func (s *FileSummaryStore) Put(digest, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[digest] = summary
}

// Flush writes the store atomically (temp file + rename).
func (s *FileSummaryStore) Flush() error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.entries, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding summary cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating summary cache dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing summary cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing summary cache: %w", err)
	}
	return nil
}

const redisOpTimeout = 5 * time.Second

// RedisSummaryStore writes summaries through to Redis. Used on deployments
// without a durable volume, where the file store would not survive restarts.
type RedisSummaryStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSummaryStore connects to Redis and verifies the connection.
func NewRedisSummaryStore(addr, password string, db int, ttl time.Duration) (*RedisSummaryStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisSummaryStore{client: client, prefix: "policywatch:summary:", ttl: ttl}, nil
}

func (s *RedisSummaryStore) Get(digest string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	v, err := s.client.Get(ctx, s.prefix+digest).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (s *RedisSummaryStore) Put(digest, summary string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	s.client.Set(ctx, s.prefix+digest, summary, s.ttl)
}

// Flush is a no-op: Redis writes are already durable server-side.
func (s *RedisSummaryStore) Flush() error { return nil }

// Close releases the Redis connection.
func (s *RedisSummaryStore) Close() error { return s.client.Close() }
