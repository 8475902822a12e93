package sync

import (
	"hash/maphash"
	"sync"
)

const defaultShards = 32

// ShardedMap spreads string-keyed entries over independently locked shards so
// that operations on different keys rarely contend. All access goes through
// Do and Range, which hold the shard lock for the duration of the callback.
type ShardedMap[V any] struct {
	seed   maphash.Seed
	shards []shard[V]
}

type shard[V any] struct {
	mu    sync.Mutex
	items map[string]V
}

// NewShardedMap creates a map with n shards (32 when n <= 0).
func NewShardedMap[V any](n int) *ShardedMap[V] {
	if n <= 0 {
		n = defaultShards
	}
	m := &ShardedMap[V]{seed: maphash.MakeSeed(), shards: make([]shard[V], n)}
	for i := range m.shards {
		m.shards[i].items = make(map[string]V)
	}
	return m
}

// Do runs fn with exclusive access to the shard owning key. fn receives the
// shard's backing map and may read, insert or delete any entry for key.
func (m *ShardedMap[V]) Do(key string, fn func(items map[string]V)) {
	s := &m.shards[m.shardFor(key)]
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.items)
}

// Range visits every shard in turn under its lock. The view is not a
// consistent snapshot across shards.
func (m *ShardedMap[V]) Range(fn func(items map[string]V)) {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		fn(s.items)
		s.mu.Unlock()
	}
}

// Len counts entries across all shards.
func (m *ShardedMap[V]) Len() int {
	total := 0
	m.Range(func(items map[string]V) { total += len(items) })
	return total
}

func (m *ShardedMap[V]) shardFor(key string) int {
	return int(maphash.String(m.seed, key) % uint64(len(m.shards)))
}
