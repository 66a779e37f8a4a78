package cache

import (
	"context"
	"encoding/binary"
	"hash/maphash"

	"github.com/bootphon/h5features-sub000/internal/resource"
)

const numShards = 64

// ShardedLRU spreads keys across independently locked LRU shards.
type ShardedLRU struct {
	shards [numShards]*LRU
	seed   maphash.Seed
}

// NewShardedLRU splits capacity evenly across shards.
func NewShardedLRU(capacity int64, rc *resource.Controller) *ShardedLRU {
	per := max(capacity/numShards, 1)
	s := &ShardedLRU{seed: maphash.MakeSeed()}
	for i := range numShards {
		s.shards[i] = NewLRU(per, rc)
	}
	return s
}

func (s *ShardedLRU) shard(key Key) *LRU {
	var h maphash.Hash
	h.SetSeed(s.seed)
	var buf [9]byte
	buf[0] = byte(key.Kind)
	binary.LittleEndian.PutUint64(buf[1:], key.Offset)
	_, _ = h.Write(buf[:])
	_, _ = h.WriteString(key.Path)
	return s.shards[h.Sum64()%numShards]
}

func (s *ShardedLRU) Get(ctx context.Context, key Key) ([]byte, bool) {
	return s.shard(key).Get(ctx, key)
}

func (s *ShardedLRU) Set(ctx context.Context, key Key, b []byte) {
	s.shard(key).Set(ctx, key, b)
}

func (s *ShardedLRU) Invalidate(predicate func(key Key) bool) {
	for _, sh := range s.shards {
		sh.Invalidate(predicate)
	}
}

func (s *ShardedLRU) Stats() (hits, misses int64) {
	for _, sh := range s.shards {
		h, m := sh.Stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// Size returns the cached bytes across shards.
func (s *ShardedLRU) Size() int64 {
	var total int64
	for _, sh := range s.shards {
		total += sh.Size()
	}
	return total
}

func (s *ShardedLRU) Close() error {
	for _, sh := range s.shards {
		_ = sh.Close()
	}
	return nil
}
