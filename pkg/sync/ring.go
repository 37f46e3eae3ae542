package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring over a fixed set of shards.
type ring[T any] struct {
	hashRing *treemap.Map

	// first is the value of the lowest hash, cached since treemap.Map.Min() is
	// O(log n) and every key past the last hash wraps to it.
	first T
}

// newRing returns a ring where every shard occupies replicationFactor points.
func newRing[T any](shards map[string]T, replicationFactor uint) *ring[T] {
	hashRing := treemap.NewWith(utils.Int64Comparator)
	for name, value := range shards {
		nameHash, _ := murmur3.Sum128([]byte(name))

		var point [12]byte
		binary.LittleEndian.PutUint64(point[:8], nameHash)
		for i := uint(0); i < replicationFactor; i++ {
			binary.LittleEndian.PutUint32(point[8:], uint32(i))
			hash, _ := murmur3.Sum128(point[:])
			hashRing.Put(int64(hash), value)
		}
	}

	r := &ring[T]{hashRing: hashRing}
	if _, first := hashRing.Min(); first != nil {
		r.first = first.(T)
	}
	return r
}

// shard returns the shard owning key.
func (r *ring[T]) shard(key []byte) T {
	raw, _ := murmur3.Sum128(key)
	if _, value := r.hashRing.Ceiling(int64(raw)); value != nil {
		return value.(T)
	}
	return r.first
}
