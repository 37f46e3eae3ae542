package sync

import (
	"fmt"
	base "sync"
)

const (
	hashEntriesPerLock = 200
)

// StripedLock consistently maps a key space onto a fixed set of locks, so
// unrelated keys rarely contend while memory stays bounded.
type StripedLock struct {
	locks    []base.Mutex
	hashRing *ring[int]
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	if stripes == 0 {
		stripes = 1
	}

	shards := make(map[string]int, stripes)
	for i := 0; i < int(stripes); i++ {
		shards[fmt.Sprintf("lock%d", i)] = i
	}

	return &StripedLock{
		locks:    make([]base.Mutex, stripes),
		hashRing: newRing(shards, hashEntriesPerLock),
	}
}

// Get returns the lock for key.
func (l *StripedLock) Get(key []byte) *base.Mutex {
	return &l.locks[l.hashRing.shard(key)]
}
