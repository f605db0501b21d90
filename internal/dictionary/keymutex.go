package dictionary

import (
	"hash/fnv"
	"sync"
)

// lockStripes is the number of mutexes in a KeyMutex. Collisions between
// distinct keys only cost contention, never correctness.
const lockStripes = 64

// KeyMutex serializes operations on a string key using striped locks.
// Dictionary edits for the same (user, word-or-category) key and history
// writes for the same user must not interleave.
type KeyMutex struct {
	stripes [lockStripes]sync.Mutex
}

func (m *KeyMutex) Lock(key string) *sync.Mutex {
	mu := &m.stripes[stripeFor(key)]
	mu.Lock()
	return mu
}

func stripeFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % lockStripes
}
