// Package cache stores the prover's replies for tactics already tried at a
// state. Proof-search policies revisit (state, tactic) pairs constantly, a
// hit skips the round trip to the lean process. Keys are scoped to one
// search, replies are only replayed within it.
package cache

import "sync"

type TacticCache interface {
	Get(key string) (string, bool)
	Put(key string, value string)
}

// MemoryCache is the in-process cache used by default, one per environment.
type MemoryCache struct {
	lock    sync.RWMutex
	entries map[string]string
}

var _ TacticCache = &MemoryCache{}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]string),
	}
}

func (m *MemoryCache) Get(key string) (string, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *MemoryCache) Put(key string, value string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.entries[key] = value
}

func (m *MemoryCache) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.entries)
}
