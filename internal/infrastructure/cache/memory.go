package cache

import (
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// ttlMap is the process-local backend shared by the in-memory stores.
// A janitor goroutine drops expired entries until Close.
type ttlMap struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	now       func() time.Time
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newTTLMap(cleanupInterval time.Duration) *ttlMap {
	m := &ttlMap{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		m.wg.Add(1)
		go m.janitor(cleanupInterval)
	}
	return m
}

func (m *ttlMap) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func (m *ttlMap) set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.expiry(ttl)}
}

// setNX stores the value only when the key is absent or expired
func (m *ttlMap) setNX(key string, value []byte, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok && !e.expired(m.now()) {
		return false
	}
	m.entries[key] = memoryEntry{value: value, expiresAt: m.expiry(ttl)}
	return true
}

func (m *ttlMap) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

// take returns and removes the value atomically
func (m *ttlMap) take(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	delete(m.entries, key)
	if e.expired(m.now()) {
		return nil, false
	}
	return e.value, true
}

func (m *ttlMap) delete(keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
}

func (m *ttlMap) deletePrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

func (m *ttlMap) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *ttlMap) janitor(interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *ttlMap) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
		}
	}
}

// Close stops the janitor. Safe to call multiple times.
func (m *ttlMap) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)
		m.wg.Wait()
	})
	return nil
}
