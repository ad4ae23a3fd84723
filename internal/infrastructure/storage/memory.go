package storage

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps objects in process memory. The server falls back to it
// when object storage is disabled; exports then live until restart.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore creates an empty store whose download links point at baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject), baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Put stores a copy of data under key.
func (m *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

// Get returns the object stored under key.
func (m *MemoryStore) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.data, obj.contentType, ok
}

// Keys lists stored keys in order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DownloadURL returns a non-signed link; the memory store serves no HTTP itself.
func (m *MemoryStore) DownloadURL(_ context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrEmptyKey
	}
	expiresAt := time.Now().Add(ttl)
	return m.baseURL + "/" + url.PathEscape(key) + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339)), expiresAt, nil
}

// Delete removes key.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Exists reports whether key is present.
func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}
