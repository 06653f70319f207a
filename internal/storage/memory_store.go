package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

// MemoryStore keeps uploads in process. It backs local runs that have no bucket.
type MemoryStore struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte
}

func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://uploads"
	}
	return &MemoryStore{baseURL: baseURL, objects: make(map[string][]byte)}
}

func (m *MemoryStore) Upload(_ context.Context, key, contentType string, body io.Reader, _ int64) (Object, error) {
	if key == "" {
		return Object{}, errors.New("object key is required")
	}
	if err := ValidateContentType(contentType); err != nil {
		return Object{}, err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return Object{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = buf.Bytes()
	return Object{Key: key, URL: m.baseURL + "/" + key}, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return errors.New("object not found")
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}
