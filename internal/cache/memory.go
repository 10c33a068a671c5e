package cache

import (
	"fmt"
	"io/fs"
	"sync"
)

// MemoryBackend is an in-memory cache backend for testing.
type MemoryBackend struct {
	docs   map[Kind][]byte
	writes map[Kind]int
	mu     sync.RWMutex
}

// NewMemoryBackend creates a new in-memory cache backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		docs:   make(map[Kind][]byte),
		writes: make(map[Kind]int),
	}
}

// Path returns a dummy path for kind.
func (b *MemoryBackend) Path(kind Kind) string {
	return "memory://" + string(kind) + ".json"
}

// Read returns a copy of the stored document.
func (b *MemoryBackend) Read(kind Kind) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.docs[kind]
	if !ok {
		return nil, fmt.Errorf("%s: %w", b.Path(kind), fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

// Write stores a copy of the document.
func (b *MemoryBackend) Write(kind Kind, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[kind] = append([]byte(nil), data...)
	b.writes[kind]++
	return nil
}

// Remove deletes the document for kind.
func (b *MemoryBackend) Remove(kind Kind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.docs, kind)
	return nil
}

// Size reports the document size in bytes.
func (b *MemoryBackend) Size(kind Kind) (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.docs[kind]
	return int64(len(data)), ok
}

// Writes counts Write calls for kind (for testing).
func (b *MemoryBackend) Writes(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writes[kind]
}

// Seed stores raw document bytes directly (for testing).
func (b *MemoryBackend) Seed(kind Kind, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[kind] = append([]byte(nil), data...)
}

// Reset clears all documents (for testing).
func (b *MemoryBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs = make(map[Kind][]byte)
	b.writes = make(map[Kind]int)
}
