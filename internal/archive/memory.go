package archive

import (
	"context"
	"fmt"
	"sync"
)

// MemoryArchive stores payloads in-memory and returns pseudo URIs. It is
// meant for tests and local development.
type MemoryArchive struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates a new in-memory archive.
func NewMemory() *MemoryArchive {
	return &MemoryArchive{data: make(map[string][]byte)}
}

// PutObject persists the content and returns a memory:// URI.
func (a *MemoryArchive) PutObject(_ context.Context, path string, _ string, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[path] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", path), nil
}

// Object returns a stored payload, for assertions.
func (a *MemoryArchive) Object(path string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.data[path]
	return data, ok
}
