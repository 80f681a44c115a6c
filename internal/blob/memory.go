package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Memory is an in-process Store for tests and local experiments.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte), now: time.Now}
}

func (m *Memory) Put(ctx context.Context, originalName string, r io.Reader, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("failed to read blob: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name := GenerateName(originalName, m.now())
	for {
		if _, taken := m.blobs[name]; !taken {
			break
		}
		name = disambiguate(name)
	}
	m.blobs[name] = buf.Bytes()
	return PathFor(name), nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	name, err := NameFromPath(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	delete(m.blobs, name)
	return nil
}

func (m *Memory) Exists(ctx context.Context, path string) (bool, error) {
	name, err := NameFromPath(path)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[name]
	return ok, nil
}

func (m *Memory) URL(path string) string { return path }

// Len reports how many blobs are stored.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
