package draftstore

import (
	"context"
	"strings"
	"sync"
)

// Memory is a process-local Store.
type Memory struct {
	mu    sync.Mutex
	files map[string]File
}

func NewMemory() *Memory {
	return &Memory{files: make(map[string]File)}
}

func (m *Memory) Put(_ context.Context, key Key, f File) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key.Path()] = File{Name: f.Name, Data: append([]byte(nil), f.Data...)}
	return nil
}

func (m *Memory) Get(_ context.Context, key Key) (File, error) {
	if err := key.Validate(); err != nil {
		return File{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[key.Path()]
	if !ok {
		return File{}, ErrNotFound
	}
	return f, nil
}

func (m *Memory) Delete(_ context.Context, userID, draftID string) error {
	prefix := "drafts/" + userID + "/" + draftID + "/"
	m.mu.Lock()
	defer m.mu.Unlock()
	for path := range m.files {
		if strings.HasPrefix(path, prefix) {
			delete(m.files, path)
		}
	}
	return nil
}
