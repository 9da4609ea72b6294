// Copyright 2026 fanjia1024
// In-memory secret store (for development and tests)

package secrets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore 内存 secret store
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryStore 创建内存 secret store，initial 可为 nil
func NewMemoryStore(initial map[string]string) *MemoryStore {
	m := &MemoryStore{secrets: make(map[string]string, len(initial))}
	for k, v := range initial {
		m.secrets[k] = v
	}
	return m
}

// Get 实现 Store
func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.secrets[key]
	if !ok {
		return "", fmt.Errorf("secret not found: %s", key)
	}
	return value, nil
}

// Set 写入 secret
func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[key] = value
}
