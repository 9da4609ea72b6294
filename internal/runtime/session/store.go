// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"sync"
)

// ConversationStore 存储抽象；不存在时返回 (nil, nil)
type ConversationStore interface {
	Get(ctx context.Context, id string) (*Conversation, error)
	Put(ctx context.Context, c *Conversation) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore 内存实现（map + mutex）
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*Conversation
}

// NewMemoryStore 创建内存会话存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]*Conversation)}
}

// Get 实现 ConversationStore
func (m *MemoryStore) Get(ctx context.Context, id string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, nil
	}
	return c, nil
}

// Put 实现 ConversationStore
func (m *MemoryStore) Put(ctx context.Context, c *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c == nil {
		return nil
	}
	m.convs[c.ID] = c
	return nil
}

// List 返回所有会话 ID
func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.convs))
	for id := range m.convs {
		ids = append(ids, id)
	}
	return ids, nil
}

// Delete 删除会话，不存在时忽略
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.convs, id)
	return nil
}
