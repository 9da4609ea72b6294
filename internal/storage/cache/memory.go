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

package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore 内存缓存，过期项在读取时惰性清理
type MemoryStore struct {
	items map[string]cacheItem
	mu    sync.Mutex
	now   func() time.Time
}

type cacheItem struct {
	value     []byte
	expiresAt time.Time // 零值表示不过期
}

// NewMemoryStore 创建新的内存缓存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]cacheItem), now: time.Now}
}

// Get 读取缓存
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok {
		return nil, ErrMiss
	}
	if !item.expiresAt.IsZero() && !s.now().Before(item.expiresAt) {
		delete(s.items, key)
		return nil, ErrMiss
	}
	return append([]byte(nil), item.value...), nil
}

// Set 写入缓存
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := cacheItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = item
	return nil
}

// Close 关闭缓存连接
func (s *MemoryStore) Close() error {
	return nil
}
