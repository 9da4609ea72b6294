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
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"support-chat/internal/sentiment"
	"support-chat/pkg/errors"
	"support-chat/pkg/log"
	"support-chat/pkg/metrics"
)

// DefaultID 未指定 session_id 时使用的会话
const DefaultID = "default"

// ManagerConfig 新会话参数
type ManagerConfig struct {
	SystemPrompt string
	HistoryLimit int
	NewTracker   func() (*sentiment.Tracker, error)
	MaxSessions  int // 0 表示不限；满额时淘汰最久未更新的非默认会话
	Logger       *log.Logger
}

// Manager 管理会话生命周期
type Manager struct {
	store ConversationStore
	cfg   ManagerConfig
	mu    sync.Mutex
}

// NewManager 创建会话管理器
func NewManager(store ConversationStore, cfg ManagerConfig) *Manager {
	return &Manager{store: store, cfg: cfg}
}

// Create 以随机 ID 创建新会话
func (m *Manager) Create(ctx context.Context) (*Conversation, error) {
	return m.GetOrCreate(ctx, "session-"+uuid.New().String())
}

// Get 按 ID 获取会话，不存在返回 errors.ErrNotFound
func (m *Manager) Get(ctx context.Context, id string) (*Conversation, error) {
	if id == "" {
		id = DefaultID
	}
	c, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("session %s: %w", id, errors.ErrNotFound)
	}
	return c, nil
}

// GetOrCreate id 为空时使用 DefaultID；不存在则以 system 消息新建
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*Conversation, error) {
	if id == "" {
		id = DefaultID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}
	if m.cfg.NewTracker == nil {
		return nil, fmt.Errorf("%w: tracker 工厂未配置", errors.ErrInvalidArg)
	}
	tracker, err := m.cfg.NewTracker()
	if err != nil {
		return nil, err
	}
	c, err = NewConversation(id, m.cfg.SystemPrompt, m.cfg.HistoryLimit, tracker)
	if err != nil {
		return nil, err
	}
	if err := m.evictLocked(ctx); err != nil {
		return nil, err
	}
	if err := m.store.Put(ctx, c); err != nil {
		return nil, err
	}
	m.reportSizeLocked(ctx)
	return c, nil
}

// evictLocked 会话数达到上限时淘汰最久未更新的会话，默认会话不淘汰
func (m *Manager) evictLocked(ctx context.Context) error {
	if m.cfg.MaxSessions <= 0 {
		return nil
	}
	ids, err := m.store.List(ctx)
	if err != nil {
		return err
	}
	for len(ids) >= m.cfg.MaxSessions {
		victim, at := "", time.Time{}
		for _, id := range ids {
			if id == DefaultID {
				continue
			}
			c, err := m.store.Get(ctx, id)
			if err != nil {
				return err
			}
			if c == nil {
				continue
			}
			if u := c.UpdatedAt(); victim == "" || u.Before(at) {
				victim, at = id, u
			}
		}
		if victim == "" {
			return fmt.Errorf("%w: 会话数已达上限 %d", errors.ErrInvalidArg, m.cfg.MaxSessions)
		}
		if err := m.store.Delete(ctx, victim); err != nil {
			return err
		}
		if m.cfg.Logger != nil {
			m.cfg.Logger.Info("会话数达到上限，淘汰最久未更新的会话", "session_id", victim, "max_sessions", m.cfg.MaxSessions)
		}
		ids = removeID(ids, victim)
	}
	return nil
}

func (m *Manager) reportSizeLocked(ctx context.Context) {
	if ids, err := m.store.List(ctx); err == nil {
		metrics.Sessions.Set(float64(len(ids)))
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// List 所有会话 ID
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}
