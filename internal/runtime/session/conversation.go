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
	"fmt"
	"sync"
	"time"

	"support-chat/internal/model/llm"
	"support-chat/internal/sentiment"
	"support-chat/pkg/errors"
)

// MinHistoryLimit system 消息加至少一条对话消息
const MinHistoryLimit = 2

// Conversation 一个会话的唯一状态载体：有界消息日志与情绪轨迹。
// 元素 0 恒为 system 消息；长度不超过 limit。所有读写经 mu 串行化。
type Conversation struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	updatedAt time.Time
	messages  []Message
	limit     int
	tracker   *sentiment.Tracker
	now       func() time.Time
}

// NewConversation 以 system 消息初始化会话
func NewConversation(id, systemPrompt string, limit int, tracker *sentiment.Tracker) (*Conversation, error) {
	if limit < MinHistoryLimit {
		return nil, fmt.Errorf("%w: history limit %d < %d", errors.ErrInvalidArg, limit, MinHistoryLimit)
	}
	if tracker == nil {
		return nil, fmt.Errorf("%w: tracker 为空", errors.ErrInvalidArg)
	}
	c := &Conversation{
		ID:      id,
		limit:   limit,
		tracker: tracker,
		now:     time.Now,
	}
	c.CreatedAt = c.now()
	c.updatedAt = c.CreatedAt
	c.messages = []Message{{Role: llm.RoleSystem, Content: systemPrompt, Timestamp: c.CreatedAt}}
	return c, nil
}

// Append 追加一条 user/assistant 消息并立即执行保留策略
func (c *Conversation) Append(role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLocked(role, content)
}

// RecordUser 记录一轮用户输入：轨迹追加、消息追加与截断、取快照与聚合情绪，在同一临界区内完成。
// content 应为已打上情绪标签的文本。
func (c *Conversation) RecordUser(content string, label sentiment.Label) ([]Message, sentiment.Label, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker.Record(label)
	c.appendLocked(llm.RoleUser, content)
	agg, score := c.tracker.Aggregate()
	return c.snapshotLocked(), agg, score
}

// RecordAssistant 记录助手回复
func (c *Conversation) RecordAssistant(content string) {
	c.Append(llm.RoleAssistant, content)
}

// Snapshot 返回消息副本，调用方修改不影响会话
func (c *Conversation) Snapshot() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Len 当前消息数
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Aggregate 当前聚合情绪
func (c *Conversation) Aggregate() (sentiment.Label, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Aggregate()
}

// UpdatedAt 最近一次追加消息的时间
func (c *Conversation) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// State 只读诊断视图
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	agg, score := c.tracker.Aggregate()
	return State{
		ID:             c.ID,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.updatedAt,
		HistoryLimit:   c.limit,
		Messages:       c.snapshotLocked(),
		Trajectory:     c.tracker.Labels(),
		Aggregate:      agg,
		AggregateScore: score,
	}
}

func (c *Conversation) appendLocked(role, content string) {
	if role != llm.RoleUser && role != llm.RoleAssistant {
		panic(errors.Invariantf("append role %q", role))
	}
	c.updatedAt = c.now()
	c.messages = append(c.messages, Message{Role: role, Content: content, Timestamp: c.updatedAt})
	c.enforceRetentionLocked()
}

// enforceRetentionLocked 超出 limit 时保留元素 0 与最近 limit-1 条
func (c *Conversation) enforceRetentionLocked() {
	if n := len(c.messages); n > c.limit {
		kept := make([]Message, 0, c.limit)
		kept = append(kept, c.messages[0])
		kept = append(kept, c.messages[n-(c.limit-1):]...)
		c.messages = kept
	}
	c.checkLocked()
}

func (c *Conversation) checkLocked() {
	if len(c.messages) == 0 {
		panic(errors.Invariantf("conversation %s has no messages", c.ID))
	}
	if c.messages[0].Role != llm.RoleSystem {
		panic(errors.Invariantf("conversation %s element 0 role=%s", c.ID, c.messages[0].Role))
	}
	if len(c.messages) > c.limit {
		panic(errors.Invariantf("conversation %s length %d > %d", c.ID, len(c.messages), c.limit))
	}
}

func (c *Conversation) snapshotLocked() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}
