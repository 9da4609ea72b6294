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
	"time"

	"support-chat/internal/sentiment"
)

// State 会话只读快照（供 /api/history 与 CLI 使用）
type State struct {
	ID             string            `json:"session_id"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	HistoryLimit   int               `json:"history_limit"`
	Messages       []Message         `json:"messages"`
	Trajectory     []sentiment.Label `json:"trajectory"`
	Aggregate      sentiment.Label   `json:"aggregate_sentiment"`
	AggregateScore float64           `json:"aggregate_score"`
}
