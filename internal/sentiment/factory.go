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

package sentiment

import (
	"fmt"
	"io"

	"support-chat/internal/model/llm"
	"support-chat/internal/storage/cache"
	"support-chat/pkg/config"
)

// NewBackendFromConfig 按 sentiment.backend 构造分类后端；cacheStore 非 nil 且启用缓存时包一层缓存。
// 返回的 io.Closer 可能为 nil。
func NewBackendFromConfig(cfg config.SentimentConfig, client llm.Client, modelName string, cacheStore cache.Store) (Backend, io.Closer, error) {
	var (
		backend Backend
		closer  io.Closer
	)
	switch cfg.Backend {
	case "", "llm":
		if client == nil {
			return nil, nil, fmt.Errorf("llm 分类后端需要 LLM 客户端")
		}
		backend = NewLLMBackend(client, modelName)
	case "hugot":
		hb, err := NewHugotBackend(cfg.ModelPath)
		if err != nil {
			return nil, nil, err
		}
		backend, closer = hb, hb
	default:
		return nil, nil, fmt.Errorf("不支持的分类后端: %s", cfg.Backend)
	}
	if cfg.Cache.Enable && cacheStore != nil {
		backend = NewCachedBackend(backend, cacheStore, config.Duration(cfg.Cache.TTL, 0))
	}
	return backend, closer, nil
}

// NewTrackerFromConfig 由配置构造空轨迹
func NewTrackerFromConfig(cfg config.SentimentConfig) (*Tracker, error) {
	return NewTracker(TrackerConfig{
		Window:            cfg.Window,
		Weights:           cfg.Weights,
		PositiveThreshold: cfg.PositiveThreshold,
		NegativeThreshold: cfg.NegativeThreshold,
	})
}
