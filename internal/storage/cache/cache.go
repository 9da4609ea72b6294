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
	"fmt"

	"github.com/redis/go-redis/v9"

	"support-chat/pkg/config"
)

// KeyPrefix redis 缓存键前缀
const KeyPrefix = "support-chat:"

// NewCache 根据配置创建缓存
func NewCache(cfg config.CacheConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if cfg.Addr == "" {
			return nil, fmt.Errorf("storage.cache.addr 未配置")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		return NewRedisStore(client, KeyPrefix), nil
	default:
		return nil, fmt.Errorf("不支持的缓存类型: %s", cfg.Type)
	}
}
