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

package einoext

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"support-chat/pkg/config"
)

// redis hash 字段名，与 eino-ext redis indexer/retriever 默认值一致
const (
	redisContentField = "content"
	redisVectorField  = "vector_content"
)

// RedisOptionsFromVectorConfig 从 VectorConfig 构造 redis.Options（type=redis 时使用）
func RedisOptionsFromVectorConfig(cfg config.VectorConfig) (*redis.Options, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	}
	if cfg.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if cfg.DB != "" {
		db, err := strconv.Atoi(cfg.DB)
		if err != nil || db < 0 {
			return nil, fmt.Errorf("storage.vector.db 无效: %q", cfg.DB)
		}
		opts.DB = db
	}
	// Redis Stack 向量检索需 Protocol 2、UnstableResp3 true（见 eino-ext retriever 注释）
	opts.Protocol = 2
	opts.UnstableResp3 = true
	return opts, nil
}

// RedisKeyPrefix 文档 hash 键前缀
func RedisKeyPrefix(collection string) string {
	return collection + ":"
}

// EnsureRedisIndex 创建 RediSearch 向量索引，已存在时跳过
func EnsureRedisIndex(ctx context.Context, client *redis.Client, collection string, dimension int) error {
	err := client.FTCreate(ctx, collection,
		&redis.FTCreateOptions{OnHash: true, Prefix: []interface{}{RedisKeyPrefix(collection)}},
		&redis.FieldSchema{FieldName: redisContentField, FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{
			FieldName: redisVectorField,
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				FlatOptions: &redis.FTFlatOptions{Type: "FLOAT32", Dim: dimension, DistanceMetric: "COSINE"},
			},
		},
	).Err()
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "index already exists") {
		return fmt.Errorf("创建 redis 索引 %s 失败: %w", collection, err)
	}
	return nil
}
