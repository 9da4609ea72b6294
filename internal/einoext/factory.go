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

	redisindexer "github.com/cloudwego/eino-ext/components/indexer/redis"
	redisretriever "github.com/cloudwego/eino-ext/components/retriever/redis"
	einoembed "github.com/cloudwego/eino/components/embedding"
	einoindexer "github.com/cloudwego/eino/components/indexer"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/redis/go-redis/v9"

	"support-chat/internal/pipeline/ingest"
	"support-chat/internal/pipeline/query"
	"support-chat/internal/storage/vector"
	"support-chat/pkg/config"
)

const defaultBatchSize = 100

// Backend 向量后端：同一 collection 的 Indexer 与 Retriever
type Backend struct {
	Indexer   einoindexer.Indexer
	Retriever einoretriever.Retriever
	closeFn   func() error
}

// Close 释放后端连接
func (b *Backend) Close() error {
	if b == nil || b.closeFn == nil {
		return nil
	}
	return b.closeFn()
}

// NewBackend 根据 VectorConfig 创建 Indexer 与 Retriever（memory 用 vector.MemoryStore；redis 用 eino-ext）
func NewBackend(ctx context.Context, cfg config.VectorConfig, topK, batchSize, dimension int, embedder einoembed.Embedder) (*Backend, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	coll := cfg.Collection
	if coll == "" {
		coll = config.DefaultCollection
	}
	switch cfg.Type {
	case "", "memory":
		store, err := vector.NewStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := vector.EnsureIndex(ctx, store, coll, dimension); err != nil {
			return nil, err
		}
		idx, err := ingest.NewMemoryIndexer(&ingest.MemoryIndexerConfig{
			VectorStore: store,
			Collection:  coll,
			BatchSize:   batchSize,
			Embedding:   embedder,
		})
		if err != nil {
			return nil, err
		}
		ret, err := query.NewMemoryRetriever(&query.MemoryRetrieverConfig{
			VectorStore:  store,
			DefaultIndex: coll,
			DefaultTopK:  topK,
			Embedding:    embedder,
		})
		if err != nil {
			return nil, err
		}
		return &Backend{Indexer: idx, Retriever: ret, closeFn: store.Close}, nil
	case "redis":
		opts, err := RedisOptionsFromVectorConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("redis options: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		if err := EnsureRedisIndex(ctx, client, coll, dimension); err != nil {
			_ = client.Close()
			return nil, err
		}
		idx, err := redisindexer.NewIndexer(ctx, &redisindexer.IndexerConfig{
			Client:    client,
			KeyPrefix: RedisKeyPrefix(coll),
			BatchSize: batchSize,
			Embedding: embedder,
		})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis indexer: %w", err)
		}
		ret, err := redisretriever.NewRetriever(ctx, &redisretriever.RetrieverConfig{
			Client:      client,
			Index:       coll,
			VectorField: redisVectorField,
			TopK:        topK,
			Embedding:   embedder,
		})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis retriever: %w", err)
		}
		return &Backend{Indexer: idx, Retriever: ret, closeFn: client.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported vector type: %s", cfg.Type)
	}
}
