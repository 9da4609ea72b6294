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

package ingest

import (
	"context"
	"fmt"

	einoembed "github.com/cloudwego/eino/components/embedding"
	einoindexer "github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"

	"support-chat/internal/storage/vector"
)

// MetaContent 向量元数据中保存切片原文的键
const MetaContent = "content"

// MemoryIndexer 基于 vector.Store 实现的 Eino indexer.Indexer（memory 后端）
type MemoryIndexer struct {
	vectorStore vector.Store
	collection  string
	batchSize   int
	embedder    einoembed.Embedder
}

// MemoryIndexerConfig MemoryIndexer 构造参数
type MemoryIndexerConfig struct {
	VectorStore vector.Store
	Collection  string
	BatchSize   int
	Embedding   einoembed.Embedder // 可被 indexer.WithEmbedding 覆盖
}

// NewMemoryIndexer 创建基于 vector.Store 的 Eino Indexer
func NewMemoryIndexer(cfg *MemoryIndexerConfig) (*MemoryIndexer, error) {
	if cfg == nil || cfg.VectorStore == nil {
		return nil, fmt.Errorf("MemoryIndexer 需要 VectorStore")
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "default"
	}
	return &MemoryIndexer{
		vectorStore: cfg.VectorStore,
		collection:  collection,
		batchSize:   batchSize,
		embedder:    cfg.Embedding,
	}, nil
}

// Store 实现 github.com/cloudwego/eino/components/indexer.Indexer；按批向量化并 upsert
func (m *MemoryIndexer) Store(ctx context.Context, docs []*schema.Document, opts ...einoindexer.Option) ([]string, error) {
	options := einoindexer.GetCommonOptions(&einoindexer.Options{Embedding: m.embedder}, opts...)
	indexName := m.collection
	if len(options.SubIndexes) > 0 && options.SubIndexes[0] != "" {
		indexName = options.SubIndexes[0]
	}

	ids := make([]string, 0, len(docs))
	for start := 0; start < len(docs); start += m.batchSize {
		end := start + m.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		var pending []string
		var pendingIdx []int
		for i, doc := range batch {
			if len(doc.DenseVector()) == 0 {
				pending = append(pending, doc.Content)
				pendingIdx = append(pendingIdx, i)
			}
		}
		if len(pending) > 0 {
			if options.Embedding == nil {
				return nil, fmt.Errorf("doc %s 没有向量且未配置 Embedding", batch[pendingIdx[0]].ID)
			}
			vecs, err := options.Embedding.EmbedStrings(ctx, pending)
			if err != nil {
				return nil, fmt.Errorf("indexer embedding: %w", err)
			}
			if len(vecs) != len(pending) {
				return nil, fmt.Errorf("indexer embedding 返回 %d 个向量，期望 %d", len(vecs), len(pending))
			}
			for j, i := range pendingIdx {
				batch[i].WithDenseVector(vecs[j])
			}
		}

		vecs := make([]*vector.Vector, 0, len(batch))
		for _, doc := range batch {
			meta := metaToStrings(doc.MetaData)
			meta[MetaContent] = doc.Content
			vecs = append(vecs, &vector.Vector{ID: doc.ID, Values: doc.DenseVector(), Metadata: meta})
			ids = append(ids, doc.ID)
		}
		if err := m.vectorStore.Upsert(ctx, indexName, vecs); err != nil {
			return nil, fmt.Errorf("vector store upsert: %w", err)
		}
	}
	return ids, nil
}

// metaToStrings 将 map[string]any 转为 map[string]string（仅 string 值）
func metaToStrings(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
