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

package app

import (
	"context"
	"fmt"

	"support-chat/internal/einoext"
	"support-chat/internal/model/embedding"
	"support-chat/internal/pipeline/ingest"
	"support-chat/internal/pipeline/query"
	"support-chat/internal/storage/cache"
	"support-chat/pkg/config"
	"support-chat/pkg/log"
	"support-chat/pkg/secrets"
)

// Bootstrap 统一初始化：供 api 与 indexer 复用，避免在 cmd 内写业务与 pipeline
type Bootstrap struct {
	Config   *config.Config
	Logger   *log.Logger
	Secrets  secrets.Store // vault 未启用时为 nil
	Cache    cache.Store
	Embedder embedding.Embedder
	Vector   *einoext.Backend
}

// NewBootstrap 根据配置创建 Bootstrap（日志、密钥、缓存、向量后端）
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config 为空")
	}
	logger, err := log.NewLogger(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	var vault secrets.Store
	if cfg.Secrets.Provider == "vault" {
		vault, err = secrets.NewStore(secrets.Config{
			Provider: "vault",
			Vault: secrets.VaultConfig{
				Address:    cfg.Secrets.Vault.Address,
				Token:      cfg.Secrets.Vault.Token,
				PathPrefix: cfg.Secrets.Vault.PathPrefix,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("初始化 vault 失败: %w", err)
		}
	}

	cacheStore, err := cache.NewCache(cfg.Storage.Cache)
	if err != nil {
		return nil, fmt.Errorf("初始化缓存失败: %w", err)
	}

	embedder, err := NewEmbedderFromConfig(ctx, cfg, vault)
	if err != nil {
		_ = cacheStore.Close()
		return nil, fmt.Errorf("初始化 embedding 失败: %w", err)
	}

	backend, err := einoext.NewBackend(ctx, cfg.Storage.Vector, cfg.Chat.Retrieval.TopK, cfg.Ingest.BatchSize,
		embedder.Dimension(), embedding.NewEinoAdapter(embedder))
	if err != nil {
		_ = cacheStore.Close()
		return nil, fmt.Errorf("初始化向量存储失败: %w", err)
	}

	return &Bootstrap{
		Config:   cfg,
		Logger:   logger,
		Secrets:  vault,
		Cache:    cacheStore,
		Embedder: embedder,
		Vector:   backend,
	}, nil
}

// NewIngestPipeline 基于 Bootstrap 的向量后端构建入库管线
func (b *Bootstrap) NewIngestPipeline(ctx context.Context) (*ingest.Pipeline, error) {
	return ingest.NewPipeline(ctx, ingest.PipelineConfig{
		Transformer: ingest.NewChunkTransformer(b.Config.Ingest.ChunkSize, b.Config.Ingest.ChunkOverlap),
		Indexer:     b.Vector.Indexer,
		Collection:  b.Config.Storage.Vector.Collection,
		Logger:      b.Logger,
	})
}

// NewSnippetRetriever 基于 Bootstrap 的向量后端构建片段检索
func (b *Bootstrap) NewSnippetRetriever() *query.SnippetRetriever {
	return query.NewSnippetRetriever(b.Vector.Retriever, embedding.NewEinoAdapter(b.Embedder))
}

// Close 释放缓存与向量后端
func (b *Bootstrap) Close() error {
	var first error
	if b.Vector != nil {
		if err := b.Vector.Close(); err != nil {
			first = err
		}
	}
	if b.Cache != nil {
		if err := b.Cache.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
