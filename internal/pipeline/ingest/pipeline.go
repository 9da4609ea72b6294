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
	"time"

	einodoc "github.com/cloudwego/eino/components/document"
	einoindexer "github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/compose"

	"support-chat/pkg/log"
	"support-chat/pkg/tracing"
)

// Pipeline 文档入库：Loader → Transformer → Indexer，编排为 eino Chain
type Pipeline struct {
	runnable   compose.Runnable[einodoc.Source, []string]
	collection string
	logger     *log.Logger
}

// PipelineConfig 入库管线组件
type PipelineConfig struct {
	Loader      einodoc.Loader      // 为 nil 时使用 DirLoader
	Transformer einodoc.Transformer // 为 nil 时使用 ChunkTransformer(300, 100)
	Indexer     einoindexer.Indexer
	Collection  string
	Logger      *log.Logger
}

// NewPipeline 编译入库 Chain
func NewPipeline(ctx context.Context, cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Indexer == nil {
		return nil, fmt.Errorf("ingest pipeline 需要 Indexer")
	}
	loader := cfg.Loader
	if loader == nil {
		loader = NewDirLoader()
	}
	transformer := cfg.Transformer
	if transformer == nil {
		transformer = NewChunkTransformer(300, 100)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}

	chain := compose.NewChain[einodoc.Source, []string]()
	chain.
		AppendLoader(loader, compose.WithNodeName("load")).
		AppendDocumentTransformer(transformer, compose.WithNodeName("split")).
		AppendIndexer(cfg.Indexer, compose.WithNodeName("index"))
	runnable, err := chain.Compile(ctx, compose.WithGraphName("ingest"))
	if err != nil {
		return nil, fmt.Errorf("编译 ingest chain 失败: %w", err)
	}
	return &Pipeline{runnable: runnable, collection: cfg.Collection, logger: logger}, nil
}

// Run 加载 dataPath 下的文档并写入向量库，返回写入的切片 ID
func (p *Pipeline) Run(ctx context.Context, dataPath string) (ids []string, err error) {
	ctx, span := tracing.StartIngestSpan(ctx, dataPath, p.collection)
	defer func() { tracing.EndSpan(span, err) }()

	start := time.Now()
	ids, err = p.runnable.Invoke(ctx, einodoc.Source{URI: dataPath})
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", dataPath, err)
	}
	p.logger.Info("文档入库完成", "data_path", dataPath, "collection", p.collection, "chunks", len(ids), "duration", time.Since(start))
	return ids, nil
}
