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

package query

import (
	"context"
	"fmt"
	"strings"

	einoembed "github.com/cloudwego/eino/components/embedding"
	einoretriever "github.com/cloudwego/eino/components/retriever"
)

// SnippetRetriever 将 Eino Retriever 收窄为 retrieve(query, k) -> 有序文本片段
type SnippetRetriever struct {
	retriever einoretriever.Retriever
	embedder  einoembed.Embedder
}

// NewSnippetRetriever embedder 可为 nil（后端自带 Embedding 时）
func NewSnippetRetriever(r einoretriever.Retriever, embedder einoembed.Embedder) *SnippetRetriever {
	return &SnippetRetriever{retriever: r, embedder: embedder}
}

// Retrieve 返回按相关度排序的非空片段，最多 k 个
func (s *SnippetRetriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if s.retriever == nil {
		return nil, fmt.Errorf("retriever 未配置")
	}
	opts := []einoretriever.Option{einoretriever.WithTopK(k)}
	if s.embedder != nil {
		opts = append(opts, einoretriever.WithEmbedding(s.embedder))
	}
	docs, err := s.retriever.Retrieve(ctx, query, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		if c := strings.TrimSpace(d.Content); c != "" {
			out = append(out, c)
		}
		if len(out) == k {
			break
		}
	}
	return out, nil
}
