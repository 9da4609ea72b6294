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

	einodoc "github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"

	"support-chat/internal/splitter"
)

// ChunkTransformer 实现 Eino document.Transformer：切片并按出现顺序分配 ID<i>
type ChunkTransformer struct {
	splitter *splitter.RecursiveSplitter
}

// NewChunkTransformer 创建切片转换器
func NewChunkTransformer(chunkSize, chunkOverlap int) *ChunkTransformer {
	return &ChunkTransformer{splitter: splitter.NewRecursiveSplitter(chunkSize, chunkOverlap)}
}

// Transform 实现 github.com/cloudwego/eino/components/document.Transformer
func (t *ChunkTransformer) Transform(_ context.Context, src []*schema.Document, _ ...einodoc.TransformerOption) ([]*schema.Document, error) {
	var out []*schema.Document
	for _, d := range src {
		if d == nil {
			continue
		}
		for _, chunk := range t.splitter.Split(d.Content) {
			meta := make(map[string]any, len(d.MetaData))
			for k, v := range d.MetaData {
				meta[k] = v
			}
			out = append(out, &schema.Document{
				ID:       ChunkID(len(out)),
				Content:  chunk,
				MetaData: meta,
			})
		}
	}
	return out, nil
}

// ChunkID 第 i 个切片的 ID
func ChunkID(i int) string {
	return fmt.Sprintf("ID%d", i)
}
