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
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-chat/internal/model/embedding"
	"support-chat/internal/pipeline/query"
	"support-chat/pkg/config"
)

func TestRedisOptionsFromVectorConfig(t *testing.T) {
	opts, err := RedisOptionsFromVectorConfig(config.VectorConfig{DB: "2", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 2, opts.Protocol)
	assert.True(t, opts.UnstableResp3)

	_, err = RedisOptionsFromVectorConfig(config.VectorConfig{DB: "x"})
	assert.Error(t, err)
}

func TestNewBackend_MemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	emb := embedding.NewHashEmbedder(64)
	b, err := NewBackend(ctx, config.VectorConfig{Type: "memory", Collection: "mental_docs"}, 5, 10, emb.Dimension(), embedding.NewEinoAdapter(emb))
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Indexer.Store(ctx, []*schema.Document{
		{ID: "ID0", Content: "mental health support groups meet weekly"},
		{ID: "ID1", Content: "recipes for banana bread"},
	})
	require.NoError(t, err)

	snippets, err := query.NewSnippetRetriever(b.Retriever, nil).Retrieve(ctx, "general mental health support", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"mental health support groups meet weekly"}, snippets)
}

func TestNewBackend_Unsupported(t *testing.T) {
	_, err := NewBackend(context.Background(), config.VectorConfig{Type: "milvus"}, 5, 0, 8, nil)
	assert.Error(t, err)
}
