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
	"errors"
	"testing"

	einoembed "github.com/cloudwego/eino/components/embedding"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"support-chat/internal/storage/vector"
)

// mockEinoEmbedder 测试用：固定返回 4 维向量
type mockEinoEmbedder struct{}

func (m *mockEinoEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...einoembed.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = []float64{1, 0, 0, 0}
	}
	return out, nil
}

func seedStore(t *testing.T) vector.Store {
	t.Helper()
	ctx := context.Background()
	store := vector.NewMemoryStore()
	if err := vector.EnsureIndex(ctx, store, "mental_docs", 4); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	err := store.Upsert(ctx, "mental_docs", []*vector.Vector{
		{ID: "ID0", Values: []float64{1, 0, 0, 0}, Metadata: map[string]string{"content": "breathe slowly"}},
		{ID: "ID1", Values: []float64{1, 1, 0, 0}, Metadata: map[string]string{"content": "take a walk"}},
		{ID: "ID2", Values: []float64{0, 0, 1, 0}, Metadata: map[string]string{"content": "  "}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return store
}

func TestMemoryRetriever_Retrieve(t *testing.T) {
	ret, err := NewMemoryRetriever(&MemoryRetrieverConfig{VectorStore: seedStore(t), DefaultIndex: "mental_docs"})
	if err != nil {
		t.Fatalf("NewMemoryRetriever: %v", err)
	}
	docs, err := ret.Retrieve(context.Background(), "hello", einoretriever.WithEmbedding(&mockEinoEmbedder{}), einoretriever.WithTopK(2))
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].ID != "ID0" || docs[0].Content != "breathe slowly" {
		t.Errorf("unexpected doc: id=%s content=%s", docs[0].ID, docs[0].Content)
	}

	if _, err := ret.Retrieve(context.Background(), "hello"); err == nil {
		t.Error("expected error without embedding")
	}
}

func TestSnippetRetriever(t *testing.T) {
	ret, _ := NewMemoryRetriever(&MemoryRetrieverConfig{VectorStore: seedStore(t), DefaultIndex: "mental_docs"})
	s := NewSnippetRetriever(ret, &mockEinoEmbedder{})
	got, err := s.Retrieve(context.Background(), "general mental health support", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 || got[0] != "breathe slowly" || got[1] != "take a walk" {
		t.Errorf("snippets: %v", got)
	}
}

type failingRetriever struct{}

func (failingRetriever) Retrieve(context.Context, string, ...einoretriever.Option) ([]*schema.Document, error) {
	return nil, errors.New("index unavailable")
}

func TestSnippetRetriever_Error(t *testing.T) {
	if _, err := NewSnippetRetriever(failingRetriever{}, nil).Retrieve(context.Background(), "q", 5); err == nil {
		t.Error("expected error")
	}
	if _, err := NewSnippetRetriever(nil, nil).Retrieve(context.Background(), "q", 5); err == nil {
		t.Error("expected error for nil retriever")
	}
}
