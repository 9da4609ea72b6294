package embedding

import (
	"context"

	einoembed "github.com/cloudwego/eino/components/embedding"
)

// Embedder 文本向量化接口
type Embedder interface {
	// Embed 对文本做向量化，返回与 texts 一一对应的向量
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	// Model 返回模型名称
	Model() string
	// Dimension 返回向量维度
	Dimension() int
}

// EinoAdapter 将 Embedder 适配为 eino/components/embedding.Embedder
type EinoAdapter struct {
	embedder Embedder
}

// NewEinoAdapter 创建 Eino Embedder 适配器
func NewEinoAdapter(embedder Embedder) *EinoAdapter {
	return &EinoAdapter{embedder: embedder}
}

// EmbedStrings 实现 eino/components/embedding.Embedder，忽略 opts
func (a *EinoAdapter) EmbedStrings(ctx context.Context, texts []string, _ ...einoembed.Option) ([][]float64, error) {
	if a.embedder == nil || len(texts) == 0 {
		return nil, nil
	}
	return a.embedder.Embed(ctx, texts)
}

var _ einoembed.Embedder = (*EinoAdapter)(nil)
