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

package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// OpenAIEmbedder 调用 OpenAI 兼容 /embeddings 接口
type OpenAIEmbedder struct {
	apiKey    string
	model     string
	baseURL   string
	dimension int
	client    *resty.Client
}

// NewOpenAIEmbedder 创建 OpenAI Embedding 客户端；baseURL 为空时用默认或 OPENAI_BASE_URL
func NewOpenAIEmbedder(apiKey, model, baseURL string, dimension int) *OpenAIEmbedder {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dimension <= 0 {
		dimension = 1536
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
		if envURL := os.Getenv("OPENAI_BASE_URL"); envURL != "" {
			baseURL = envURL
		}
	}
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)
	return &OpenAIEmbedder{apiKey: apiKey, model: model, baseURL: baseURL, dimension: dimension, client: client}
}

// Model 返回模型名称
func (e *OpenAIEmbedder) Model() string { return e.model }

// Dimension 返回向量维度
func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

// Embed 调用 embeddings API
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+e.apiKey).
		SetBody(map[string]interface{}{
			"model":      e.model,
			"input":      texts,
			"dimensions": e.dimension,
		}).
		Post(e.baseURL + "/embeddings")
	if err != nil {
		return nil, fmt.Errorf("调用 embeddings API 失败: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("embeddings API 返回错误 (%d): %s", resp.StatusCode(), resp.String())
	}

	var result struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析 embeddings 响应失败: %w", err)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings 数量不符: got %d, want %d", len(result.Data), len(texts))
	}
	out := make([][]float64, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embeddings index 越界: %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
