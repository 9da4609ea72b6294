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
	"strings"

	"support-chat/internal/model/embedding"
	"support-chat/internal/model/llm"
	"support-chat/pkg/config"
	"support-chat/pkg/retry"
	"support-chat/pkg/secrets"
)

// NewLLMClientFromConfig 根据 model.defaults.llm（如 "openai.gpt_4o_mini"）创建 LLM 客户端，
// 配置了 rate_limits.llm 时包装限流；重试由调用方在边界处包装。返回客户端与模型名。
func NewLLMClientFromConfig(ctx context.Context, cfg *config.Config, vault secrets.Store) (llm.Client, string, error) {
	if cfg == nil || cfg.Model.Defaults.LLM == "" {
		return nil, "", fmt.Errorf("model.defaults.llm 未配置")
	}
	provider, modelKey, err := parseDefaultKey(cfg.Model.Defaults.LLM)
	if err != nil {
		return nil, "", err
	}
	pc, ok := cfg.Model.LLM.Providers[provider]
	if !ok {
		return nil, "", fmt.Errorf("LLM provider %q 未配置", provider)
	}
	mi, ok := pc.Models[modelKey]
	if !ok {
		return nil, "", fmt.Errorf("LLM model %q 未在 provider %q 中配置", modelKey, provider)
	}
	apiKey, err := secrets.Resolve(ctx, pc.APIKey, vault)
	if err != nil {
		return nil, "", fmt.Errorf("解析 %s api_key 失败: %w", provider, err)
	}
	if apiKey == "" {
		return nil, "", fmt.Errorf("LLM provider %q 的 api_key 未配置", provider)
	}
	modelName := mi.Name
	if cfg.Chat.Generation.Model != "" {
		modelName = cfg.Chat.Generation.Model
	}

	client, err := llm.NewClient(ctx, provider, pc.Client, modelName, apiKey, pc.BaseURL)
	if err != nil {
		return nil, "", err
	}
	if rl, ok := cfg.RateLimits.LLM[provider]; ok {
		limiter := llm.NewLLMRateLimiter(map[string]llm.LLMLimitConfig{
			provider: {TokensPerMinute: rl.TokensPerMinute, RequestsPerMinute: rl.RequestsPerMinute, MaxConcurrent: rl.MaxConcurrent},
		}, nil)
		client = llm.NewRateLimitedClient(client, limiter)
	}
	return client, modelName, nil
}

// NewEmbedderFromConfig 根据 model.defaults.embedding 创建 Embedder；未配置时退回本地哈希向量
func NewEmbedderFromConfig(ctx context.Context, cfg *config.Config, vault secrets.Store) (embedding.Embedder, error) {
	if cfg == nil || cfg.Model.Defaults.Embedding == "" {
		return embedding.NewHashEmbedder(0), nil
	}
	provider, modelKey, err := parseDefaultKey(cfg.Model.Defaults.Embedding)
	if err != nil {
		return nil, err
	}
	pc, ok := cfg.Model.Embedding.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("Embedding provider %q 未配置", provider)
	}
	mi, ok := pc.Models[modelKey]
	if !ok {
		return nil, fmt.Errorf("Embedding model %q 未在 provider %q 中配置", modelKey, provider)
	}
	apiKey, err := secrets.Resolve(ctx, pc.APIKey, vault)
	if err != nil {
		return nil, fmt.Errorf("解析 %s api_key 失败: %w", provider, err)
	}
	dimension := mi.Dimension
	if dimension <= 0 {
		dimension = 1536
	}
	return embedding.NewOpenAIEmbedder(apiKey, mi.Name, pc.BaseURL, dimension), nil
}

// RetryPolicy chat.retry 转为重试策略
func RetryPolicy(cfg *config.Config) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg == nil {
		return p
	}
	p.MaxRetries = cfg.Chat.Retry.MaxRetries
	p.InitialInterval = config.Duration(cfg.Chat.Retry.InitialInterval, p.InitialInterval)
	p.MaxInterval = config.Duration(cfg.Chat.Retry.MaxInterval, p.MaxInterval)
	return p
}

func parseDefaultKey(key string) (provider, modelKey string, err error) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("default key 格式应为 provider.model_key，如 openai.gpt_4o_mini，当前: %q", key)
	}
	return parts[0], parts[1], nil
}
