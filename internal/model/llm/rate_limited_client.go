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

package llm

import (
	"context"
	"strings"
	"time"

	"support-chat/pkg/metrics"
)

// RateLimitedClient 包装任意 LLM Client，在真实调用前后执行限流控制
type RateLimitedClient struct {
	inner       Client
	rateLimiter *LLMRateLimiter
}

// NewRateLimitedClient 创建带限流的 LLM 客户端。rateLimiter 为 nil 时退化为直接调用。
func NewRateLimitedClient(inner Client, rateLimiter *LLMRateLimiter) *RateLimitedClient {
	return &RateLimitedClient{inner: inner, rateLimiter: rateLimiter}
}

// ChatWithContext 实现 Client.ChatWithContext，调用前后执行限流。
func (c *RateLimitedClient) ChatWithContext(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	if c.rateLimiter != nil {
		provider := c.inner.Provider()
		estimatedTokens := estimateTokens(messagesText(messages), options.MaxTokens)
		start := time.Now()
		if err := c.rateLimiter.Wait(ctx, provider, estimatedTokens); err != nil {
			return "", &ServiceError{Provider: provider, Err: err}
		}
		metrics.RateLimitWaitSeconds.WithLabelValues(provider).Observe(time.Since(start).Seconds())
		defer c.rateLimiter.Release(provider)
	}
	return c.inner.ChatWithContext(ctx, messages, options)
}

// Model 返回底层 Client 的模型名称。
func (c *RateLimitedClient) Model() string { return c.inner.Model() }

// Provider 返回底层 Client 的提供商名称。
func (c *RateLimitedClient) Provider() string { return c.inner.Provider() }

// estimateTokens 粗略估算请求的 token 数（4 字节 ≈ 1 token）。
func estimateTokens(text string, maxTokens int) int {
	estimated := len(text) / 4
	if maxTokens > 0 {
		estimated += maxTokens
	}
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}

// messagesText 将消息列表合并为单一字符串，用于 token 估算。
func messagesText(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Content)
	}
	return b.String()
}
