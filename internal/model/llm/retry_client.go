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
	"time"

	"support-chat/pkg/log"
	"support-chat/pkg/metrics"
	"support-chat/pkg/retry"
)

// RetryClient 对瞬时 ServiceError 按策略重试，其余错误原样返回
type RetryClient struct {
	inner  Client
	policy retry.Policy
	logger *log.Logger
}

// NewRetryClient 创建带重试的客户端，logger 可为 nil
func NewRetryClient(inner Client, policy retry.Policy, logger *log.Logger) *RetryClient {
	return &RetryClient{inner: inner, policy: policy, logger: logger}
}

// ChatWithContext 实现 Client
func (c *RetryClient) ChatWithContext(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	var out string
	onRetry := func(err error, wait time.Duration) {
		metrics.RetryTotal.WithLabelValues("llm").Inc()
		if c.logger != nil {
			c.logger.Warn("LLM 调用失败，准备重试", "provider", c.inner.Provider(), "wait", wait, "error", err)
		}
	}
	err := retry.Do(ctx, c.policy, IsTransient, onRetry, func() error {
		var err error
		out, err = c.inner.ChatWithContext(ctx, messages, options)
		return err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// Model 返回底层 Client 的模型名称
func (c *RetryClient) Model() string { return c.inner.Model() }

// Provider 返回底层 Client 的提供商名称
func (c *RetryClient) Provider() string { return c.inner.Provider() }
