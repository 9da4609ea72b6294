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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultOpenAIModel 未指定模型时使用
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient OpenAI 兼容 /chat/completions 客户端。
// 不做 resty 内部重试，重试由 RetryClient 统一处理。
type OpenAIClient struct {
	provider string
	model    string
	apiKey   string
	baseURL  string
	client   *resty.Client
}

// NewOpenAIClient 创建新的 OpenAI 客户端（base 优先用 OPENAI_BASE_URL 环境变量）
func NewOpenAIClient(model, apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithBaseURL(model, apiKey, "")
}

// NewOpenAIClientWithBaseURL 创建 OpenAI 兼容客户端；baseURL 为空时用默认或 OPENAI_BASE_URL
func NewOpenAIClientWithBaseURL(model, apiKey, baseURL string) (*OpenAIClient, error) {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
		if envURL := os.Getenv("OPENAI_BASE_URL"); envURL != "" {
			baseURL = envURL
		}
	}

	client := resty.New()
	client.SetTimeout(60 * time.Second)

	return &OpenAIClient{
		provider: "openai",
		model:    model,
		apiKey:   apiKey,
		baseURL:  baseURL,
		client:   client,
	}, nil
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ChatWithContext 使用上下文聊天
func (c *OpenAIClient) ChatWithContext(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	model := c.model
	if options.Model != "" {
		model = options.Model
	}
	request := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
		TopP:        options.TopP,
		Stop:        options.Stop,
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetBody(request).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", &ServiceError{Provider: c.provider, Err: fmt.Errorf("调用 chat/completions 失败: %w", err)}
	}

	if response.StatusCode() != http.StatusOK {
		var body apiErrorBody
		msg := response.String()
		if json.Unmarshal(response.Body(), &body) == nil && body.Error.Message != "" {
			msg = body.Error.Message
		}
		return "", &ServiceError{Provider: c.provider, StatusCode: response.StatusCode(), Err: errors.New(msg)}
	}

	var result chatResponse
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return "", &ServiceError{Provider: c.provider, StatusCode: response.StatusCode(), Err: fmt.Errorf("解析响应失败: %w", err)}
	}
	if len(result.Choices) == 0 {
		return "", &ServiceError{Provider: c.provider, StatusCode: response.StatusCode(), Err: errors.New("没有返回结果")}
	}
	return result.Choices[0].Message.Content, nil
}

// Model 返回模型名称
func (c *OpenAIClient) Model() string {
	return c.model
}

// Provider 返回提供商名称
func (c *OpenAIClient) Provider() string {
	return c.provider
}
