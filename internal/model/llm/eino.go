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
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	goopenai "github.com/meguminnnnnnnnn/go-openai"
)

var statusCodePattern = regexp.MustCompile(`status code: (\d{3})`)

// EinoClient 基于 eino BaseChatModel 的 Client 实现
type EinoClient struct {
	provider string
	model    string
	cm       model.BaseChatModel
}

// NewEinoClient 创建基于 eino-ext OpenAI ChatModel 的客户端
func NewEinoClient(ctx context.Context, provider, modelName, apiKey, baseURL string) (*EinoClient, error) {
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}
	if provider == "" {
		provider = "openai"
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		Model:   modelName,
		APIKey:  apiKey,
		BaseURL: baseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 OpenAI ChatModel failed: %w", err)
	}
	return NewEinoClientWithModel(provider, modelName, cm), nil
}

// NewEinoClientWithModel 包装已有的 eino ChatModel（测试中可注入假实现）
func NewEinoClientWithModel(provider, modelName string, cm model.BaseChatModel) *EinoClient {
	return &EinoClient{provider: provider, model: modelName, cm: cm}
}

// ChatWithContext 实现 Client
func (c *EinoClient) ChatWithContext(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	in := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		in = append(in, &schema.Message{Role: roleToSchema(m.Role), Content: m.Content})
	}
	opts := []model.Option{model.WithTemperature(float32(options.Temperature))}
	if options.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(options.MaxTokens))
	}
	if options.Model != "" {
		opts = append(opts, model.WithModel(options.Model))
	}
	if len(options.Stop) > 0 {
		opts = append(opts, model.WithStop(options.Stop))
	}

	out, err := c.cm.Generate(ctx, in, opts...)
	if err != nil {
		return "", &ServiceError{Provider: c.provider, StatusCode: statusFromError(err), Err: err}
	}
	if out == nil || out.Content == "" {
		return "", &ServiceError{Provider: c.provider, Err: errors.New("没有返回结果")}
	}
	return out.Content, nil
}

// Model 返回模型名称
func (c *EinoClient) Model() string { return c.model }

// Provider 返回提供商名称
func (c *EinoClient) Provider() string { return c.provider }

// statusFromError 提取上游 HTTP 状态码，取不到时返回 0（按网络错误处理）
func statusFromError(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode
	}
	// 部分中间层只保留了错误文本
	if m := statusCodePattern.FindStringSubmatch(err.Error()); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return code
		}
	}
	return 0
}

func roleToSchema(role string) schema.RoleType {
	switch role {
	case RoleUser:
		return schema.User
	case RoleAssistant:
		return schema.Assistant
	case RoleSystem:
		return schema.System
	default:
		return schema.RoleType(role)
	}
}
