package llm

import (
	"context"
	"fmt"
)

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client LLM 客户端接口
type Client interface {
	// ChatWithContext 使用上下文聊天，失败时返回 *ServiceError
	ChatWithContext(ctx context.Context, messages []Message, options GenerateOptions) (string, error)
	// Model 返回模型名称
	Model() string
	// Provider 返回提供商名称
	Provider() string
}

// GenerateOptions 生成选项
type GenerateOptions struct {
	Model       string   `json:"model,omitempty"` // 为空时使用客户端默认模型
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	TopP        float64  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Message 聊天消息
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// NewClient 创建新的 LLM 客户端；baseURL 用于 OpenAI 兼容端点，空则用默认或环境变量。
// clientKind 为 eino 时走 eino-ext ChatModel，其余走 resty 直连。
func NewClient(ctx context.Context, provider, clientKind, model, apiKey, baseURL string) (Client, error) {
	switch provider {
	case "openai", "qwen", "":
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
	if clientKind == "eino" {
		return NewEinoClient(ctx, provider, model, apiKey, baseURL)
	}
	c, err := NewOpenAIClientWithBaseURL(model, apiKey, baseURL)
	if err != nil {
		return nil, err
	}
	if provider != "" {
		c.provider = provider
	}
	return c, nil
}
