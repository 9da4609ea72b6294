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

package sentiment

import (
	"context"
	"fmt"
	"strings"

	"support-chat/internal/model/llm"
)

const classifyPrompt = `You are a sentiment classifier. Classify the overall sentiment of the user's message.
Answer with exactly one word: positive, neutral, or negative.`

// LLMBackend 以对话模型做零样本情感分类
type LLMBackend struct {
	client    llm.Client
	modelName string
}

// NewLLMBackend modelName 为空时使用客户端默认模型
func NewLLMBackend(client llm.Client, modelName string) *LLMBackend {
	return &LLMBackend{client: client, modelName: modelName}
}

// Name 后端名称
func (b *LLMBackend) Name() string { return "llm" }

// Classify 返回模型输出的第一个词作为原始标签，置信度固定为 1
func (b *LLMBackend) Classify(ctx context.Context, text string) (Prediction, error) {
	if b.client == nil {
		return Prediction{}, fmt.Errorf("llm client 未配置")
	}
	out, err := b.client.ChatWithContext(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: classifyPrompt},
		{Role: llm.RoleUser, Content: text},
	}, llm.GenerateOptions{Model: b.modelName, Temperature: 0, MaxTokens: 3})
	if err != nil {
		return Prediction{}, err
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return Prediction{}, fmt.Errorf("classifier 返回为空")
	}
	return Prediction{Label: fields[0], Score: 1}, nil
}
