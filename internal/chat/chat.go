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

// Package chat 单轮对话编排、回复语气调整与 system 提示词
package chat

import (
	"errors"
	"fmt"

	"support-chat/internal/sentiment"
)

var (
	// ErrEmptyMessage 输入为空（去除首尾空白后）
	ErrEmptyMessage = errors.New("no message provided")
	// ErrBackendUnavailable 语言模型调用失败（超时、限流、传输错误）
	ErrBackendUnavailable = errors.New("language model backend unavailable")
)

// FormatToneTag 唯一的情绪标签格式化入口：`[negative] 原文`
func FormatToneTag(label sentiment.Label, content string) string {
	if !label.Valid() {
		label = sentiment.Neutral
	}
	return fmt.Sprintf("[%s] %s", label, content)
}
