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

package chat

import (
	"regexp"
	"strings"

	"support-chat/internal/sentiment"
	"support-chat/pkg/config"
)

// 内置修饰文本
const (
	DefaultEmpathyPrefix = "I hear you. "
	DefaultHardFraming   = "This seems really hard right now. "
	DefaultSupportive    = " 💙"
	DefaultPositive      = " 😊"
	DefaultCelebratory   = " 🎉"
)

var difficultyToken = regexp.MustCompile(`(?i)\b(hard|difficult|tough|rough)\b`)

// Markers 回复修饰文本
type Markers struct {
	EmpathyPrefix string
	HardFraming   string
	Supportive    string
	Positive      string
	Celebratory   string
}

// MarkersFromConfig 空字段使用内置值
func MarkersFromConfig(cfg config.MarkersConfig) Markers {
	m := Markers{
		EmpathyPrefix: cfg.EmpathyPrefix,
		HardFraming:   cfg.HardFraming,
		Supportive:    cfg.Supportive,
		Positive:      cfg.Positive,
		Celebratory:   cfg.Celebratory,
	}
	if m.EmpathyPrefix == "" {
		m.EmpathyPrefix = DefaultEmpathyPrefix
	}
	if m.HardFraming == "" {
		m.HardFraming = DefaultHardFraming
	}
	if m.Supportive == "" {
		m.Supportive = DefaultSupportive
	}
	if m.Positive == "" {
		m.Positive = DefaultPositive
	}
	if m.Celebratory == "" {
		m.Celebratory = DefaultCelebratory
	}
	return m
}

// ResponseAdapter 按固定规则表为模型回复加前后缀，不改动正文
type ResponseAdapter struct {
	m Markers
}

// NewResponseAdapter 创建回复调整器
func NewResponseAdapter(m Markers) *ResponseAdapter {
	return &ResponseAdapter{m: MarkersFromConfig(config.MarkersConfig(m))}
}

// Adapt 规则依次生效；每条规则先检查自身标记是否已存在，因此 Adapt(Adapt(x)) == Adapt(x)
func (a *ResponseAdapter) Adapt(raw string, immediate, aggregate sentiment.Label) string {
	out := raw

	// 1. 即时负面：共情前缀 + 支持标记
	if immediate == sentiment.Negative {
		if !strings.Contains(out, a.m.EmpathyPrefix) {
			out = a.m.EmpathyPrefix + out
		}
		if !strings.HasSuffix(out, a.m.Supportive) {
			out += a.m.Supportive
		}
	}

	// 2. 即时正面：正面标记
	if immediate == sentiment.Positive {
		if !strings.HasSuffix(out, a.m.Positive) && !strings.HasSuffix(out, a.m.Celebratory) {
			out += a.m.Positive
		}
	}

	// 3. 整体负面且本轮非正面：困难框架
	if aggregate == sentiment.Negative && immediate != sentiment.Positive {
		if !strings.HasPrefix(out, a.m.HardFraming) && !difficultyToken.MatchString(out) {
			out = a.m.HardFraming + out
		}
	}

	// 4. 整体正面且本轮非负面：正面标记升级为庆祝标记
	if aggregate == sentiment.Positive && immediate != sentiment.Negative {
		if strings.HasSuffix(out, a.m.Positive) {
			out = strings.TrimSuffix(out, a.m.Positive) + a.m.Celebratory
		}
	}
	return out
}
