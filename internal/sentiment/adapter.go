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
	"time"

	"support-chat/internal/model/llm"
	"support-chat/pkg/log"
	"support-chat/pkg/metrics"
	"support-chat/pkg/retry"
)

// Result 单条文本的分类结果
type Result struct {
	Label Label
	Raw   string  // 后端原始标签，失败时为空
	Score float64 // 后端置信度，失败时为 0
}

// AdapterConfig 适配器参数
type AdapterConfig struct {
	MaxInputChars int     // 截断长度（rune），<=0 取 512
	MinConfidence float64 // 低于该置信度视为 neutral
	Retry         retry.Policy
}

// Adapter 包装分类后端：截断输入、归一标签、失败降级为 neutral，从不向上返回错误
type Adapter struct {
	backend Backend
	cfg     AdapterConfig
	logger  *log.Logger
}

// NewAdapter 创建分类适配器，logger 可为 nil
func NewAdapter(backend Backend, cfg AdapterConfig, logger *log.Logger) *Adapter {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 512
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Adapter{backend: backend, cfg: cfg, logger: logger}
}

// Classify 返回文本的情感标签
func (a *Adapter) Classify(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Label: Neutral}
	}
	text = Truncate(text, a.cfg.MaxInputChars)

	pred, err := a.call(ctx, text)
	if err != nil {
		metrics.ClassifierFailures.Inc()
		a.logger.Warn("情感分类失败，按 neutral 处理", "backend", a.backendName(), "error", err)
		return Result{Label: Neutral}
	}

	label, ok := MapRaw(pred.Label)
	if !ok {
		a.logger.Debug("未识别的分类标签，按 neutral 处理", "raw", pred.Label)
		return Result{Label: Neutral, Raw: pred.Label, Score: pred.Score}
	}
	if pred.Score < a.cfg.MinConfidence {
		return Result{Label: Neutral, Raw: pred.Label, Score: pred.Score}
	}
	return Result{Label: label, Raw: pred.Label, Score: pred.Score}
}

// call 调用后端并把 panic 转为错误
func (a *Adapter) call(ctx context.Context, text string) (pred Prediction, err error) {
	if a.backend == nil {
		return Prediction{}, fmt.Errorf("classifier backend 未配置")
	}
	onRetry := func(err error, _ time.Duration) {
		metrics.RetryTotal.WithLabelValues("classifier").Inc()
	}
	err = retry.Do(ctx, a.cfg.Retry, llm.IsTransient, onRetry, func() (opErr error) {
		defer func() {
			if r := recover(); r != nil {
				opErr = fmt.Errorf("classifier panic: %v", r)
			}
		}()
		pred, opErr = a.backend.Classify(ctx, text)
		return opErr
	})
	return pred, err
}

func (a *Adapter) backendName() string {
	if a.backend == nil {
		return ""
	}
	return a.backend.Name()
}

// Truncate 按 rune 截断到至多 n 个字符
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
