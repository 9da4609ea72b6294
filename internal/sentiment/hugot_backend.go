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
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// textClassifier hugot 文本分类流水线的最小接口
type textClassifier interface {
	RunPipeline(inputs []string) (*pipelines.TextClassificationOutput, error)
}

// HugotBackend 本地 ONNX 文本分类模型（纯 Go 运行时）
type HugotBackend struct {
	mu       sync.Mutex
	session  *hugot.Session
	pipeline textClassifier
	name     string
}

// NewHugotBackend 从 modelPath 加载情感/情绪分类模型
func NewHugotBackend(modelPath string) (*HugotBackend, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("hugot model_path 为空")
	}
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("创建 hugot session 失败: %w", err)
	}
	p, err := hugot.NewPipeline(session, hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "sentiment",
	})
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("加载分类模型失败: %w", err)
	}
	return &HugotBackend{session: session, pipeline: p, name: "hugot"}, nil
}

// Name 后端名称
func (b *HugotBackend) Name() string { return b.name }

// Classify 取首个输入的最高分标签
func (b *HugotBackend) Classify(ctx context.Context, text string) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	b.mu.Lock()
	out, err := b.pipeline.RunPipeline([]string{text})
	b.mu.Unlock()
	if err != nil {
		return Prediction{}, fmt.Errorf("hugot 推理失败: %w", err)
	}
	if out == nil || len(out.ClassificationOutputs) == 0 || len(out.ClassificationOutputs[0]) == 0 {
		return Prediction{}, fmt.Errorf("hugot 返回为空")
	}
	best := out.ClassificationOutputs[0][0]
	for _, c := range out.ClassificationOutputs[0][1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return Prediction{Label: best.Label, Score: float64(best.Score)}, nil
}

// Close 释放 hugot session
func (b *HugotBackend) Close() error {
	if b.session == nil {
		return nil
	}
	return b.session.Destroy()
}
