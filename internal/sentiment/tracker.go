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
	"fmt"
	"math"

	"support-chat/pkg/config"
)

// TrackerConfig 轨迹参数
type TrackerConfig struct {
	Window            int       // W
	Weights           []float64 // 自旧到新，长度 W；为空时使用线性权重 (i+1)/Σ
	PositiveThreshold float64
	NegativeThreshold float64
}

// Tracker 最近 W 条情感标签的有界 FIFO 及其按时间加权的聚合情绪。
// 非并发安全，由所属会话的锁保护。
type Tracker struct {
	window  int
	weights []float64
	pos     float64
	neg     float64
	labels  []Label
}

// LinearWeights 线性递增权重，自旧到新为 1..n，归一化
func LinearWeights(n int) []float64 {
	w := make([]float64, n)
	total := float64(n*(n+1)) / 2
	for i := range w {
		w[i] = float64(i+1) / total
	}
	return w
}

// NewTracker 创建轨迹；权重须与 Window 等长、全为正且自旧到新不递减，总和不限
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	if cfg.Window < 1 {
		return nil, fmt.Errorf("window 必须 >= 1，当前 %d", cfg.Window)
	}
	weights := cfg.Weights
	if len(weights) == 0 {
		weights = LinearWeights(cfg.Window)
	}
	if err := config.ValidateWeights(weights, cfg.Window); err != nil {
		return nil, err
	}
	if cfg.PositiveThreshold <= cfg.NegativeThreshold {
		return nil, fmt.Errorf("positive_threshold 必须大于 negative_threshold")
	}
	return &Tracker{
		window:  cfg.Window,
		weights: append([]float64(nil), weights...),
		pos:     cfg.PositiveThreshold,
		neg:     cfg.NegativeThreshold,
		labels:  make([]Label, 0, cfg.Window),
	}, nil
}

// Record 追加标签，超出 W 时丢弃最旧的一条
func (t *Tracker) Record(l Label) {
	if !l.Valid() {
		l = Neutral
	}
	if len(t.labels) == t.window {
		copy(t.labels, t.labels[1:])
		t.labels = t.labels[:t.window-1]
	}
	t.labels = append(t.labels, l)
}

// Aggregate 加权聚合：条目不足 W 时取权重尾部子向量并重新归一化；空轨迹为 neutral
func (t *Tracker) Aggregate() (Label, float64) {
	n := len(t.labels)
	if n == 0 {
		return Neutral, 0
	}
	w := t.weights[t.window-n:]
	var sum, score float64
	for i, l := range t.labels {
		sum += w[i]
		score += w[i] * l.Value()
	}
	score /= sum
	// 消除浮点噪声，保证 ±1 附近结果稳定
	score = math.Round(score*1e9) / 1e9
	switch {
	case score > t.pos:
		return Positive, score
	case score < t.neg:
		return Negative, score
	default:
		return Neutral, score
	}
}

// Labels 返回当前轨迹的副本，自旧到新
func (t *Tracker) Labels() []Label {
	return append([]Label(nil), t.labels...)
}

// Len 当前条目数
func (t *Tracker) Len() int {
	return len(t.labels)
}
