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

package config

import (
	"fmt"
	"math"
	"time"
)

// 对话与情感相关默认值
const (
	DefaultHistoryLimit      = 20
	DefaultMaxSessions       = 1000
	DefaultMaxTokens         = 300
	DefaultTemperature       = 0.7
	DefaultGenerationTimeout = "30s"
	DefaultBootstrapQuery    = "general mental health support"
	DefaultTopK              = 5
	DefaultModel             = "gpt-4o-mini"
	DefaultCollection        = "mental_docs"

	DefaultMaxInputChars     = 512
	DefaultMinConfidence     = 0.5
	DefaultWindow            = 5
	DefaultPositiveThreshold = 0.3
	DefaultNegativeThreshold = -0.3

	RetrievalStatic  = "static"
	RetrievalPerTurn = "per_turn"
)

// ApplyDefaults 为未配置项填充默认值，空文件也能得到可运行配置
func (c *Config) ApplyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.Host == "" {
		c.API.Host = "0.0.0.0"
	}
	if c.API.Middleware.RateLimitRPS <= 0 {
		c.API.Middleware.RateLimitRPS = 20
	}

	ch := &c.Chat
	if ch.HistoryLimit == 0 {
		ch.HistoryLimit = DefaultHistoryLimit
	}
	if ch.MaxSessions == 0 {
		ch.MaxSessions = DefaultMaxSessions
	}
	if ch.Generation.MaxTokens == 0 {
		ch.Generation.MaxTokens = DefaultMaxTokens
	}
	if ch.Generation.Temperature == nil {
		t := DefaultTemperature
		ch.Generation.Temperature = &t
	}
	if ch.Generation.Timeout == "" {
		ch.Generation.Timeout = DefaultGenerationTimeout
	}
	if ch.Retrieval.Mode == "" {
		ch.Retrieval.Mode = RetrievalStatic
	}
	if ch.Retrieval.BootstrapQuery == "" {
		ch.Retrieval.BootstrapQuery = DefaultBootstrapQuery
	}
	if ch.Retrieval.TopK == 0 {
		ch.Retrieval.TopK = DefaultTopK
	}
	if ch.Retry.MaxRetries == 0 {
		ch.Retry.MaxRetries = 1
	}
	if ch.Retry.InitialInterval == "" {
		ch.Retry.InitialInterval = "500ms"
	}
	if ch.Retry.MaxInterval == "" {
		ch.Retry.MaxInterval = "2s"
	}

	s := &c.Sentiment
	if s.Backend == "" {
		s.Backend = "llm"
	}
	if s.MaxInputChars == 0 {
		s.MaxInputChars = DefaultMaxInputChars
	}
	if s.MinConfidence == nil {
		mc := DefaultMinConfidence
		s.MinConfidence = &mc
	}
	s.Weights = NormalizeWeights(s.Weights)
	if s.Window == 0 {
		s.Window = DefaultWindow
	}
	if s.PositiveThreshold == 0 && s.NegativeThreshold == 0 {
		s.PositiveThreshold = DefaultPositiveThreshold
		s.NegativeThreshold = DefaultNegativeThreshold
	}
	if s.Cache.TTL == "" {
		s.Cache.TTL = "10m"
	}

	if c.Storage.Vector.Type == "" {
		c.Storage.Vector.Type = "memory"
	}
	if c.Storage.Vector.Collection == "" {
		c.Storage.Vector.Collection = DefaultCollection
	}
	if c.Storage.Cache.Type == "" {
		c.Storage.Cache.Type = "memory"
	}

	if c.Ingest.DataPath == "" {
		c.Ingest.DataPath = "data"
	}
	if c.Ingest.ChunkSize == 0 {
		c.Ingest.ChunkSize = 300
	}
	if c.Ingest.ChunkOverlap == 0 {
		c.Ingest.ChunkOverlap = 100
	}
	if c.Ingest.BatchSize == 0 {
		c.Ingest.BatchSize = 64
	}
	if c.Ingest.OnStartup == nil {
		on := true
		c.Ingest.OnStartup = &on
	}

	if c.Secrets.Provider == "" {
		c.Secrets.Provider = "env"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Monitoring.Tracing.ServiceName == "" {
		c.Monitoring.Tracing.ServiceName = "support-chat"
	}
}

// Validate 校验对话与情感配置
func (c *Config) Validate() error {
	if c.Chat.HistoryLimit < 2 {
		return fmt.Errorf("chat.history_limit 必须 >= 2，当前 %d", c.Chat.HistoryLimit)
	}
	if c.Chat.Generation.MaxTokens < 1 {
		return fmt.Errorf("chat.generation.max_tokens 必须为正数")
	}
	switch c.Chat.Retrieval.Mode {
	case RetrievalStatic, RetrievalPerTurn:
	default:
		return fmt.Errorf("chat.retrieval.mode 不支持: %q", c.Chat.Retrieval.Mode)
	}
	if c.Chat.Retrieval.TopK < 1 {
		return fmt.Errorf("chat.retrieval.top_k 必须为正数")
	}
	if c.Chat.MaxSessions < 2 {
		return fmt.Errorf("chat.max_sessions 必须 >= 2，当前 %d", c.Chat.MaxSessions)
	}
	if t := c.Chat.Generation.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("chat.generation.temperature 必须在 [0, 2] 内，当前 %v", *t)
	}
	if c.Chat.Retry.MaxRetries < 0 {
		return fmt.Errorf("chat.retry.max_retries 不能为负数")
	}
	for _, d := range []string{c.Chat.Generation.Timeout, c.Chat.Retry.InitialInterval, c.Chat.Retry.MaxInterval, c.Sentiment.Cache.TTL} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("无效时长 %q: %w", d, err)
		}
	}

	s := c.Sentiment
	if s.Window < 1 {
		return fmt.Errorf("sentiment.window 必须 >= 1，当前 %d", s.Window)
	}
	if s.MaxInputChars < 1 {
		return fmt.Errorf("sentiment.max_input_chars 必须为正数")
	}
	if mc := s.MinConfidence; mc != nil && (*mc < 0 || *mc > 1) {
		return fmt.Errorf("sentiment.min_confidence 必须在 [0, 1] 内，当前 %v", *mc)
	}
	if s.PositiveThreshold <= s.NegativeThreshold {
		return fmt.Errorf("sentiment.positive_threshold (%v) 必须大于 negative_threshold (%v)", s.PositiveThreshold, s.NegativeThreshold)
	}
	if len(s.Weights) > 0 {
		if err := ValidateWeights(s.Weights, s.Window); err != nil {
			return err
		}
	}
	switch s.Backend {
	case "llm", "hugot":
	default:
		return fmt.Errorf("sentiment.backend 不支持: %q", s.Backend)
	}
	if s.Backend == "hugot" && s.ModelPath == "" {
		return fmt.Errorf("sentiment.backend=hugot 时必须配置 sentiment.model_path")
	}

	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap 必须小于 chunk_size")
	}
	return nil
}

// ValidateWeights 权重自旧到新：长度为 window、全为正、不递减。
// 总和不要求为 1，加载时由 NormalizeWeights 归一化。
func ValidateWeights(w []float64, window int) error {
	if len(w) != window {
		return fmt.Errorf("sentiment.weights 长度 %d 与 window %d 不一致", len(w), window)
	}
	for i, x := range w {
		if x <= 0 || math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("sentiment.weights[%d] 必须为有限正数", i)
		}
		if i > 0 && x < w[i-1] {
			return fmt.Errorf("sentiment.weights 必须自旧到新不递减")
		}
	}
	return nil
}

// NormalizeWeights 按总和缩放为和为 1 的新切片；空或总和非正时原样返回，交由 ValidateWeights 报错
func NormalizeWeights(w []float64) []float64 {
	if len(w) == 0 {
		return w
	}
	sum := 0.0
	for _, x := range w {
		sum += x
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return w
	}
	out := make([]float64, len(w))
	for i, x := range w {
		out[i] = x / sum
	}
	return out
}

// TemperatureValue 生成温度，未配置时为默认值
func (g GenerationConfig) TemperatureValue() float64 {
	if g.Temperature == nil {
		return DefaultTemperature
	}
	return *g.Temperature
}

// MinConfidenceValue 分类置信度下限，未配置时为默认值
func (s SentimentConfig) MinConfidenceValue() float64 {
	if s.MinConfidence == nil {
		return DefaultMinConfidence
	}
	return *s.MinConfidence
}

// Duration 解析时长，失败时返回 fallback
func Duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
