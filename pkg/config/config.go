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
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultConfigPath 默认配置文件路径，可由 CHAT_CONFIG 覆盖
const DefaultConfigPath = "configs/api.yaml"

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Sentiment  SentimentConfig  `mapstructure:"sentiment"`
	Model      ModelConfig      `mapstructure:"model"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	Timeout    string           `mapstructure:"timeout"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	RateLimit    bool `mapstructure:"rate_limit"`
	RateLimitRPS int  `mapstructure:"rate_limit_rps"`
}

// ChatConfig 对话管线配置
type ChatConfig struct {
	HistoryLimit int              `mapstructure:"history_limit"` // H：含 system 消息在内的最大消息数
	Generation   GenerationConfig `mapstructure:"generation"`
	Retrieval    RetrievalConfig  `mapstructure:"retrieval"`
	Retry        RetryConfig      `mapstructure:"retry"`
	Markers      MarkersConfig    `mapstructure:"markers"`
	MaxSessions  int              `mapstructure:"max_sessions"` // 内存中会话上限，满额淘汰最久未更新的会话
}

// GenerationConfig 生成参数
type GenerationConfig struct {
	Model       string   `mapstructure:"model"` // 空则使用 model.defaults.llm 对应模型
	MaxTokens   int      `mapstructure:"max_tokens"`
	Temperature *float64 `mapstructure:"temperature"` // 未配置时 0.7；显式 0 保留
	Timeout     string   `mapstructure:"timeout"`     // 单次生成超时，如 "30s"
}

// RetrievalConfig 检索配置
type RetrievalConfig struct {
	Mode           string `mapstructure:"mode"` // static | per_turn
	BootstrapQuery string `mapstructure:"bootstrap_query"`
	TopK           int    `mapstructure:"top_k"`
}

// RetryConfig 后端调用重试策略（仅对瞬时错误）
type RetryConfig struct {
	MaxRetries      int    `mapstructure:"max_retries"`
	InitialInterval string `mapstructure:"initial_interval"`
	MaxInterval     string `mapstructure:"max_interval"`
}

// MarkersConfig 回复修饰文本，留空使用内置值
type MarkersConfig struct {
	EmpathyPrefix string `mapstructure:"empathy_prefix"`
	HardFraming   string `mapstructure:"hard_framing"`
	Supportive    string `mapstructure:"supportive"`
	Positive      string `mapstructure:"positive"`
	Celebratory   string `mapstructure:"celebratory"`
}

// SentimentConfig 情感分类与轨迹配置
type SentimentConfig struct {
	Backend           string               `mapstructure:"backend"`    // llm | hugot
	ModelPath         string               `mapstructure:"model_path"` // hugot 本地 ONNX 模型目录
	MaxInputChars     int                  `mapstructure:"max_input_chars"`
	MinConfidence     *float64             `mapstructure:"min_confidence"` // 未配置时 0.5；显式 0 保留
	Window            int                  `mapstructure:"window"` // W
	Weights           []float64            `mapstructure:"weights"`
	PositiveThreshold float64              `mapstructure:"positive_threshold"`
	NegativeThreshold float64              `mapstructure:"negative_threshold"`
	Cache             SentimentCacheConfig `mapstructure:"cache"`
}

// SentimentCacheConfig 分类结果缓存
type SentimentCacheConfig struct {
	Enable bool   `mapstructure:"enable"`
	TTL    string `mapstructure:"ttl"`
}

// ModelConfig 模型配置
type ModelConfig struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
}

// LLMConfig LLM 模型配置
type LLMConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// EmbeddingConfig Embedding 模型配置
type EmbeddingConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	APIKey  string               `mapstructure:"api_key"`
	BaseURL string               `mapstructure:"base_url"`
	Client  string               `mapstructure:"client"` // resty | eino，默认 resty
	Models  map[string]ModelInfo `mapstructure:"models"`
}

// ModelInfo 模型信息
type ModelInfo struct {
	Name          string  `mapstructure:"name"`
	ContextWindow int     `mapstructure:"context_window"`
	Temperature   float64 `mapstructure:"temperature"`
	Dimension     int     `mapstructure:"dimension"`
	MaxTokens     int     `mapstructure:"max_tokens"`
}

// DefaultsConfig 默认模型，格式 provider.model
type DefaultsConfig struct {
	LLM       string `mapstructure:"llm"`
	Embedding string `mapstructure:"embedding"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Vector VectorConfig `mapstructure:"vector"`
	Cache  CacheConfig  `mapstructure:"cache"`
}

// VectorConfig 向量存储配置（memory 为内置内存；redis 使用 eino-ext 对应组件）
type VectorConfig struct {
	Type       string `mapstructure:"type"`
	Addr       string `mapstructure:"addr"`
	DB         string `mapstructure:"db"`         // memory 忽略；Redis 为 DB 编号，如 "0"
	Collection string `mapstructure:"collection"` // ingest 与 query 共用
	Password   string `mapstructure:"password"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Type     string `mapstructure:"type"` // memory | redis
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// IngestConfig 文档入库配置
type IngestConfig struct {
	DataPath     string `mapstructure:"data_path"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	BatchSize    int    `mapstructure:"batch_size"`
	OnStartup    *bool  `mapstructure:"on_startup"` // 内存向量库时 API 启动即入库；未配置时默认 true
}

// SecretsConfig 密钥来源
type SecretsConfig struct {
	Provider string      `mapstructure:"provider"` // env | vault | memory
	Vault    VaultConfig `mapstructure:"vault"`
}

// VaultConfig Vault 连接配置
type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// RateLimitsConfig 限流配置
type RateLimitsConfig struct {
	LLM map[string]LLMRateLimitConfig `mapstructure:"llm"`
}

// LLMRateLimitConfig 单个 LLM Provider 的限流配置
type LLMRateLimitConfig struct {
	TokensPerMinute   int     `mapstructure:"tokens_per_minute"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadAPIConfig 加载 API 配置，CHAT_CONFIG 指定路径时优先
func LoadAPIConfig() (*Config, error) {
	path := os.Getenv("CHAT_CONFIG")
	if path == "" {
		path = DefaultConfigPath
	}
	return LoadConfig(path)
}

// expandEnv 将 ${VAR} 形式的值替换为环境变量，未设置时保持原值
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "$") {
		return s
	}
	envVar := strings.TrimPrefix(strings.TrimSuffix(s, "}"), "${")
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return s
}

// replaceEnvVars 替换配置中的环境变量
func replaceEnvVars(config *Config) {
	for provider, providerConfig := range config.Model.LLM.Providers {
		providerConfig.APIKey = expandEnv(providerConfig.APIKey)
		config.Model.LLM.Providers[provider] = providerConfig
	}
	for provider, providerConfig := range config.Model.Embedding.Providers {
		providerConfig.APIKey = expandEnv(providerConfig.APIKey)
		config.Model.Embedding.Providers[provider] = providerConfig
	}
	config.Storage.Vector.Password = expandEnv(config.Storage.Vector.Password)
	config.Storage.Cache.Password = expandEnv(config.Storage.Cache.Password)
	config.Secrets.Vault.Token = expandEnv(config.Secrets.Vault.Token)
}
