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

package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"support-chat/internal/api/http"
	"support-chat/internal/api/http/middleware"
	"support-chat/internal/app"
	"support-chat/internal/chat"
	"support-chat/internal/model/llm"
	"support-chat/internal/runtime/session"
	"support-chat/internal/sentiment"
	"support-chat/pkg/config"
	"support-chat/pkg/log"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用（装配编排器、HTTP Router、Handler、Middleware）
type App struct {
	boot         *app.Bootstrap
	orchestrator *chat.Orchestrator
	sessions     *session.Manager
	router       *http.Router
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
	closers      []io.Closer
}

// NewApp 创建 API 应用（由 cmd/api 调用）
func NewApp(ctx context.Context, boot *app.Bootstrap) (*App, error) {
	cfg := boot.Config
	logger := boot.Logger

	if shouldIngestOnStartup(cfg) {
		if err := ingestOnStartup(ctx, boot); err != nil {
			logger.Warn("启动入库失败，将使用空上下文", "data_path", cfg.Ingest.DataPath, "error", err)
		}
	}

	retriever := boot.NewSnippetRetriever()
	snippets, err := retriever.Retrieve(ctx, cfg.Chat.Retrieval.BootstrapQuery, cfg.Chat.Retrieval.TopK)
	if err != nil {
		logger.Warn("启动检索失败", "query", cfg.Chat.Retrieval.BootstrapQuery, "error", err)
		snippets = nil
	}
	logger.Info("启动检索完成", "query", cfg.Chat.Retrieval.BootstrapQuery, "snippets", len(snippets))
	systemPrompt := chat.BuildSystemPrompt(snippets)

	baseClient, modelName, err := app.NewLLMClientFromConfig(ctx, cfg, boot.Secrets)
	if err != nil {
		return nil, fmt.Errorf("初始化 LLM 客户端失败: %w", err)
	}
	policy := app.RetryPolicy(cfg)
	genClient := llm.NewRetryClient(baseClient, policy, logger)

	backend, closer, err := sentiment.NewBackendFromConfig(cfg.Sentiment, baseClient, modelName, boot.Cache)
	if err != nil {
		return nil, fmt.Errorf("初始化情感分类后端失败: %w", err)
	}
	classifier := sentiment.NewAdapter(backend, sentiment.AdapterConfig{
		MaxInputChars: cfg.Sentiment.MaxInputChars,
		MinConfidence: cfg.Sentiment.MinConfidenceValue(),
		Retry:         policy,
	}, logger)

	sessions := session.NewManager(session.NewMemoryStore(), session.ManagerConfig{
		SystemPrompt: systemPrompt,
		HistoryLimit: cfg.Chat.HistoryLimit,
		NewTracker: func() (*sentiment.Tracker, error) {
			return sentiment.NewTrackerFromConfig(cfg.Sentiment)
		},
		MaxSessions: cfg.Chat.MaxSessions,
		Logger:      logger,
	})
	// 单会话部署的默认会话在启动时建立
	if _, err := sessions.GetOrCreate(ctx, session.DefaultID); err != nil {
		return nil, fmt.Errorf("初始化默认会话失败: %w", err)
	}

	orch, err := chat.NewOrchestrator(ctx, chat.OrchestratorConfig{
		Sessions:   sessions,
		Classifier: classifier,
		LLM:        genClient,
		Generation: chat.GenerationOptions{
			Model:       modelName,
			MaxTokens:   cfg.Chat.Generation.MaxTokens,
			Temperature: cfg.Chat.Generation.TemperatureValue(),
			Timeout:     config.Duration(cfg.Chat.Generation.Timeout, 0),
		},
		Adapter:       chat.NewResponseAdapter(chat.MarkersFromConfig(cfg.Chat.Markers)),
		Retriever:     retriever,
		RetrievalMode: cfg.Chat.Retrieval.Mode,
		TopK:          cfg.Chat.Retrieval.TopK,
		Logger:        logger,
	})
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}

	handler := http.NewHandler(orch, sessions, logger)
	router := http.NewRouter(handler, middleware.NewMiddleware(cfg.API, logger))

	a := &App{
		boot:         boot,
		orchestrator: orch,
		sessions:     sessions,
		router:       router,
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	return a, nil
}

// Orchestrator 单轮编排器
func (a *App) Orchestrator() *chat.Orchestrator {
	return a.orchestrator
}

// Run 启动 HTTP 服务，addr 如 ":8080"
func (a *App) Run(addr string) error {
	cfg := a.boot.Config
	a.boot.Logger.Info("API 服务启动", "addr", addr)

	// 使用 Hertz slog 扩展，与 bootstrap 配置对齐
	output := os.Stdout
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		output = f
	}
	levelVar := &slog.LevelVar{}
	levelVar.Set(log.ParseLevel(cfg.Log.Level))
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))

	// 可选：启用链路追踪（OpenTelemetry）
	tracingCfg := cfg.Monitoring.Tracing
	exportEndpoint := tracingCfg.ExportEndpoint
	if exportEndpoint == "" {
		exportEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if tracingCfg.Enable && exportEndpoint != "" {
		opts := []provider.Option{
			provider.WithServiceName(tracingCfg.ServiceName),
			provider.WithExportEndpoint(exportEndpoint),
		}
		if tracingCfg.Insecure {
			opts = append(opts, provider.WithInsecure())
		}
		a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
		tracerOpt, tcfg := hertztracing.NewServerTracer()
		a.hertz = a.router.Build(addr, tracerOpt)
		a.hertz.Use(hertztracing.ServerMiddleware(tcfg))
		a.boot.Logger.Info("链路追踪已启用", "service_name", tracingCfg.ServiceName, "endpoint", exportEndpoint)
	} else {
		a.hertz = a.router.Build(addr)
	}
	return a.hertz.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
	return a.boot.Close()
}

func shouldIngestOnStartup(cfg *config.Config) bool {
	if t := cfg.Storage.Vector.Type; t != "" && t != "memory" {
		return false
	}
	return cfg.Ingest.OnStartup == nil || *cfg.Ingest.OnStartup
}

func ingestOnStartup(ctx context.Context, boot *app.Bootstrap) error {
	if _, err := os.Stat(boot.Config.Ingest.DataPath); err != nil {
		return err
	}
	p, err := boot.NewIngestPipeline(ctx)
	if err != nil {
		return err
	}
	_, err = p.Run(ctx, boot.Config.Ingest.DataPath)
	return err
}
