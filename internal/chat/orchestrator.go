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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	"support-chat/internal/model/llm"
	"support-chat/internal/runtime/session"
	"support-chat/internal/sentiment"
	"support-chat/pkg/config"
	"support-chat/pkg/log"
	"support-chat/pkg/metrics"
	"support-chat/pkg/tracing"
)

// 图节点名
const (
	NodeValidate        = "validate"
	NodeClassify        = "classify"
	NodeRecordUser      = "record_user"
	NodeRetrieve        = "retrieve"
	NodeGenerate        = "generate"
	NodeAdapt           = "adapt"
	NodeRecordAssistant = "record_assistant"

	GraphName = "chat_turn"
)

// Classifier 单条文本情感分类，实现方保证不返回错误
type Classifier interface {
	Classify(ctx context.Context, text string) sentiment.Result
}

// Retriever 按查询取 k 个文本片段
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// GenerationOptions 固定的生成参数
type GenerationOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// OrchestratorConfig 编排器依赖
type OrchestratorConfig struct {
	Sessions      *session.Manager
	Classifier    Classifier
	LLM           llm.Client
	Generation    GenerationOptions
	Adapter       *ResponseAdapter
	Retriever     Retriever // 仅 per_turn 模式使用，可为 nil
	RetrievalMode string
	TopK          int
	Logger        *log.Logger
}

// TurnRequest 一轮输入
type TurnRequest struct {
	Message   string
	SessionID string
}

// TurnResult 一轮输出
type TurnResult struct {
	Response           string          `json:"response"`
	Sentiment          sentiment.Label `json:"sentiment"`
	AggregateSentiment sentiment.Label `json:"aggregate_sentiment"`
	SessionID          string          `json:"session_id"`
}

// turnState 图中流转的单轮状态；节点错误记入 err，后续节点跳过
type turnState struct {
	req       TurnRequest
	message   string
	conv      *session.Conversation
	immediate sentiment.Result
	aggregate sentiment.Label
	snapshot  []session.Message
	extra     []string
	raw       string
	response  string
	err       error
}

// Orchestrator 单轮状态机：validate → classify → record_user → retrieve → generate → adapt → record_assistant
type Orchestrator struct {
	cfg      OrchestratorConfig
	runnable compose.Runnable[*turnState, *turnState]
}

// NewOrchestrator 构建并编译单轮图
func NewOrchestrator(ctx context.Context, cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("sessions 未配置")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("classifier 未配置")
	}
	if cfg.LLM == nil {
		return nil, fmt.Errorf("llm client 未配置")
	}
	if cfg.Adapter == nil {
		cfg.Adapter = NewResponseAdapter(Markers{})
	}
	if cfg.RetrievalMode == "" {
		cfg.RetrievalMode = config.RetrievalStatic
	}
	if cfg.TopK <= 0 {
		cfg.TopK = config.DefaultTopK
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	o := &Orchestrator{cfg: cfg}
	g, err := o.buildGraph()
	if err != nil {
		return nil, err
	}
	r, err := g.Compile(ctx, compose.WithGraphName(GraphName))
	if err != nil {
		return nil, fmt.Errorf("compile chat graph failed: %w", err)
	}
	o.runnable = r
	return o, nil
}

func (o *Orchestrator) buildGraph() (*compose.Graph[*turnState, *turnState], error) {
	g := compose.NewGraph[*turnState, *turnState]()
	nodes := []struct {
		name string
		fn   func(context.Context, *turnState) (*turnState, error)
	}{
		{NodeValidate, o.validate},
		{NodeClassify, o.classify},
		{NodeRecordUser, o.recordUser},
		{NodeRetrieve, o.retrieve},
		{NodeGenerate, o.generate},
		{NodeAdapt, o.adapt},
		{NodeRecordAssistant, o.recordAssistant},
	}
	prev := compose.START
	for _, n := range nodes {
		if err := g.AddLambdaNode(n.name, compose.InvokableLambda(skipOnError(n.fn)), compose.WithNodeName(n.name)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.name, err)
		}
		if err := g.AddEdge(prev, n.name); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", prev, n.name, err)
		}
		prev = n.name
	}
	if err := g.AddEdge(prev, compose.END); err != nil {
		return nil, err
	}
	return g, nil
}

func skipOnError(fn func(context.Context, *turnState) (*turnState, error)) func(context.Context, *turnState) (*turnState, error) {
	return func(ctx context.Context, st *turnState) (*turnState, error) {
		if st.err != nil {
			return st, nil
		}
		return fn(ctx, st)
	}
}

// Turn 执行一轮对话。返回 ErrEmptyMessage（未改动任何状态）或包装 ErrBackendUnavailable 的错误（用户消息已记录）。
func (o *Orchestrator) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	start := time.Now()
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = session.DefaultID
	}
	ctx, span := tracing.StartTurnSpan(ctx, sessionID)

	st, err := o.runnable.Invoke(ctx, &turnState{req: TurnRequest{Message: req.Message, SessionID: sessionID}})
	if err == nil {
		err = st.err
	}
	metrics.TurnDuration.Observe(time.Since(start).Seconds())
	tracing.EndSpan(span, err)
	if err != nil {
		metrics.TurnTotal.WithLabelValues(turnStatus(err)).Inc()
		return nil, err
	}
	metrics.TurnTotal.WithLabelValues("ok").Inc()
	return &TurnResult{
		Response:           st.response,
		Sentiment:          st.immediate.Label,
		AggregateSentiment: st.aggregate,
		SessionID:          st.conv.ID,
	}, nil
}

func turnStatus(err error) string {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return "invalid"
	case errors.Is(err, ErrBackendUnavailable):
		return "backend_error"
	default:
		return "error"
	}
}

func (o *Orchestrator) validate(_ context.Context, st *turnState) (*turnState, error) {
	st.message = strings.TrimSpace(st.req.Message)
	if st.message == "" {
		st.err = ErrEmptyMessage
	}
	return st, nil
}

func (o *Orchestrator) classify(ctx context.Context, st *turnState) (*turnState, error) {
	st.immediate = o.cfg.Classifier.Classify(ctx, st.message)
	if !st.immediate.Label.Valid() {
		st.immediate.Label = sentiment.Neutral
	}
	metrics.SentimentTotal.WithLabelValues("immediate", string(st.immediate.Label)).Inc()
	return st, nil
}

func (o *Orchestrator) recordUser(ctx context.Context, st *turnState) (*turnState, error) {
	conv, err := o.cfg.Sessions.GetOrCreate(ctx, st.req.SessionID)
	if err != nil {
		st.err = fmt.Errorf("load session %s: %w", st.req.SessionID, err)
		return st, nil
	}
	st.conv = conv
	st.snapshot, st.aggregate, _ = conv.RecordUser(FormatToneTag(st.immediate.Label, st.message), st.immediate.Label)
	metrics.SentimentTotal.WithLabelValues("aggregate", string(st.aggregate)).Inc()
	metrics.HistoryLength.Observe(float64(len(st.snapshot)))
	return st, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, st *turnState) (*turnState, error) {
	if o.cfg.RetrievalMode != config.RetrievalPerTurn || o.cfg.Retriever == nil {
		return st, nil
	}
	snippets, err := o.cfg.Retriever.Retrieve(ctx, st.message, o.cfg.TopK)
	if err != nil {
		o.cfg.Logger.Warn("按轮检索失败，仅使用启动上下文", "session_id", st.conv.ID, "error", err)
		return st, nil
	}
	st.extra = snippets
	return st, nil
}

func (o *Orchestrator) generate(ctx context.Context, st *turnState) (*turnState, error) {
	msgs := session.MessagesToLLM(st.snapshot)
	if len(st.extra) > 0 {
		withCtx := make([]llm.Message, 0, len(msgs)+1)
		withCtx = append(withCtx, msgs[0], llm.Message{Role: llm.RoleSystem, Content: BuildTurnContext(st.extra)})
		msgs = append(withCtx, msgs[1:]...)
	}

	gen := o.cfg.Generation
	if gen.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, gen.Timeout)
		defer cancel()
	}
	ctx, span := tracing.StartGenerateSpan(ctx, o.cfg.LLM.Provider(), o.cfg.LLM.Model(), len(msgs))
	start := time.Now()
	raw, err := o.cfg.LLM.ChatWithContext(ctx, msgs, llm.GenerateOptions{
		Model:       gen.Model,
		MaxTokens:   gen.MaxTokens,
		Temperature: gen.Temperature,
	})
	metrics.LLMDuration.WithLabelValues(o.cfg.LLM.Provider()).Observe(time.Since(start).Seconds())
	tracing.EndSpan(span, err)
	if err != nil {
		o.cfg.Logger.Error("生成失败，用户消息已保留", "session_id", st.conv.ID, "error", err)
		st.err = fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		return st, nil
	}
	st.raw = raw
	return st, nil
}

func (o *Orchestrator) adapt(_ context.Context, st *turnState) (*turnState, error) {
	st.response = o.cfg.Adapter.Adapt(st.raw, st.immediate.Label, st.aggregate)
	return st, nil
}

func (o *Orchestrator) recordAssistant(_ context.Context, st *turnState) (*turnState, error) {
	st.conv.RecordAssistant(st.response)
	metrics.HistoryLength.Observe(float64(st.conv.Len()))
	o.cfg.Logger.Info("turn completed",
		"session_id", st.conv.ID,
		"sentiment", st.immediate.Label,
		"aggregate_sentiment", st.aggregate)
	return st, nil
}
