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

package http

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/prometheus/common/expfmt"

	"support-chat/internal/chat"
	"support-chat/internal/runtime/session"
	pkgerrors "support-chat/pkg/errors"
	"support-chat/pkg/log"
	"support-chat/pkg/metrics"
)

//go:embed static/index.html
var indexHTML []byte

// 对外固定的错误文本
const (
	MsgNoMessage   = "No message provided"
	MsgUnavailable = "The assistant is temporarily unavailable. Please try again in a moment."
	MsgInternal    = "internal error"
)

// TurnRunner 执行一轮对话
type TurnRunner interface {
	Turn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResult, error)
}

// ConversationReader 只读会话查询
type ConversationReader interface {
	Get(ctx context.Context, id string) (*session.Conversation, error)
}

// ChatRequest POST /chat 请求体
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// Handler HTTP 处理器
type Handler struct {
	turns     TurnRunner
	history   ConversationReader
	logger    *log.Logger
	startedAt time.Time
}

// NewHandler 创建 HTTP 处理器，logger 可为 nil
func NewHandler(turns TurnRunner, history ConversationReader, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Handler{turns: turns, history: history, logger: logger, startedAt: time.Now()}
}

// Index 静态聊天页
func (h *Handler) Index(ctx context.Context, c *app.RequestContext) {
	c.Data(consts.StatusOK, "text/html; charset=utf-8", indexHTML)
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]interface{}{
		"status":         "ok",
		"timestamp":      time.Now().Unix(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"service":        "support-chat",
	})
}

// Chat 单轮对话
func (h *Handler) Chat(ctx context.Context, c *app.RequestContext) {
	var req ChatRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": MsgNoMessage})
		return
	}
	if h.turns == nil {
		c.JSON(consts.StatusServiceUnavailable, map[string]string{"error": MsgUnavailable})
		return
	}
	res, err := h.turns.Turn(ctx, chat.TurnRequest{Message: req.Message, SessionID: req.SessionID})
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			c.JSON(consts.StatusBadRequest, map[string]string{"error": MsgNoMessage})
		case errors.Is(err, chat.ErrBackendUnavailable):
			h.logger.Error("对话生成失败", "session_id", req.SessionID, "error", err)
			c.JSON(consts.StatusServiceUnavailable, map[string]string{"error": MsgUnavailable})
		default:
			h.logger.Error("对话处理失败", "session_id", req.SessionID, "error", err)
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": MsgInternal})
		}
		return
	}
	c.JSON(consts.StatusOK, res)
}

// History 会话只读快照
func (h *Handler) History(ctx context.Context, c *app.RequestContext) {
	if h.history == nil {
		c.JSON(consts.StatusNotFound, map[string]string{"error": "history not available"})
		return
	}
	id := c.Query("session_id")
	conv, err := h.history.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			c.JSON(consts.StatusNotFound, map[string]string{"error": "session not found"})
			return
		}
		h.logger.Error("读取会话失败", "session_id", id, "error", err)
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": MsgInternal})
		return
	}
	c.JSON(consts.StatusOK, conv.State())
}

// Metrics Prometheus 文本格式指标
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		h.logger.Error("导出指标失败", "error", err)
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": MsgInternal})
		return
	}
	c.Data(consts.StatusOK, string(expfmt.NewFormat(expfmt.TypeTextPlain)), buf.Bytes())
}
