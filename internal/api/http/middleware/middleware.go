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

package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"golang.org/x/time/rate"

	"support-chat/pkg/config"
	"support-chat/pkg/log"
)

// Middleware 中间件管理器
type Middleware struct {
	cfg    config.APIConfig
	logger *log.Logger
}

// NewMiddleware 创建中间件管理器，logger 可为 nil
func NewMiddleware(cfg config.APIConfig, logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.Nop()
	}
	return &Middleware{cfg: cfg, logger: logger}
}

// Chain 按配置返回全局中间件
func (m *Middleware) Chain() []app.HandlerFunc {
	chain := []app.HandlerFunc{m.AccessLog()}
	if m.cfg.CORS.Enable {
		chain = append(chain, m.CORS())
	}
	if m.cfg.Middleware.RateLimit {
		chain = append(chain, m.RateLimit(m.cfg.Middleware.RateLimitRPS))
	}
	return chain
}

// CORS 跨域中间件；allow_origins 为空时放行所有来源
func (m *Middleware) CORS() app.HandlerFunc {
	allowed := make(map[string]bool, len(m.cfg.CORS.AllowOrigins))
	for _, o := range m.cfg.CORS.AllowOrigins {
		allowed[strings.TrimSpace(o)] = true
	}
	return func(ctx context.Context, c *app.RequestContext) {
		origin := string(c.GetHeader("Origin"))
		switch {
		case len(allowed) == 0 || allowed["*"]:
			c.Header("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		c.Header("Access-Control-Max-Age", "86400")

		if string(c.Method()) == consts.MethodOptions {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}

// RateLimit 全局令牌桶限流，rps<=0 时不限流
func (m *Middleware) RateLimit(rps int) app.HandlerFunc {
	if rps <= 0 {
		return func(ctx context.Context, c *app.RequestContext) { c.Next(ctx) }
	}
	limiter := rate.NewLimiter(rate.Limit(rps), rps)
	return func(ctx context.Context, c *app.RequestContext) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(consts.StatusTooManyRequests, map[string]string{
				"error": "too many requests, please slow down",
			})
			return
		}
		c.Next(ctx)
	}
}

// AccessLog 请求日志
func (m *Middleware) AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)
		m.logger.Info("http request",
			"method", string(c.Method()),
			"path", string(c.Path()),
			"status", c.Response.StatusCode(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP())
	}
}
