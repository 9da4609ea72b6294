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
	"github.com/cloudwego/hertz/pkg/app/middlewares/server/recovery"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"support-chat/internal/api/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
}

// NewRouter 创建 HTTP 路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: mw}
}

// Build 创建 Hertz 实例并注册路由；opts 追加在地址之后（如链路追踪 tracer）
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	all := append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.New(all...)
	h.Use(recovery.Recovery())
	r.Register(h)
	return h
}

// Register 在已有 Hertz 实例上挂载中间件与路由
func (r *Router) Register(h *server.Hertz) {
	if r.middleware != nil {
		h.Use(r.middleware.Chain()...)
	}
	h.GET("/", r.handler.Index)
	h.POST("/chat", r.handler.Chat)
	h.GET("/metrics", r.handler.Metrics)

	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)
	api.POST("/chat", r.handler.Chat)
	api.GET("/history", r.handler.History)
}
