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


// indexer 将 ingest.data_path（或第一个参数）下的 PDF 切片写入向量库。
// 向量库为 redis 时 API 启动不再入库，需先执行本命令。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"support-chat/internal/app"
	"support-chat/pkg/config"
	"support-chat/pkg/tracing"
)

func main() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	dataPath := cfg.Ingest.DataPath
	if len(os.Args) > 1 && os.Args[1] != "" {
		dataPath = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tc := cfg.Monitoring.Tracing
	if tc.Enable && tc.ExportEndpoint != "" {
		tp, err := tracing.InitTracer(tracing.OTelConfig{
			ServiceName:    tc.ServiceName + "-indexer",
			ExportEndpoint: tc.ExportEndpoint,
			Insecure:       tc.Insecure,
		})
		if err != nil {
			log.Printf("初始化链路追踪失败，继续运行: %v", err)
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(sctx)
			}()
		}
	}

	bootstrap, err := app.NewBootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	defer bootstrap.Close()

	pipeline, err := bootstrap.NewIngestPipeline(ctx)
	if err != nil {
		log.Fatalf("创建入库管线失败: %v", err)
	}
	ids, err := pipeline.Run(ctx, dataPath)
	if err != nil {
		log.Fatalf("入库失败: %v", err)
	}
	log.Printf("入库完成: %d 个切片写入 %s", len(ids), cfg.Storage.Vector.Collection)
}
