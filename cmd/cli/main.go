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


package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"support-chat/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "version":
		fmt.Println("support-chat cli 0.1.0")
	case "health":
		runHealth()
	case "config":
		runConfig()
	case "chat":
		sessionID := os.Getenv("CHAT_SESSION_ID")
		if len(args) > 0 {
			sessionID = args[0]
		}
		os.Exit(runChat(sessionID, os.Stdin, os.Stdout, os.Stderr))
	case "send":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: chatctl send <message> [session_id]\n")
			os.Exit(1)
		}
		sessionID := ""
		if len(args) > 1 {
			sessionID = args[1]
		}
		os.Exit(runSend(sessionID, args[0], os.Stdout, os.Stderr))
	case "history":
		sessionID := ""
		if len(args) > 0 {
			sessionID = args[0]
		}
		os.Exit(runHistory(sessionID, os.Stdout, os.Stderr))
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: chatctl <command> [args]")
	fmt.Println("  version                   - 显示版本")
	fmt.Println("  health                    - 查询服务健康状态")
	fmt.Println("  config                    - 显示配置概要")
	fmt.Println("  chat [session_id]         - 交互式对话（未传 session_id 时读取 CHAT_SESSION_ID，仍为空则使用默认会话）")
	fmt.Println("  send <message> [session_id] - 发送单条消息并打印回复")
	fmt.Println("  history [session_id]      - 输出会话历史与情感轨迹")
	fmt.Println("服务地址由 CHAT_API_URL 指定，默认 http://localhost:8080")
}

func runConfig() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("api.host=%s\n", cfg.API.Host)
	fmt.Printf("api.port=%d\n", cfg.API.Port)
	fmt.Printf("chat.history_limit=%d\n", cfg.Chat.HistoryLimit)
	fmt.Printf("chat.retrieval.mode=%s\n", cfg.Chat.Retrieval.Mode)
	fmt.Printf("sentiment.backend=%s\n", cfg.Sentiment.Backend)
	fmt.Printf("storage.vector.type=%s\n", cfg.Storage.Vector.Type)
}

func runHealth() {
	out, err := getHealth()
	if err != nil {
		fmt.Fprintf(os.Stderr, "健康检查失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(out))
}

// formatReply 终端展示：回复正文加情感标签
func formatReply(r *chatReply) string {
	return fmt.Sprintf("%s\n  (sentiment: %s, aggregate: %s)", r.Response, r.Sentiment, r.AggregateSentiment)
}

func runSend(sessionID, message string, stdout, stderr io.Writer) int {
	r, err := sendMessage(sessionID, message)
	if err != nil {
		fmt.Fprintf(stderr, "发送失败: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, formatReply(r))
	return 0
}

func runChat(sessionID string, stdin io.Reader, stdout, stderr io.Writer) int {
	reader := bufio.NewReader(stdin)
	for {
		fmt.Fprint(stdout, "> ")
		line, err := reader.ReadString('\n')
		msg := strings.TrimSpace(line)
		if msg == "exit" || msg == "quit" {
			return 0
		}
		if msg != "" {
			r, serr := sendMessage(sessionID, msg)
			if serr != nil {
				fmt.Fprintf(stderr, "发送失败: %v\n", serr)
			} else {
				fmt.Fprintln(stdout, formatReply(r))
			}
		}
		if err != nil {
			return 0
		}
	}
}

func runHistory(sessionID string, stdout, stderr io.Writer) int {
	h, err := getHistory(sessionID)
	if err != nil {
		fmt.Fprintf(stderr, "获取历史失败: %v\n", err)
		return 1
	}
	for _, m := range h.Messages {
		fmt.Fprintf(stdout, "[%s] %s\n", m.Role, m.Content)
	}
	fmt.Fprintf(stdout, "trajectory: %s\n", strings.Join(h.Trajectory, ","))
	fmt.Fprintf(stdout, "aggregate: %s\n", h.AggregateSentiment)
	return 0
}
