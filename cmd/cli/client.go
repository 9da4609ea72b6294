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
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// chatReply 与 POST /api/chat 的响应体一致
type chatReply struct {
	Response           string `json:"response"`
	Sentiment          string `json:"sentiment"`
	AggregateSentiment string `json:"aggregate_sentiment"`
	SessionID          string `json:"session_id"`
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type historyReply struct {
	SessionID          string           `json:"session_id"`
	Messages           []historyMessage `json:"messages"`
	Trajectory         []string         `json:"trajectory"`
	AggregateSentiment string           `json:"aggregate_sentiment"`
}

func apiBaseURL() string {
	if u := os.Getenv("CHAT_API_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func newClient() *resty.Client {
	return resty.New().
		SetBaseURL(apiBaseURL()).
		SetTimeout(60 * time.Second).
		SetHeader("Content-Type", "application/json")
}

func errorBody(resp *resty.Response) string {
	var out struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err == nil && out.Error != "" {
		return out.Error
	}
	return resp.String()
}

func sendMessage(sessionID, message string) (*chatReply, error) {
	body := map[string]string{"message": message}
	if sessionID != "" {
		body["session_id"] = sessionID
	}
	var out chatReply
	resp, err := newClient().R().
		SetBody(body).
		SetResult(&out).
		Post("/api/chat")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("POST /api/chat (%d): %s", resp.StatusCode(), errorBody(resp))
	}
	return &out, nil
}

func getHistory(sessionID string) (*historyReply, error) {
	var out historyReply
	req := newClient().R().SetResult(&out)
	if sessionID != "" {
		req.SetQueryParam("session_id", sessionID)
	}
	resp, err := req.Get("/api/history")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/history (%d): %s", resp.StatusCode(), errorBody(resp))
	}
	return &out, nil
}

func getHealth() (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := newClient().R().
		SetResult(&out).
		Get("/api/health")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/health: %s", resp.String())
	}
	return out, nil
}

func prettyJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
