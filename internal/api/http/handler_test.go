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
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-chat/internal/api/http/middleware"
	"support-chat/internal/chat"
	"support-chat/internal/model/llm"
	"support-chat/internal/runtime/session"
	"support-chat/internal/sentiment"
	"support-chat/pkg/config"
)

type fakeTurns struct {
	res  *chat.TurnResult
	err  error
	reqs []chat.TurnRequest
}

func (f *fakeTurns) Turn(_ context.Context, req chat.TurnRequest) (*chat.TurnResult, error) {
	f.reqs = append(f.reqs, req)
	return f.res, f.err
}

func newServer(t *testing.T, turns TurnRunner, history ConversationReader, apiCfg config.APIConfig) *server.Hertz {
	t.Helper()
	h := server.Default(server.WithHostPorts(":0"))
	router := NewRouter(NewHandler(turns, history, nil), middleware.NewMiddleware(apiCfg, nil))
	router.Register(h)
	return h
}

func noBody() *ut.Body {
	return &ut.Body{Body: bytes.NewReader(nil), Len: 0}
}

func jsonBody(s string) *ut.Body {
	return &ut.Body{Body: bytes.NewBufferString(s), Len: len(s)}
}

func decode(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	h := newServer(t, nil, nil, config.APIConfig{})
	w := ut.PerformRequest(h.Engine, "GET", "/api/health", noBody())
	resp := w.Result()
	assert.Equal(t, 200, resp.StatusCode())
	assert.Equal(t, "ok", decode(t, resp.Body())["status"])
}

func TestIndex(t *testing.T) {
	h := newServer(t, nil, nil, config.APIConfig{})
	w := ut.PerformRequest(h.Engine, "GET", "/", noBody())
	resp := w.Result()
	assert.Equal(t, 200, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "Support Chat")
	assert.Contains(t, string(resp.Header.ContentType()), "text/html")
}

func TestChat_OK(t *testing.T) {
	turns := &fakeTurns{res: &chat.TurnResult{
		Response:           "I hear you. Exams are a lot. 💙",
		Sentiment:          sentiment.Negative,
		AggregateSentiment: sentiment.Negative,
		SessionID:          "default",
	}}
	h := newServer(t, turns, nil, config.APIConfig{})

	for _, path := range []string{"/chat", "/api/chat"} {
		w := ut.PerformRequest(h.Engine, "POST", path, jsonBody(`{"message":"I feel really anxious about my exam"}`),
			ut.Header{Key: "Content-Type", Value: "application/json"})
		resp := w.Result()
		require.Equal(t, 200, resp.StatusCode(), path)
		body := decode(t, resp.Body())
		assert.Equal(t, "I hear you. Exams are a lot. 💙", body["response"])
		assert.Equal(t, "negative", body["sentiment"])
		assert.Equal(t, "negative", body["aggregate_sentiment"])
		assert.Equal(t, "default", body["session_id"])
	}
	require.Len(t, turns.reqs, 2)
	assert.Equal(t, "I feel really anxious about my exam", turns.reqs[0].Message)
}

func TestChat_BadRequest(t *testing.T) {
	turns := &fakeTurns{err: chat.ErrEmptyMessage}
	h := newServer(t, turns, nil, config.APIConfig{})

	for _, body := range []string{``, `not json`, `{}`, `{"message":"   "}`} {
		w := ut.PerformRequest(h.Engine, "POST", "/chat", jsonBody(body),
			ut.Header{Key: "Content-Type", Value: "application/json"})
		resp := w.Result()
		assert.Equal(t, 400, resp.StatusCode(), body)
		assert.Equal(t, MsgNoMessage, decode(t, resp.Body())["error"], body)
	}
}

func TestChat_BackendUnavailable(t *testing.T) {
	cause := &llm.ServiceError{Provider: "openai", StatusCode: 502, Err: errors.New("upstream secret detail")}
	turns := &fakeTurns{err: errors.Join(chat.ErrBackendUnavailable, cause)}
	h := newServer(t, turns, nil, config.APIConfig{})

	w := ut.PerformRequest(h.Engine, "POST", "/chat", jsonBody(`{"message":"hi"}`),
		ut.Header{Key: "Content-Type", Value: "application/json"})
	resp := w.Result()
	assert.Equal(t, 503, resp.StatusCode())
	assert.Equal(t, MsgUnavailable, decode(t, resp.Body())["error"])
	assert.NotContains(t, string(resp.Body()), "secret")
}

func TestChat_InternalError(t *testing.T) {
	h := newServer(t, &fakeTurns{err: errors.New("boom")}, nil, config.APIConfig{})
	w := ut.PerformRequest(h.Engine, "POST", "/chat", jsonBody(`{"message":"hi"}`))
	assert.Equal(t, 500, w.Result().StatusCode())
}

func TestHistory(t *testing.T) {
	mgr := session.NewManager(session.NewMemoryStore(), session.ManagerConfig{
		SystemPrompt: "sys",
		HistoryLimit: 10,
		NewTracker: func() (*sentiment.Tracker, error) {
			return sentiment.NewTracker(sentiment.TrackerConfig{Window: 5, PositiveThreshold: 0.3, NegativeThreshold: -0.3})
		},
	})
	h := newServer(t, nil, mgr, config.APIConfig{})

	w := ut.PerformRequest(h.Engine, "GET", "/api/history", noBody())
	assert.Equal(t, 404, w.Result().StatusCode())

	conv, err := mgr.GetOrCreate(context.Background(), "")
	require.NoError(t, err)
	conv.RecordUser("[positive] hello", sentiment.Positive)
	conv.Append(llm.RoleAssistant, "hi there")

	w = ut.PerformRequest(h.Engine, "GET", "/api/history?session_id=default", noBody())
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())
	var st session.State
	require.NoError(t, json.Unmarshal(resp.Body(), &st))
	assert.Equal(t, "default", st.ID)
	require.Len(t, st.Messages, 3)
	assert.Equal(t, llm.RoleSystem, st.Messages[0].Role)
	assert.Equal(t, []sentiment.Label{sentiment.Positive}, st.Trajectory)
	assert.Equal(t, sentiment.Positive, st.Aggregate)
}

func TestMetrics(t *testing.T) {
	h := newServer(t, nil, nil, config.APIConfig{})
	w := ut.PerformRequest(h.Engine, "GET", "/metrics", noBody())
	resp := w.Result()
	assert.Equal(t, 200, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), "support_chat_classifier_failures_total")
}

func TestCORS(t *testing.T) {
	h := newServer(t, nil, nil, config.APIConfig{CORS: config.CORSConfig{Enable: true}})
	w := ut.PerformRequest(h.Engine, "GET", "/api/health", noBody(), ut.Header{Key: "Origin", Value: "http://example.com"})
	resp := w.Result()
	assert.Equal(t, "*", string(resp.Header.Peek("Access-Control-Allow-Origin")))

	h = newServer(t, nil, nil, config.APIConfig{CORS: config.CORSConfig{Enable: true, AllowOrigins: []string{"http://ok.test"}}})
	w = ut.PerformRequest(h.Engine, "GET", "/api/health", noBody(), ut.Header{Key: "Origin", Value: "http://ok.test"})
	assert.Equal(t, "http://ok.test", string(w.Result().Header.Peek("Access-Control-Allow-Origin")))
	w = ut.PerformRequest(h.Engine, "GET", "/api/health", noBody(), ut.Header{Key: "Origin", Value: "http://evil.test"})
	assert.Empty(t, string(w.Result().Header.Peek("Access-Control-Allow-Origin")))
}

func TestRateLimit(t *testing.T) {
	h := newServer(t, nil, nil, config.APIConfig{Middleware: config.MiddlewareConfig{RateLimit: true, RateLimitRPS: 1}})
	first := ut.PerformRequest(h.Engine, "GET", "/api/health", noBody()).Result().StatusCode()
	second := ut.PerformRequest(h.Engine, "GET", "/api/health", noBody()).Result().StatusCode()
	assert.Equal(t, 200, first)
	assert.Equal(t, 429, second)
}
