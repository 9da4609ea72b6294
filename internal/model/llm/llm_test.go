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

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	goopenai "github.com/meguminnnnnnnnn/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-chat/pkg/retry"
)

func TestServiceError_Temporary(t *testing.T) {
	cases := []struct {
		status int
		err    error
		want   bool
	}{
		{0, errors.New("connection refused"), true},
		{0, context.DeadlineExceeded, true},
		{0, context.Canceled, false},
		{http.StatusTooManyRequests, errors.New("rate limited"), true},
		{http.StatusBadGateway, errors.New("bad gateway"), true},
		{http.StatusBadRequest, errors.New("bad request"), false},
		{http.StatusUnauthorized, errors.New("unauthorized"), false},
	}
	for _, tc := range cases {
		se := &ServiceError{Provider: "openai", StatusCode: tc.status, Err: tc.err}
		assert.Equal(t, tc.want, se.Temporary(), "status=%d err=%v", tc.status, tc.err)
		assert.Equal(t, tc.want, IsTransient(se))
	}
	assert.False(t, IsTransient(errors.New("plain")))
}

func TestOpenAIClient_ChatWithContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, 300, req.MaxTokens)
		assert.Len(t, req.Messages, 2)
		assert.Equal(t, RoleSystem, req.Messages[0].Role)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi there"}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClientWithBaseURL("", "sk-test", srv.URL)
	require.NoError(t, err)
	out, err := c.ChatWithContext(context.Background(), []Message{
		{Role: RoleSystem, Content: "be kind"},
		{Role: RoleUser, Content: "[neutral] hello"},
	}, GenerateOptions{MaxTokens: 300, Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
	assert.Equal(t, "openai", c.Provider())
	assert.Equal(t, DefaultOpenAIModel, c.Model())
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	c, _ := NewOpenAIClientWithBaseURL("gpt-4o-mini", "k", srv.URL)
	_, err := c.ChatWithContext(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, GenerateOptions{})
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Contains(t, se.Error(), "slow down")
	assert.True(t, se.Temporary())
}

type fakeClient struct {
	calls int32
	errs  []error
	out   string
}

func (f *fakeClient) ChatWithContext(ctx context.Context, _ []Message, _ GenerateOptions) (string, error) {
	i := int(atomic.AddInt32(&f.calls, 1)) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	return f.out, nil
}
func (f *fakeClient) Model() string    { return "fake-model" }
func (f *fakeClient) Provider() string { return "fake" }

func fastPolicy() retry.Policy {
	return retry.Policy{MaxRetries: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func TestRetryClient(t *testing.T) {
	transient := &ServiceError{Provider: "fake", StatusCode: 503, Err: errors.New("unavailable")}
	permanent := &ServiceError{Provider: "fake", StatusCode: 400, Err: errors.New("bad")}

	f := &fakeClient{errs: []error{transient}, out: "ok"}
	out, err := NewRetryClient(f, fastPolicy(), nil).ChatWithContext(context.Background(), nil, GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 2, f.calls)

	f = &fakeClient{errs: []error{transient, transient, transient}}
	_, err = NewRetryClient(f, fastPolicy(), nil).ChatWithContext(context.Background(), nil, GenerateOptions{})
	assert.ErrorAs(t, err, new(*ServiceError))
	assert.EqualValues(t, 2, f.calls)

	f = &fakeClient{errs: []error{permanent}}
	_, err = NewRetryClient(f, fastPolicy(), nil).ChatWithContext(context.Background(), nil, GenerateOptions{})
	assert.Error(t, err)
	assert.EqualValues(t, 1, f.calls)
}

func TestRateLimitedClient_ReleasesSlot(t *testing.T) {
	rl := NewLLMRateLimiter(map[string]LLMLimitConfig{"fake": {MaxConcurrent: 1, TokensPerMinute: 600000}}, nil)
	f := &fakeClient{out: "ok"}
	c := NewRateLimitedClient(f, rl)
	for i := 0; i < 3; i++ {
		out, err := c.ChatWithContext(context.Background(), []Message{{Role: RoleUser, Content: "hello"}}, GenerateOptions{MaxTokens: 50})
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	}
	assert.Equal(t, 0, rl.InFlight("fake"))
}

func TestLLMRateLimiter_ContextCancelled(t *testing.T) {
	rl := NewLLMRateLimiter(map[string]LLMLimitConfig{"p": {MaxConcurrent: 1}}, nil)
	require.NoError(t, rl.Wait(context.Background(), "p", 1))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Wait(ctx, "p", 1))
	rl.Release("p")
	assert.Equal(t, 0, rl.InFlight("p"))
}

type fakeChatModel struct {
	got []*schema.Message
	err error
}

func (m *fakeChatModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.got = in
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage("from eino", nil), nil
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestEinoClient(t *testing.T) {
	cm := &fakeChatModel{}
	c := NewEinoClientWithModel("openai", "gpt-4o-mini", cm)
	out, err := c.ChatWithContext(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hi"},
	}, GenerateOptions{MaxTokens: 10, Temperature: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "from eino", out)
	require.Len(t, cm.got, 2)
	assert.Equal(t, schema.System, cm.got[0].Role)
	assert.Equal(t, schema.User, cm.got[1].Role)

	cm.err = errors.New("boom")
	_, err = c.ChatWithContext(context.Background(), nil, GenerateOptions{})
	assert.ErrorAs(t, err, new(*ServiceError))
}

func TestEinoClient_UpstreamStatus(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    int
		transient bool
	}{
		{"api key rejected", fmt.Errorf("failed to create chat completion: %w", &goopenai.APIError{
			HTTPStatusCode: 401, HTTPStatus: "401 Unauthorized", Message: "Incorrect API key provided",
		}), 401, false},
		{"bad request", fmt.Errorf("failed to create chat completion: %w", &goopenai.RequestError{
			HTTPStatusCode: 400, HTTPStatus: "400 Bad Request", Err: errors.New("invalid")}), 400, false},
		{"rate limited", fmt.Errorf("wrap: %w", &goopenai.APIError{HTTPStatusCode: 429, Message: "slow down"}), 429, true},
		{"text only", errors.New("error, status code: 403, status: 403 Forbidden, message: nope"), 403, false},
		{"upstream down", errors.New("error, status code: 503, status: 503 Service Unavailable"), 503, true},
		{"network", errors.New("dial tcp: connection refused"), 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewEinoClientWithModel("openai", "gpt-4o-mini", &fakeChatModel{err: tc.err})
			_, err := c.ChatWithContext(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, GenerateOptions{})
			var se *ServiceError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.status, se.StatusCode)
			assert.Equal(t, tc.transient, IsTransient(err))
		})
	}
}

func TestEinoClient_NoRetryOnAuthError(t *testing.T) {
	cm := &countingChatModel{fakeChatModel: fakeChatModel{err: fmt.Errorf("failed: %w", &goopenai.APIError{HTTPStatusCode: 401, Message: "Incorrect API key provided"})}}
	c := NewRetryClient(NewEinoClientWithModel("openai", "m", cm), fastPolicy(), nil)
	_, err := c.ChatWithContext(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, GenerateOptions{})
	require.Error(t, err)
	assert.Equal(t, int32(1), cm.calls.Load())
}

type countingChatModel struct {
	fakeChatModel
	calls atomic.Int32
}

func (m *countingChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.calls.Add(1)
	return m.fakeChatModel.Generate(ctx, in, opts...)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(context.Background(), "openai", "resty", "gpt-4o-mini", "k", "http://localhost")
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Provider())

	_, err = NewClient(context.Background(), "claude", "", "m", "k", "")
	assert.Error(t, err)
}
