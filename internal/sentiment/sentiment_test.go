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

package sentiment

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-chat/internal/model/llm"
	"support-chat/internal/storage/cache"
	"support-chat/pkg/config"
	"support-chat/pkg/retry"
)

type stubBackend struct {
	pred   Prediction
	err    error
	panics bool
	calls  atomic.Int32
	last   string
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Classify(_ context.Context, text string) (Prediction, error) {
	s.calls.Add(1)
	s.last = text
	if s.panics {
		panic("model crashed")
	}
	return s.pred, s.err
}

func TestMapRaw(t *testing.T) {
	cases := map[string]Label{
		"POSITIVE":   Positive,
		"negative.":  Negative,
		" neutral\n": Neutral,
		"LABEL_0":    Negative,
		"LABEL_2":    Positive,
		"5 stars":    Positive,
		"1 star":     Negative,
		"sadness":    Negative,
		"joy":        Positive,
		"fear":       Negative,
		"surprise":   Neutral,
	}
	for raw, want := range cases {
		got, ok := MapRaw(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := MapRaw("banana")
	assert.False(t, ok)
}

func TestLabel_Value(t *testing.T) {
	assert.Equal(t, 1.0, Positive.Value())
	assert.Equal(t, 0.0, Neutral.Value())
	assert.Equal(t, -1.0, Negative.Value())
	assert.Equal(t, 0.0, Label("other").Value())
	assert.False(t, Label("other").Valid())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "焦虑", Truncate("焦虑不安", 2))
	assert.Equal(t, "ab", Truncate("ab", 10))
	assert.Equal(t, "ab", Truncate("ab", 0))
}

func TestAdapter_Classify(t *testing.T) {
	b := &stubBackend{pred: Prediction{Label: "negative", Score: 0.93}}
	a := NewAdapter(b, AdapterConfig{MaxInputChars: 10}, nil)

	res := a.Classify(context.Background(), "I feel really anxious about my exam")
	assert.Equal(t, Negative, res.Label)
	assert.Equal(t, "negative", res.Raw)
	assert.Equal(t, "I feel rea", b.last)
}

func TestAdapter_NeverFails(t *testing.T) {
	ctx := context.Background()

	t.Run("backend error", func(t *testing.T) {
		a := NewAdapter(&stubBackend{err: errors.New("boom")}, AdapterConfig{}, nil)
		assert.Equal(t, Neutral, a.Classify(ctx, "hello").Label)
	})
	t.Run("panic", func(t *testing.T) {
		a := NewAdapter(&stubBackend{panics: true}, AdapterConfig{}, nil)
		assert.Equal(t, Neutral, a.Classify(ctx, "hello").Label)
	})
	t.Run("nil backend", func(t *testing.T) {
		a := NewAdapter(nil, AdapterConfig{}, nil)
		assert.Equal(t, Neutral, a.Classify(ctx, "hello").Label)
	})
	t.Run("empty input", func(t *testing.T) {
		b := &stubBackend{pred: Prediction{Label: "negative", Score: 1}}
		a := NewAdapter(b, AdapterConfig{}, nil)
		assert.Equal(t, Neutral, a.Classify(ctx, "   ").Label)
		assert.Equal(t, int32(0), b.calls.Load())
	})
	t.Run("unmapped label", func(t *testing.T) {
		a := NewAdapter(&stubBackend{pred: Prediction{Label: "LABEL_9", Score: 1}}, AdapterConfig{}, nil)
		assert.Equal(t, Neutral, a.Classify(ctx, "hello").Label)
	})
	t.Run("low confidence", func(t *testing.T) {
		a := NewAdapter(&stubBackend{pred: Prediction{Label: "positive", Score: 0.4}}, AdapterConfig{MinConfidence: 0.5}, nil)
		assert.Equal(t, Neutral, a.Classify(ctx, "hello").Label)
	})
	t.Run("garbage", func(t *testing.T) {
		a := NewAdapter(&stubBackend{pred: Prediction{Label: "", Score: 1}}, AdapterConfig{}, nil)
		res := a.Classify(ctx, strings.Repeat("\x00\xff", 5000))
		assert.True(t, res.Label.Valid())
	})
}

func TestAdapter_RetriesTransient(t *testing.T) {
	b := &stubBackend{err: &llm.ServiceError{Provider: "openai", StatusCode: 503, Err: errors.New("unavailable")}}
	a := NewAdapter(b, AdapterConfig{Retry: retry.Policy{MaxRetries: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}}, nil)
	assert.Equal(t, Neutral, a.Classify(context.Background(), "hello").Label)
	assert.Equal(t, int32(2), b.calls.Load())

	b2 := &stubBackend{err: &llm.ServiceError{Provider: "openai", StatusCode: 400, Err: errors.New("bad request")}}
	a2 := NewAdapter(b2, AdapterConfig{Retry: retry.Policy{MaxRetries: 1, InitialInterval: time.Millisecond}}, nil)
	a2.Classify(context.Background(), "hello")
	assert.Equal(t, int32(1), b2.calls.Load())
}

func newTracker(t *testing.T, w int, weights []float64) *Tracker {
	t.Helper()
	tr, err := NewTracker(TrackerConfig{Window: w, Weights: weights, PositiveThreshold: 0.3, NegativeThreshold: -0.3})
	require.NoError(t, err)
	return tr
}

func TestTracker_Empty(t *testing.T) {
	tr := newTracker(t, 5, nil)
	l, score := tr.Aggregate()
	assert.Equal(t, Neutral, l)
	assert.Equal(t, 0.0, score)
}

func TestTracker_SingleNegative(t *testing.T) {
	tr := newTracker(t, 5, nil)
	tr.Record(Negative)
	l, score := tr.Aggregate()
	assert.Equal(t, Negative, l)
	assert.InDelta(t, -1.0, score, 1e-9)
}

func TestTracker_BoundedWindow(t *testing.T) {
	tr := newTracker(t, 3, nil)
	for _, l := range []Label{Negative, Negative, Positive, Positive, Neutral} {
		tr.Record(l)
		assert.LessOrEqual(t, tr.Len(), 3)
	}
	assert.Equal(t, []Label{Positive, Positive, Neutral}, tr.Labels())
}

func TestTracker_RecencyWeighted(t *testing.T) {
	// 线性权重 [1 2 3 4 5]/15；尾部子向量 [3 4 5]/12
	tr := newTracker(t, 5, nil)
	tr.Record(Negative)
	tr.Record(Negative)
	tr.Record(Positive)
	l, score := tr.Aggregate()
	assert.Equal(t, Neutral, l)
	assert.InDelta(t, -2.0/12.0, score, 1e-9)

	tr.Record(Positive)
	tr.Record(Positive)
	l, score = tr.Aggregate()
	assert.Equal(t, Positive, l)
	assert.InDelta(t, (-1.0-2.0+3.0+4.0+5.0)/15.0, score, 1e-9)
}

func TestTracker_Deterministic(t *testing.T) {
	seq := []Label{Positive, Negative, Neutral, Negative, Negative, Positive}
	run := func() (Label, float64) {
		tr := newTracker(t, 4, []float64{0.1, 0.2, 0.3, 0.4})
		for _, l := range seq {
			tr.Record(l)
		}
		return tr.Aggregate()
	}
	l1, s1 := run()
	l2, s2 := run()
	assert.Equal(t, l1, l2)
	assert.Equal(t, s1, s2)
}

func TestTracker_InvalidLabelRecordedNeutral(t *testing.T) {
	tr := newTracker(t, 2, nil)
	tr.Record(Label("joy"))
	assert.Equal(t, []Label{Neutral}, tr.Labels())
}

func TestNewTracker_Invalid(t *testing.T) {
	_, err := NewTracker(TrackerConfig{Window: 0, PositiveThreshold: 0.3, NegativeThreshold: -0.3})
	assert.Error(t, err)
	_, err = NewTracker(TrackerConfig{Window: 3, Weights: []float64{0.5, 0.5}, PositiveThreshold: 0.3, NegativeThreshold: -0.3})
	assert.Error(t, err)
	_, err = NewTracker(TrackerConfig{Window: 3, PositiveThreshold: -0.3, NegativeThreshold: 0.3})
	assert.Error(t, err)
}

func TestNewTracker_WeightShape(t *testing.T) {
	for _, w := range [][]float64{
		{0.5, 0.3, 0.2},
		{0, 0.5, 0.5},
		{-0.2, 0.6, 0.6},
	} {
		_, err := NewTracker(TrackerConfig{Window: 3, Weights: w, PositiveThreshold: 0.3, NegativeThreshold: -0.3})
		assert.Error(t, err, "%v", w)
	}

	raw := newTracker(t, 3, []float64{1, 2, 3})
	norm := newTracker(t, 3, []float64{1.0 / 6, 2.0 / 6, 3.0 / 6})
	for _, l := range []Label{Negative, Positive, Negative} {
		raw.Record(l)
		norm.Record(l)
	}
	l1, s1 := raw.Aggregate()
	l2, s2 := norm.Aggregate()
	assert.Equal(t, l2, l1)
	assert.InDelta(t, s2, s1, 1e-9)
}

func TestLinearWeights(t *testing.T) {
	w := LinearWeights(4)
	require.Len(t, w, 4)
	sum := 0.0
	for i, v := range w {
		sum += v
		if i > 0 {
			assert.GreaterOrEqual(t, v, w[i-1])
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

type fakeLLM struct {
	out  string
	err  error
	seen []llm.Message
	opts llm.GenerateOptions
}

func (f *fakeLLM) ChatWithContext(_ context.Context, msgs []llm.Message, opts llm.GenerateOptions) (string, error) {
	f.seen = msgs
	f.opts = opts
	return f.out, f.err
}
func (f *fakeLLM) Model() string    { return "fake" }
func (f *fakeLLM) Provider() string { return "fake" }

func TestLLMBackend_Classify(t *testing.T) {
	c := &fakeLLM{out: " Negative.\n"}
	b := NewLLMBackend(c, "gpt-4o-mini")
	p, err := b.Classify(context.Background(), "I failed my exam")
	require.NoError(t, err)
	assert.Equal(t, "Negative.", p.Label)
	assert.Equal(t, 0.0, c.opts.Temperature)
	require.Len(t, c.seen, 2)
	assert.Equal(t, llm.RoleSystem, c.seen[0].Role)
	assert.Equal(t, "I failed my exam", c.seen[1].Content)

	l, ok := MapRaw(p.Label)
	assert.True(t, ok)
	assert.Equal(t, Negative, l)

	_, err = NewLLMBackend(&fakeLLM{out: "  "}, "").Classify(context.Background(), "x")
	assert.Error(t, err)
}

func TestCachedBackend(t *testing.T) {
	inner := &stubBackend{pred: Prediction{Label: "positive", Score: 0.9}}
	store := cache.NewMemoryStore()
	b := NewCachedBackend(inner, store, time.Minute)
	ctx := context.Background()

	p1, err := b.Classify(ctx, "great news")
	require.NoError(t, err)
	p2, err := b.Classify(ctx, "great news")
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Equal(t, int32(1), inner.calls.Load())

	_, err = b.Classify(ctx, "other text")
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestNewBackendFromConfig(t *testing.T) {
	b, closer, err := NewBackendFromConfig(config.SentimentConfig{Backend: "llm"}, &fakeLLM{out: "positive"}, "", nil)
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.Equal(t, "llm", b.Name())

	b, _, err = NewBackendFromConfig(config.SentimentConfig{Backend: "llm", Cache: config.SentimentCacheConfig{Enable: true, TTL: "1m"}}, &fakeLLM{out: "positive"}, "", cache.NewMemoryStore())
	require.NoError(t, err)
	_, isCached := b.(*CachedBackend)
	assert.True(t, isCached)

	_, _, err = NewBackendFromConfig(config.SentimentConfig{Backend: "llm"}, nil, "", nil)
	assert.Error(t, err)
	_, _, err = NewBackendFromConfig(config.SentimentConfig{Backend: "hugot"}, nil, "", nil)
	assert.Error(t, err)
	_, _, err = NewBackendFromConfig(config.SentimentConfig{Backend: "vader"}, nil, "", nil)
	assert.Error(t, err)
}
