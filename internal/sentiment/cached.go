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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"support-chat/internal/storage/cache"
)

// CachedBackend 以文本哈希缓存分类结果；缓存读写失败不影响分类
type CachedBackend struct {
	inner Backend
	store cache.Store
	ttl   time.Duration
}

// NewCachedBackend 包装后端
func NewCachedBackend(inner Backend, store cache.Store, ttl time.Duration) *CachedBackend {
	return &CachedBackend{inner: inner, store: store, ttl: ttl}
}

// Name 后端名称
func (b *CachedBackend) Name() string { return b.inner.Name() }

// Classify 命中缓存直接返回，否则调用内层后端并回写
func (b *CachedBackend) Classify(ctx context.Context, text string) (Prediction, error) {
	key := cacheKey(b.inner.Name(), text)
	if raw, err := b.store.Get(ctx, key); err == nil {
		var p Prediction
		if json.Unmarshal(raw, &p) == nil {
			return p, nil
		}
	}
	p, err := b.inner.Classify(ctx, text)
	if err != nil {
		return Prediction{}, err
	}
	if raw, err := json.Marshal(p); err == nil {
		_ = b.store.Set(ctx, key, raw, b.ttl)
	}
	return p, nil
}

func cacheKey(backend, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "sentiment:" + backend + ":" + hex.EncodeToString(sum[:])
}
