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

// Package retry 外部调用的窄重试策略：仅瞬时错误、指数退避、次数有限
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy 重试策略
type Policy struct {
	MaxRetries      int // 不含首次
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy 一次重试，500ms 起步
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 1, InitialInterval: 500 * time.Millisecond, MaxInterval: 2 * time.Second}
}

// Do 执行 op；isTransient 返回 false 的错误立即返回，不再重试。
// onRetry 可为 nil，每次重试前调用。
func Do(ctx context.Context, p Policy, isTransient func(error) bool, onRetry func(error, time.Duration), op func() error) error {
	if p.MaxRetries <= 0 {
		return op()
	}
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = 0

	var lastErr error
	wrapped := func() error {
		err := op()
		lastErr = err
		if err != nil && isTransient != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	var notify backoff.Notify
	if onRetry != nil {
		notify = backoff.Notify(onRetry)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxRetries)), ctx)
	err := backoff.RetryNotify(wrapped, b, notify)
	// 超时或取消时 backoff 只返回 ctx.Err()，补上最后一次失败原因
	if err != nil && lastErr != nil && err != lastErr {
		if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
			return fmt.Errorf("%w (last: %v)", err, lastErr)
		}
	}
	return err
}
