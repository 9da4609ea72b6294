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
	"errors"
	"fmt"
	"net/http"
)

// ServiceError 后端调用失败（传输、限流、模型错误）
type ServiceError struct {
	Provider   string
	StatusCode int // 0 表示未收到响应
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Temporary 429、5xx 与未收到响应（网络/超时）视为瞬时错误；调用方取消不算
func (e *ServiceError) Temporary() bool {
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// IsTransient err 链中存在可重试的 ServiceError
func IsTransient(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return false
}
