// Copyright 2026 fanjia1024
// Environment variable based secret store

package secrets

import (
	"context"
	"fmt"
	"os"
)

type envStore struct{}

// NewEnvStore 创建环境变量 secret store
func NewEnvStore() Store {
	return envStore{}
}

func (envStore) Get(_ context.Context, key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("environment variable not set: %s", key)
	}
	return value, nil
}
