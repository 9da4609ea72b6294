// Copyright 2026 fanjia1024
// API Key 等敏感配置的来源抽象

package secrets

import (
	"context"
	"fmt"
	"strings"
)

// Store 只读 secret 来源
type Store interface {
	// Get 获取 secret 值，不存在时返回错误
	Get(ctx context.Context, key string) (string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider string      // env | vault | memory
	Vault    VaultConfig // provider=vault 时使用
}

// NewStore 创建 Secret Store
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(nil), nil
	case "vault":
		return NewVaultStore(config.Vault)
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", config.Provider)
	}
}

// Resolve 解析配置值中的 secret 引用：
// "vault:<key>" 与 "env:<key>" 分别从对应 Store 读取，其余原样返回。
// vault 引用但未配置 vault store 时报错。
func Resolve(ctx context.Context, value string, vaultStore Store) (string, error) {
	switch {
	case strings.HasPrefix(value, "vault:"):
		if vaultStore == nil {
			return "", fmt.Errorf("secret %q references vault but no vault store is configured", value)
		}
		return vaultStore.Get(ctx, strings.TrimPrefix(value, "vault:"))
	case strings.HasPrefix(value, "env:"):
		return NewEnvStore().Get(ctx, strings.TrimPrefix(value, "env:"))
	default:
		return value, nil
	}
}
