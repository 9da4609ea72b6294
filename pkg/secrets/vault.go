// Copyright 2026 fanjia1024
// HashiCorp Vault secret store

package secrets

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string // Vault server address (e.g., http://vault:8200)
	Token      string
	PathPrefix string // Secret path prefix (e.g., "secret/data/support-chat")
}

type vaultStore struct {
	client     *vault.Client
	pathPrefix string
}

// NewVaultStore 创建 Vault secret store
func NewVaultStore(config VaultConfig) (Store, error) {
	if config.Address == "" {
		config.Address = "http://localhost:8200"
	}

	cfg := vault.DefaultConfig()
	cfg.Address = config.Address

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}

	prefix := "secret"
	if config.PathPrefix != "" {
		prefix = strings.TrimSuffix(config.PathPrefix, "/")
	}
	return &vaultStore{client: client, pathPrefix: prefix}, nil
}

func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	secret, err := v.client.Logical().ReadWithContext(ctx, v.pathPrefix+"/"+key)
	if err != nil {
		return "", fmt.Errorf("failed to read secret from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("secret not found: %s", key)
	}
	return extractValue(secret.Data, key)
}

// extractValue 兼容 KV v1（{"value": ...}）与 KV v2（{"data": {"value": ...}}）
func extractValue(data map[string]interface{}, key string) (string, error) {
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}
	if s, ok := data["value"].(string); ok {
		return s, nil
	}
	for _, val := range data {
		if s, ok := val.(string); ok {
			return s, nil
		}
	}
	return "", fmt.Errorf("secret value not found: %s", key)
}
