package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss 键不存在或已过期
var ErrMiss = errors.New("cache miss")

// Store 字节缓存接口，值的编解码由调用方负责
type Store interface {
	// Get 读取缓存，未命中返回 ErrMiss
	Get(ctx context.Context, key string) ([]byte, error)
	// Set 写入缓存，ttl<=0 表示不过期
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Close 关闭缓存连接
	Close() error
}
