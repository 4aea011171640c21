package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// NewCache 创建缓存实例
func NewCache(config Config) (Cache, error) {
	switch strings.ToLower(config.Type) {
	case "lru", "local", "":
		return NewLocalCache(config), nil
	case "gocache":
		return NewGoCache(config), nil
	case "none":
		return noopCache{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
}

// noopCache 关闭缓存时使用, 所有读取都未命中
type noopCache struct{}

func (noopCache) Get(context.Context, string) (interface{}, bool) { return nil, false }

func (noopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (noopCache) Delete(context.Context, string) error { return nil }

func (noopCache) DeletePrefix(context.Context, string) error { return nil }

func (noopCache) Clear(context.Context) error { return nil }

func (noopCache) Len() int { return 0 }

func (noopCache) Close() error { return nil }
