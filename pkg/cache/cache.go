package cache

import (
	"context"
	"time"
)

// Cache 查询计划缓存接口
type Cache interface {
	// Get 获取缓存值
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set 设置缓存值, expiration <= 0 表示使用默认过期时间
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Delete 删除缓存
	Delete(ctx context.Context, key string) error

	// DeletePrefix 删除所有以 prefix 开头的键, 映射变更时用来失效某个字段的计划
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear 清空所有缓存
	Clear(ctx context.Context) error

	// Len 当前缓存项数量
	Len() int

	// Close 释放资源
	Close() error
}

// Config 缓存配置
type Config struct {
	// 缓存类型: "lru"(或 "local"), "gocache", "none"
	Type string `json:"type" yaml:"type" env:"MAPPER_PLAN_CACHE" default:"lru"`

	// 最大缓存项数, 仅 lru 使用
	MaxSize int `json:"max_size" yaml:"max_size" env:"MAPPER_PLAN_CACHE_SIZE" default:"1024"`

	// 默认过期时间
	DefaultExpiration time.Duration `json:"default_expiration" yaml:"default_expiration" env:"MAPPER_PLAN_CACHE_TTL" default:"10m"`

	// 清理间隔, 仅 gocache 使用
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" default:"20m"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Type:              "lru",
		MaxSize:           1024,
		DefaultExpiration: 10 * time.Minute,
		CleanupInterval:   20 * time.Minute,
	}
}
