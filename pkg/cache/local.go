package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// lruCache 基于 golang-lru 的有界本地缓存。
// expirable.LRU 只支持统一的过期时间, Set 传入的 expiration 被忽略。
type lruCache struct {
	lru *expirable.LRU[string, interface{}]
}

// NewLocalCache 创建本地 LRU 缓存
func NewLocalCache(config Config) Cache {
	size := config.MaxSize
	if size <= 0 {
		size = DefaultConfig().MaxSize
	}
	return &lruCache{lru: expirable.NewLRU[string, interface{}](size, nil, config.DefaultExpiration)}
}

func (lc *lruCache) Get(ctx context.Context, key string) (interface{}, bool) {
	return lc.lru.Get(key)
}

func (lc *lruCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	lc.lru.Add(key, value)
	return nil
}

func (lc *lruCache) Delete(ctx context.Context, key string) error {
	lc.lru.Remove(key)
	return nil
}

func (lc *lruCache) DeletePrefix(ctx context.Context, prefix string) error {
	for _, key := range lc.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			lc.lru.Remove(key)
		}
	}
	return nil
}

func (lc *lruCache) Clear(ctx context.Context) error {
	lc.lru.Purge()
	return nil
}

func (lc *lruCache) Len() int { return lc.lru.Len() }

func (lc *lruCache) Close() error {
	lc.lru.Purge()
	return nil
}
