package nutrition

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"recipe-recommender/internal/pkg/common"
)

// RemoteCache 第二層快取（Redis）
type RemoteCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}) error
}

// lookupEntry 同時記錄「查得到」與「確定查不到」
type lookupEntry struct {
	Found  bool               `json:"found"`
	Macros common.MacroVector `json:"macros"`
}

func (e lookupEntry) result() *common.MacroVector {
	if !e.Found {
		return nil
	}
	m := e.Macros
	return &m
}

// CachedLookup 以食材名稱為鍵的兩層快取查詢
type CachedLookup struct {
	inner  Lookup
	local  *ristretto.Cache
	remote RemoteCache
	group  singleflight.Group
}

// NewCachedLookup 創建快取查詢；remote 可為 nil
func NewCachedLookup(inner Lookup, size int64, remote RemoteCache) (*CachedLookup, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid lookup cache size: %d", size)
	}

	local, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup cache: %w", err)
	}

	return &CachedLookup{
		inner:  inner,
		local:  local,
		remote: remote,
	}, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup 實作 Lookup；錯誤不會被快取
func (c *CachedLookup) Lookup(ctx context.Context, name string) (*common.MacroVector, error) {
	key := normalizeName(name)
	if key == "" {
		return nil, nil
	}

	if v, ok := c.local.Get(key); ok {
		if entry, ok := v.(lookupEntry); ok {
			return entry.result(), nil
		}
		c.local.Del(key)
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if entry, ok := c.fromRemote(ctx, key); ok {
			c.local.Set(key, entry, 1)
			return entry, nil
		}

		per100, err := c.inner.Lookup(ctx, key)
		if err != nil {
			return nil, err
		}

		entry := lookupEntry{Found: per100 != nil}
		if per100 != nil {
			entry.Macros = per100.Clamp()
		}
		c.local.Set(key, entry, 1)
		c.toRemote(ctx, key, entry)
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(lookupEntry).result(), nil
}

func (c *CachedLookup) fromRemote(ctx context.Context, key string) (lookupEntry, bool) {
	var entry lookupEntry
	if c.remote == nil {
		return entry, false
	}
	found, err := c.remote.GetJSON(ctx, remoteKey(key), &entry)
	if err != nil {
		common.LogWarn("Remote nutrition cache read failed", zap.String("ingredient", key), zap.Error(err))
		return entry, false
	}
	return entry, found
}

func (c *CachedLookup) toRemote(ctx context.Context, key string, entry lookupEntry) {
	if c.remote == nil {
		return
	}
	if err := c.remote.SetJSON(ctx, remoteKey(key), entry); err != nil {
		common.LogWarn("Remote nutrition cache write failed", zap.String("ingredient", key), zap.Error(err))
	}
}

func remoteKey(key string) string {
	return "nutrition:" + key
}

// Wait 等待寫入緩衝套用完畢
func (c *CachedLookup) Wait() {
	c.local.Wait()
}

// Close 釋放本地快取
func (c *CachedLookup) Close() {
	c.local.Close()
}
