package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

// Service Redis 遠端快取，值以 JSON 儲存
type Service struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewService 創建緩存服務；client 為 nil 時所有操作皆為 no-op
func NewService(client *redis.Client, ttl time.Duration, prefix string) *Service {
	return &Service{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}
}

// Enabled 是否有可用的連線
func (s *Service) Enabled() bool {
	return s != nil && s.client != nil
}

// GetJSON 獲取緩存；不存在時回傳 false
func (s *Service) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}

	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache: %w", err)
	}
	return true, nil
}

// SetJSON 設置緩存
func (s *Service) SetJSON(ctx context.Context, key string, value interface{}) error {
	if !s.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Delete 刪除緩存
func (s *Service) Delete(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

func (s *Service) key(key string) string {
	return s.prefix + key
}
