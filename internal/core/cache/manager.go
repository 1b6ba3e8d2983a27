package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
)

// Producer 快取未命中時負責產生值
type Producer[V any] func(ctx context.Context) (V, error)

// Manager 記憶體快取管理器，過期項目於下次存取時才移除
type Manager[V any] struct {
	enabled bool
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	mu         sync.Mutex
	entries    map[string]*cacheEntry[V]
	generation uint64
	stats      cacheStats

	group singleflight.Group

	// beforeFlight 在未命中解鎖後、進入 singleflight 前執行（測試用）
	beforeFlight func()
}

// cacheEntry 緩存條目
type cacheEntry[V any] struct {
	value       V
	expiresAt   time.Time
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// cacheStats 緩存統計
type cacheStats struct {
	hits          int64
	misses        int64
	evictions     int64
	invalidations int64
	staleDrops    int64
}

// Stats 對外的統計快照
type Stats struct {
	Size          int     `json:"size"`
	MaxSize       int     `json:"max_size"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Evictions     int64   `json:"evictions"`
	Invalidations int64   `json:"invalidations"`
	HitRatio      float64 `json:"hit_ratio"`
}

// Option 管理器選項
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock 替換時間來源（測試用）
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// NewManager 創建新的緩存管理器；停用時每次都直接呼叫 producer
func NewManager[V any](cfg config.CacheConfig, opts ...Option) *Manager[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager[V]{
		enabled: cfg.Enabled,
		maxSize: cfg.MaxSize,
		ttl:     cfg.TTL,
		now:     o.now,
		entries: make(map[string]*cacheEntry[V]),
	}

	if !cfg.Enabled {
		common.LogInfo("Candidate cache disabled")
		return m
	}

	common.LogInfo("快取管理員已初始化",
		zap.Int("max_size", cfg.MaxSize),
		zap.Duration("ttl", cfg.TTL),
	)
	return m
}

// GetOrCompute 命中且未過期時直接回傳；否則同一 key 只會執行一次 producer。
// producer 的錯誤不會被快取。ttl <= 0 時使用預設 TTL。
func (m *Manager[V]) GetOrCompute(ctx context.Context, key string, producer Producer[V], ttl time.Duration) (V, error) {
	if !m.enabled {
		return producer(ctx)
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	m.mu.Lock()
	if value, ok := m.lookup(key, true); ok {
		m.stats.hits++
		m.mu.Unlock()
		return value, nil
	}
	m.stats.misses++
	gen := m.generation
	m.mu.Unlock()

	if m.beforeFlight != nil {
		m.beforeFlight()
	}

	flightKey := strconv.FormatUint(gen, 10) + ":" + key
	result, err, shared := m.group.Do(flightKey, func() (interface{}, error) {
		// 前一次計算可能在解鎖後才寫入
		m.mu.Lock()
		if gen == m.generation {
			if value, ok := m.lookup(key, false); ok {
				m.mu.Unlock()
				return value, nil
			}
		}
		m.mu.Unlock()

		value, err := producer(ctx)
		if err != nil {
			return nil, err
		}
		m.store(key, value, ttl, gen)
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	if shared {
		common.LogDebug("快取計算已合併", zap.String("key", key))
	}
	return result.(V), nil
}

// lookup 取出未過期的項目，過期者順便移除；呼叫端需持有鎖
func (m *Manager[V]) lookup(key string, evict bool) (V, bool) {
	entry, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	now := m.now()
	if !now.Before(entry.expiresAt) {
		if evict {
			delete(m.entries, key)
			m.stats.evictions++
		}
		var zero V
		return zero, false
	}
	entry.lastAccess = now
	entry.accessCount++
	return entry.value, true
}

// store 只有在世代未變時才寫入，避免覆蓋 InvalidateAll 之後的狀態
func (m *Manager[V]) store(key string, value V, ttl time.Duration, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		m.stats.staleDrops++
		common.LogDebug("Discarding stale cache result", zap.String("key", key))
		return
	}

	if _, exists := m.entries[key]; !exists && m.maxSize > 0 && len(m.entries) >= m.maxSize {
		if evicted := m.cleanup(); evicted > 0 {
			common.LogDebug("快取清理執行", zap.Int("evicted", evicted))
		}
		if len(m.entries) >= m.maxSize {
			m.evictLRU()
		}
	}

	now := m.now()
	m.entries[key] = &cacheEntry[V]{
		value:      value,
		expiresAt:  now.Add(ttl),
		createdAt:  now,
		lastAccess: now,
	}
}

// InvalidateAll 清空所有項目並推進世代
func (m *Manager[V]) InvalidateAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	cleared := len(m.entries)
	m.entries = make(map[string]*cacheEntry[V])
	m.stats.invalidations++

	common.LogDebug("Candidate cache invalidated",
		zap.Int("cleared", cleared),
		zap.Uint64("generation", m.generation),
	)
}

// cleanup 清理過期的緩存，呼叫端需持有鎖
func (m *Manager[V]) cleanup() int {
	now := m.now()
	count := 0
	for key, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, key)
			count++
			m.stats.evictions++
		}
	}
	return count
}

// evictLRU 淘汰使用次數最少、最久未存取的項目，呼叫端需持有鎖
func (m *Manager[V]) evictLRU() {
	var oldestKey string
	var oldestAccess time.Time
	lowestAccessCount := 0

	for key, entry := range m.entries {
		if oldestKey == "" ||
			entry.accessCount < lowestAccessCount ||
			(entry.accessCount == lowestAccessCount && entry.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = entry.lastAccess
			lowestAccessCount = entry.accessCount
		}
	}

	if oldestKey != "" {
		delete(m.entries, oldestKey)
		m.stats.evictions++
		common.LogDebug("快取已淘汰(LRU)", zap.String("key", oldestKey))
	}
}

// Len 目前項目數（含尚未清除的過期項目）
func (m *Manager[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// GetStats 獲取緩存統計信息
func (m *Manager[V]) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Size:          len(m.entries),
		MaxSize:       m.maxSize,
		Hits:          m.stats.hits,
		Misses:        m.stats.misses,
		Evictions:     m.stats.evictions,
		Invalidations: m.stats.invalidations,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
	return s
}

// Close 關閉緩存管理器
func (m *Manager[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*cacheEntry[V])
	common.LogInfo("快取管理員已關閉",
		zap.Int64("hits", m.stats.hits),
		zap.Int64("misses", m.stats.misses),
		zap.Int64("evictions", m.stats.evictions),
	)
	return nil
}
