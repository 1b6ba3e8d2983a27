// Package ingest 將外部食譜匯入本地資料庫的背景佇列
package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"recipe-recommender/internal/core/recipe"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
)

// ErrClosed 佇列已關閉
var ErrClosed = errors.New("ingest queue is closed")

const idlePollInterval = 20 * time.Millisecond

// Status 隊列狀態
type Status struct {
	QueueLength  int   `json:"queue_length"`
	MaxQueueSize int   `json:"max_queue_size"`
	Processed    int64 `json:"processed_count"`
	Failed       int64 `json:"failed_count"`
	Workers      int   `json:"workers"`
}

// Manager 隊列管理器：N 個 worker 取出食譜 id，抓取完整資料後寫入資料庫
type Manager struct {
	source     recipe.DetailSource
	store      recipe.Store
	queue      chan string
	done       chan struct{}
	workers    int
	maxSize    int
	jobTimeout time.Duration

	processed atomic.Int64
	failed    atomic.Int64
	pending   atomic.Int64

	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewManager 創建新的隊列管理器
func NewManager(cfg config.IngestConfig, source recipe.DetailSource, store recipe.Store, jobTimeout time.Duration) *Manager {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	maxSize := cfg.MaxSize
	if maxSize < 1 {
		maxSize = 1
	}
	return &Manager{
		source:     source,
		store:      store,
		queue:      make(chan string, maxSize),
		done:       make(chan struct{}),
		workers:    workers,
		maxSize:    maxSize,
		jobTimeout: jobTimeout,
	}
}

// Start 啟動 worker，重複呼叫無效
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		for i := 0; i < m.workers; i++ {
			m.wg.Add(1)
			go m.worker(ctx)
		}
		common.LogInfo("Ingest workers started", zap.Int("workers", m.workers))
	})
}

// Enqueue 將食譜 id 加入隊列；隊列滿時等待直到有空位、ctx 結束或佇列關閉
func (m *Manager) Enqueue(ctx context.Context, id string) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}

	m.pending.Add(1)
	select {
	case m.queue <- id:
		common.LogDebug("Request enqueued",
			zap.String("id", id),
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.maxSize),
		)
		return nil
	case <-ctx.Done():
		m.pending.Add(-1)
		return ctx.Err()
	case <-m.done:
		m.pending.Add(-1)
		return ErrClosed
	}
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case id := <-m.queue:
			m.process(ctx, id)
			m.pending.Add(-1)
		}
	}
}

func (m *Manager) process(ctx context.Context, id string) {
	if m.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.jobTimeout)
		defer cancel()
	}

	rec, err := m.source.GetFull(ctx, id)
	if err != nil {
		m.failed.Add(1)
		common.LogWarn("匯入食譜失敗", zap.String("id", id), zap.Error(err))
		return
	}
	if rec == nil {
		m.failed.Add(1)
		common.LogWarn("匯入食譜失敗：來源查無資料", zap.String("id", id))
		return
	}

	if err := m.store.Put(ctx, *rec); err != nil {
		m.failed.Add(1)
		common.LogWarn("寫入食譜失敗", zap.String("id", id), zap.Error(err))
		return
	}
	m.processed.Add(1)
}

// WaitIdle 等待所有已加入的工作處理完畢
func (m *Manager) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()
	for m.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrClosed
		case <-ticker.C:
		}
	}
	return nil
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:  len(m.queue),
		MaxQueueSize: m.maxSize,
		Processed:    m.processed.Load(),
		Failed:       m.failed.Load(),
		Workers:      m.workers,
	}
}

// Close 關閉隊列管理器並等待 worker 結束（進行中的工作會做完）
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}
