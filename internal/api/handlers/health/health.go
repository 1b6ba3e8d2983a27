package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-recommender/internal/core/cache"
	"recipe-recommender/internal/core/ingest"
	"recipe-recommender/internal/pkg/common"
)

const pingTimeout = 2 * time.Second

// Checks 健康檢查所需的依賴，皆可為 nil
type Checks struct {
	Version    string
	Queue      func() *ingest.Status
	CacheStats func() *cache.Stats
	Ready      func() bool
	Ping       func(ctx context.Context) error
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     *ingest.Status         `json:"queue,omitempty"`
	Cache     *cache.Stats           `json:"cache,omitempty"`
}

// Handler 健康檢查處理器
type Handler struct {
	checks Checks
}

// NewHandler 創建健康檢查處理器
func NewHandler(checks Checks) *Handler {
	return &Handler{checks: checks}
}

// HealthCheck 回傳執行狀態、匯入佇列與快取統計
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.checks.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if h.checks.Queue != nil {
		response.Queue = h.checks.Queue()
	}
	if h.checks.CacheStats != nil {
		response.Cache = h.checks.CacheStats()
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 匯入完成且資料庫可連線時才就緒
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.checks.Ready != nil && !h.checks.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "seeding",
		})
		return
	}

	if h.checks.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()
		if err := h.checks.Ping(ctx); err != nil {
			common.LogWarn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
