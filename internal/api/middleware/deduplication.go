package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-recommender/internal/pkg/common"
)

// Deduplicator 短時間內相同的 POST 請求（路徑 + 來源 IP + body）只放行一次
type Deduplicator struct {
	mu     sync.Mutex
	seen   map[uint64]time.Time
	window time.Duration
	lastGC time.Time
	now    func() time.Time
}

// NewDeduplicator 創建去重器
func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{
		seen:   make(map[uint64]time.Time),
		window: window,
		lastGC: time.Now(),
		now:    time.Now,
	}
}

func (d *Deduplicator) firstSeen(fingerprint uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if now.Sub(d.lastGC) > 10*d.window {
		for k, t := range d.seen {
			if now.Sub(t) > d.window {
				delete(d.seen, k)
			}
		}
		d.lastGC = now
	}

	if last, ok := d.seen[fingerprint]; ok && now.Sub(last) <= d.window {
		return false
	}
	d.seen[fingerprint] = now
	return true
}

// Handler 請求去重中間件
func (d *Deduplicator) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if d.window <= 0 || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		h := xxhash.New()
		_, _ = h.WriteString(c.Request.Method + ":" + c.Request.URL.Path + ":" + c.ClientIP() + ":")
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogWarn("Failed to read request body", zap.Error(err))
				common.RespondError(c, common.ErrInvalidRequest)
				return
			}
			_, _ = h.Write(body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		if !d.firstSeen(h.Sum64()) {
			common.LogInfo("Duplicate request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			c.Header("Retry-After", strconv.Itoa(int(d.window.Seconds()+0.5)))
			common.RespondError(c, common.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
