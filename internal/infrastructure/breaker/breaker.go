// Package breaker 以 sony/gobreaker 保護外部服務呼叫
package breaker

import (
	"context"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"
)

// Breaker 斷路器
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// New 依設定建立斷路器：請求數達 MinRequests 且失敗率 >= FailureRatio 時開路
func New(name string, cfg config.BreakerConfig) *Breaker {
	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= cfg.FailureRatio
			if shouldTrip {
				common.LogWarn("[CIRCUIT BREAKER] Opening circuit",
					zap.String("name", name),
					zap.Uint32("failures", counts.TotalFailures),
					zap.Float64("failure_rate", failureRatio*100),
				)
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			common.LogInfo("[CIRCUIT BREAKER] State transition",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// 呼叫端自行取消不算上游失敗
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Breaker{cb: cb, name: name}
}

// Name 斷路器名稱
func (b *Breaker) Name() string {
	return b.name
}

// State 目前狀態（closed / half-open / open）
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Execute 在斷路器保護下執行
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil && IsRejected(err) {
		common.LogWarn("[CIRCUIT BREAKER] Request rejected", zap.String("name", b.name), zap.Error(err))
	}
	return result, err
}

// Do 帶型別的 Execute；b 為 nil 時直接呼叫 fn
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	if b == nil {
		return fn()
	}

	result, err := b.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		var zero T
		return zero, nil
	}
	return typed, nil
}

// IsRejected 是否因開路或半開限流而拒絕
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
