// Package resilience 为模型供应商调用提供熔断保护。
// 重试由 httpclient 负责，这里只负责在上游持续失败时快速失败。
package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kart-io/logger"
	"github.com/sony/gobreaker"

	"github.com/kart-io/clinrag/pkg/utils/httpclient"
)

// ErrCircuitOpen 熔断器打开错误。
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config 熔断器配置。
type Config struct {
	// MaxFailures 触发熔断的连续失败次数。
	MaxFailures int
	// OpenTimeout 熔断器打开后进入半开状态前的等待时间。
	OpenTimeout time.Duration
}

// DefaultConfig 返回默认熔断器配置。
func DefaultConfig() *Config {
	return &Config{
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
	}
}

// State 熔断器状态。
type State = gobreaker.State

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// Breaker 基于 gobreaker 的连续失败计数熔断器。半开状态只放行一个请求。
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker 创建熔断器。
func NewBreaker(name string, config *Config) *Breaker {
	if config == nil {
		config = DefaultConfig()
	}
	maxFailures := uint32(1)
	if config.MaxFailures > 1 {
		maxFailures = uint32(config.MaxFailures)
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return !IsUpstreamFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Warnw("circuit breaker opened", "name", name, "from", from.String())
				return
			}
			logger.Infow("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Do 通过熔断器执行 fn。熔断打开或半开名额已满时返回 ErrCircuitOpen。
func (b *Breaker) Do(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// State 返回当前状态。
func (b *Breaker) State() State {
	return b.cb.State()
}

// Name 返回熔断器名称。
func (b *Breaker) Name() string {
	return b.cb.Name()
}

// IsUpstreamFailure 判断错误是否表示上游不可用。
// 调用方取消与 4xx（429 除外）不计入失败。
func IsUpstreamFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError || se.StatusCode == http.StatusTooManyRequests
	}
	return true
}
