package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/metrics"
	"github.com/rushteam/prodrec/vector"
)

// Retrying 包装一个 Embedder：固定次数重试、请求限速、熔断。
//
// 返回的向量必须是 D 维、分量有限且非零；否则视为失败并重试。
// 重试耗尽后返回 EMBEDDING_SERVICE 错误，绝不返回零向量。
type Retrying struct {
	next     core.Embedder
	provider string
	attempts int
	backoff  time.Duration
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[[]float64]
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option 配置 Retrying。
type Option func(*Retrying)

// WithLogger 设置日志。
func WithLogger(l zerolog.Logger) Option { return func(r *Retrying) { r.logger = l } }

// WithMetrics 设置指标。
func WithMetrics(m *metrics.Metrics) Option { return func(r *Retrying) { r.metrics = m } }

// NewRetrying 创建 Retrying。cfg 中未设置的字段使用默认值。
func NewRetrying(next core.Embedder, cfg Config, opts ...Option) *Retrying {
	def := DefaultConfig()
	if cfg.Attempts <= 0 {
		cfg.Attempts = def.Attempts
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "custom"
	}

	r := &Retrying{
		next:     next,
		provider: provider,
		attempts: cfg.Attempts,
		backoff:  cfg.Backoff,
		sleep:    sleepCtx,
	}
	if cfg.RatePerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	threshold := cfg.FailureThreshold
	r.breaker = gobreaker.NewCircuitBreaker[[]float64](gobreaker.Settings{
		Name:    "embedding-" + provider,
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("embedding circuit breaker state changed")
		},
	})

	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrying) Dimension() int { return r.next.Dimension() }

// Embed 最多尝试 attempts 次。
func (r *Retrying) Embed(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, core.ErrEmbeddingService(attempt-1, err)
			}
		}

		start := time.Now()
		vec, err := r.breaker.Execute(func() ([]float64, error) {
			return r.call(ctx, text)
		})
		r.metrics.ObserveEmbedding(r.provider, err, time.Since(start))
		if err == nil {
			return vec, nil
		}
		lastErr = err

		r.logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", r.attempts).Msg("embedding request failed")
		if ctx.Err() != nil {
			return nil, core.ErrEmbeddingService(attempt, ctx.Err())
		}
		if attempt < r.attempts && r.backoff > 0 && !errors.Is(err, gobreaker.ErrOpenState) {
			if err := r.sleep(ctx, r.backoff); err != nil {
				return nil, core.ErrEmbeddingService(attempt, err)
			}
		}
	}
	return nil, core.ErrEmbeddingService(r.attempts, lastErr)
}

func (r *Retrying) call(ctx context.Context, text string) ([]float64, error) {
	vec, err := r.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := vector.Validate(vec, r.next.Dimension()); err != nil {
		return nil, err
	}
	if vector.Norm(vec) == 0 {
		return nil, core.ErrDegenerateVector()
	}
	return vec, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ core.Embedder = (*Retrying)(nil)
