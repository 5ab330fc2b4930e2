package service

import (
	"Agora/internal/api/config"
	"context"
	"database/sql/driver"
	log "log/slog"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
)

// RetryPolicy 存储调用的超时与重试策略
type RetryPolicy struct {
	Attempts   int
	Timeout    time.Duration // 单次调用超时
	Backoff    time.Duration
	MaxBackoff time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	Attempts:   3,
	Timeout:    3 * time.Second,
	Backoff:    100 * time.Millisecond,
	MaxBackoff: 2 * time.Second,
}

// NewRetryPolicy 从配置读取，未配置的项使用默认值
func NewRetryPolicy(cfg config.CommunityConfig) RetryPolicy {
	p := DefaultRetryPolicy
	if cfg.RetryAttempts > 0 {
		p.Attempts = cfg.RetryAttempts
	}
	if cfg.StoreTimeout > 0 {
		p.Timeout = time.Duration(cfg.StoreTimeout) * time.Millisecond
	}
	if cfg.RetryBackoff > 0 {
		p.Backoff = time.Duration(cfg.RetryBackoff) * time.Millisecond
	}
	return p
}

// Do 执行 fn，瞬时错误按退避重试，用尽后返回包装了 ErrTransientStore 的错误
// fn 必须是幂等的
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		// 调用方取消不算存储故障
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isTransientErr(err) {
			return err
		}

		lastErr = err
		log.WarnContext(ctx, "store call failed", "op", op, "attempt", i+1, "err", err)
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}
	return errors.Wrapf(ErrTransientStore, "%s: %v", op, lastErr)
}

// Once 非幂等写入只尝试一次，超时同样归类为 ErrTransientStore
func (p RetryPolicy) Once(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	p.Attempts = 1
	return p.Do(ctx, op, fn)
}

func isTransientErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// 1205 锁等待超时，1213 死锁
		return myErr.Number == 1205 || myErr.Number == 1213
	}
	if mongodrv.IsTimeout(err) || mongodrv.IsNetworkError(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
