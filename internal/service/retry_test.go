package service

import (
	"Agora/internal/api/config"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestRetry_TransientThenSuccess(t *testing.T) {
	calls := 0
	err := testRetry.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &mysql.MySQLError{Number: 1213, Message: "deadlock"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_ExhaustedIsTransientStore(t *testing.T) {
	calls := 0
	err := testRetry.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return timeoutErr{}
	})
	assert.ErrorIs(t, err, ErrTransientStore)
	assert.Equal(t, testRetry.Attempts, calls)
	assert.Equal(t, ServiceUnavailable, CodeOf(err))
}

func TestRetry_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := testRetry.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetry_AttemptTimeout(t *testing.T) {
	p := RetryPolicy{Attempts: 2, Timeout: 10 * time.Millisecond, Backoff: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), "slow", func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, ErrTransientStore)
	assert.Equal(t, 2, calls)
}

func TestRetry_OnceAndCallerCancel(t *testing.T) {
	calls := 0
	err := testRetry.Once(context.Background(), "insert", func(ctx context.Context) error {
		calls++
		return context.DeadlineExceeded
	})
	assert.ErrorIs(t, err, ErrTransientStore)
	assert.Equal(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = testRetry.Do(ctx, "cancelled", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRetryPolicy(t *testing.T) {
	p := NewRetryPolicy(config.CommunityConfig{RetryAttempts: 5, StoreTimeout: 250})
	assert.Equal(t, 5, p.Attempts)
	assert.Equal(t, 250*time.Millisecond, p.Timeout)
	assert.Equal(t, DefaultRetryPolicy.Backoff, p.Backoff)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, BadRequest, CodeOf(ErrFollowSelf))
	assert.Equal(t, Forbidden, CodeOf(ErrUserBlocked))
	assert.Equal(t, UnprocessableEntity, CodeOf(ErrContentRejected))
	assert.Equal(t, NotFound, CodeOf(ErrPostNotFound))
	assert.Equal(t, Conflict, CodeOf(ErrReportTerminal))
	assert.Equal(t, Unauthorized, CodeOf(UnauthorizedError))
	assert.Equal(t, InternalServerError, CodeOf(errors.New("x")))
}
