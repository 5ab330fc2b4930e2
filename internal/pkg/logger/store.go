package logger

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/event"
)

const (
	redisSlowThreshold = 100 * time.Millisecond
	mongoSlowThreshold = 200 * time.Millisecond
	maxCommandLogLen   = 1000
)

// RedisLoggerHook 记录 Redis 错误与慢命令，订阅类长连接命令不计慢
type RedisLoggerHook struct{}

func NewRedisLogger() *RedisLoggerHook {
	return &RedisLoggerHook{}
}

func (s *RedisLoggerHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		if err != nil {
			log.ErrorContext(ctx, "Redis Dial Error",
				log.String("addr", addr),
				log.Duration("latency", time.Since(start)),
				log.Any("err", err),
			)
		}
		return conn, err
	}
}

func (s *RedisLoggerHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		elapsed := time.Since(start)

		name := cmd.Name()
		if err != nil {
			if ignorableRedisErr(name, err) {
				return err
			}
			log.ErrorContext(ctx, "Redis Error", append(redisFields(cmd, elapsed), log.Any("err", err))...)
			return err
		}
		if elapsed > redisSlowThreshold && !isBlockingCommand(name) {
			log.WarnContext(ctx, "Redis Slow", redisFields(cmd, elapsed)...)
		}
		return nil
	}
}

func (s *RedisLoggerHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		elapsed := time.Since(start)

		if err == nil && elapsed <= redisSlowThreshold {
			return nil
		}
		names := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			names = append(names, cmd.Name())
		}
		fields := []any{
			log.String("commands", strings.Join(names, ",")),
			log.Duration("latency", elapsed),
		}
		if err != nil {
			log.ErrorContext(ctx, "Redis Pipeline Error", append(fields, log.Any("err", err))...)
		} else {
			log.WarnContext(ctx, "Redis Pipeline Slow", fields...)
		}
		return err
	}
}

func redisFields(cmd redis.Cmder, elapsed time.Duration) []any {
	args := "[PROTECTED]"
	if name := cmd.Name(); name != "auth" && name != "hello" {
		args = truncate(fmt.Sprint(cmd.Args()))
	}
	return []any{
		log.String("command", cmd.Name()),
		log.String("args", args),
		log.Duration("latency", elapsed),
	}
}

// 未命中、RENAME 空键与 CLIENT SETINFO 兼容性报错属于正常分支
func ignorableRedisErr(name string, err error) bool {
	if errors.Is(err, redis.Nil) {
		return true
	}
	msg := err.Error()
	return msg == "ERR no such key" || (name == "client" && strings.Contains(msg, "setinfo"))
}

func isBlockingCommand(name string) bool {
	switch name {
	case "subscribe", "psubscribe", "unsubscribe", "punsubscribe":
		return true
	}
	return false
}

// NewMongoMonitor 私信与通知的 Mongo 命令监控，成功命令只在慢时记录
func NewMongoMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started: func(ctx context.Context, evt *event.CommandStartedEvent) {
			cmd := "[PROTECTED]"
			if evt.CommandName != "saslStart" && evt.CommandName != "saslContinue" {
				cmd = truncate(evt.Command.String())
			}
			log.DebugContext(ctx, "MongoDB Started",
				log.String("command", evt.CommandName),
				log.String("database", evt.DatabaseName),
				log.Int64("request_id", evt.RequestID),
				log.String("cmd_detail", cmd),
			)
		},
		Succeeded: func(ctx context.Context, evt *event.CommandSucceededEvent) {
			if evt.Duration <= mongoSlowThreshold {
				return
			}
			log.WarnContext(ctx, "MongoDB Slow",
				log.String("command", evt.CommandName),
				log.Duration("latency", evt.Duration),
				log.Int64("request_id", evt.RequestID),
			)
		},
		Failed: func(ctx context.Context, evt *event.CommandFailedEvent) {
			log.ErrorContext(ctx, "MongoDB Error",
				log.String("command", evt.CommandName),
				log.Duration("latency", evt.Duration),
				log.Int64("request_id", evt.RequestID),
				log.Any("err", evt.Failure),
			)
		},
	}
}

func truncate(s string) string {
	if len(s) > maxCommandLogLen {
		return s[:maxCommandLogLen] + "...[truncated]"
	}
	return s
}
