package identity

import (
	"Agora/internal/api/config"
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/logger"
	"Agora/internal/pkg/redis"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

var ErrUserNotFound = errors.New("identity: user not found")

// UserInfo 身份服务返回的展示信息
type UserInfo struct {
	ID        uint64 `json:"id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
}

// Resolver 解析用户的昵称与头像，用于作者/发起者字段的冗余
type Resolver interface {
	GetUser(ctx context.Context, userID uint64) (*UserInfo, error)
}

type envelope struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    *UserInfo `json:"data"`
}

type restyResolver struct {
	client   *resty.Client
	cacheTTL time.Duration
}

// NewResolver 基于 HTTP 的身份服务客户端，结果缓存在 Redis
func NewResolver(cfg config.IdentityConfig) Resolver {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.Timeout)*time.Millisecond).
		SetTransport(logger.NewHTTPTransport()).
		SetRetryCount(2).
		SetRetryWaitTime(100*time.Millisecond).
		SetHeader("Accept", "application/json")

	return &restyResolver{
		client:   client,
		cacheTTL: time.Duration(cfg.CacheTTL) * time.Second,
	}
}

// GetUser 先查缓存，未命中再请求身份服务
func (s *restyResolver) GetUser(ctx context.Context, userID uint64) (*UserInfo, error) {
	key := consts.IdentityUserKey + strconv.FormatUint(userID, 10)
	if redis.Rdb != nil {
		if cached, err := redis.GetValue(ctx, key); err == nil && cached != "" {
			info := &UserInfo{}
			if err = json.Unmarshal([]byte(cached), info); err == nil {
				return info, nil
			}
		}
	}

	body := &envelope{}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Trace-ID", logger.TraceID(ctx)).
		SetPathParam("id", strconv.FormatUint(userID, 10)).
		SetResult(body).
		Get("/internal/users/{id}")
	if err != nil {
		return nil, fmt.Errorf("identity request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrUserNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("identity request failed: status %d", resp.StatusCode())
	}
	if body.Data == nil || body.Data.ID == 0 {
		return nil, ErrUserNotFound
	}

	if redis.Rdb != nil && s.cacheTTL > 0 {
		if data, err := json.Marshal(body.Data); err == nil {
			if err = redis.SetWithExpiration(ctx, key, data, s.cacheTTL); err != nil {
				log.WarnContext(ctx, "cache identity user failed", "user_id", userID, "err", err)
			}
		}
	}
	return body.Data, nil
}
