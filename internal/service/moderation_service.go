package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/moderation"
	"Agora/internal/pkg/redis"
	"Agora/internal/pkg/util"
	"Agora/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

type ModerationService interface {
	Check(ctx context.Context, texts ...string) (moderation.Verdict, error)
	CreateKeyword(ctx context.Context, req *dto.KeywordReq) (*dto.KeywordDTO, error)
	SetKeywordActive(ctx context.Context, id uint64, active bool) error
	ListKeywords(ctx context.Context, page, pageSize int) ([]*dto.KeywordDTO, error)
}

type moderationServiceImpl struct {
	keywordRepo repository.BannedKeywordRepo
	retry       RetryPolicy
	cacheTTL    time.Duration
}

func NewModerationService(keywordRepo repository.BannedKeywordRepo, retry RetryPolicy, cacheTTL time.Duration) ModerationService {
	return &moderationServiceImpl{
		keywordRepo: keywordRepo,
		retry:       retry,
		cacheTTL:    cacheTTL,
	}
}

// Check 对每段文本及其简体形式求值，返回最严格的结论
func (s *moderationServiceImpl) Check(ctx context.Context, texts ...string) (moderation.Verdict, error) {
	verdict := moderation.Verdict{Action: moderation.ActionAllow}
	rules, err := s.activeRules(ctx)
	if err != nil {
		return verdict, err
	}
	if len(rules) == 0 {
		return verdict, nil
	}

	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		verdict = moderation.Stronger(verdict, moderation.Evaluate(text, rules))
		if simplified := util.ToSimplified(text); simplified != text {
			verdict = moderation.Stronger(verdict, moderation.Evaluate(simplified, rules))
		}
	}
	return verdict, nil
}

// activeRules 优先读缓存，缓存异常时回源数据库
// 缓存键带版本号，违禁词变更后递增版本，旧版本的回写不会再被读到
func (s *moderationServiceImpl) activeRules(ctx context.Context) ([]moderation.Rule, error) {
	cacheKey := ""
	if redis.Rdb != nil {
		if version, err := redis.GetValue(ctx, consts.ModerationRulesVer); err != nil {
			log.WarnContext(ctx, "read rule cache version failed", "err", err)
		} else {
			if version == "" {
				version = "0"
			}
			cacheKey = consts.ModerationRulesKey + version
		}
	}
	if cacheKey != "" {
		cached, err := redis.GetValue(ctx, cacheKey)
		if err != nil {
			log.WarnContext(ctx, "read rule cache failed", "err", err)
		} else if cached != "" {
			var rules []moderation.Rule
			if err = json.Unmarshal([]byte(cached), &rules); err == nil {
				return rules, nil
			}
			log.WarnContext(ctx, "decode rule cache failed", "err", err)
		}
	}

	var keywords []*model.BannedKeyword
	err := s.retry.Do(ctx, "load banned keywords", func(ctx context.Context) error {
		var err error
		keywords, err = s.keywordRepo.GetActiveKeywords(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	rules := make([]moderation.Rule, 0, len(keywords))
	for _, kw := range keywords {
		severity := moderation.Action(kw.Severity)
		if !severity.Valid() || kw.Keyword == "" {
			continue
		}
		rules = append(rules, moderation.Rule{
			ID:            kw.ID,
			Keyword:       kw.Keyword,
			WholeWord:     kw.WholeWord,
			CaseSensitive: kw.CaseSensitive,
			Severity:      severity,
			CreatedAt:     kw.CreatedAt,
		})
	}

	if cacheKey != "" && s.cacheTTL > 0 {
		if data, err := json.Marshal(rules); err == nil {
			if err = redis.SetWithExpiration(ctx, cacheKey, data, s.cacheTTL); err != nil {
				log.WarnContext(ctx, "write rule cache failed", "err", err)
			}
		}
	}
	return rules, nil
}

// invalidate 在写库成功后调用
func (s *moderationServiceImpl) invalidate(ctx context.Context) {
	if redis.Rdb == nil {
		return
	}
	if _, err := redis.Incr(context.WithoutCancel(ctx), consts.ModerationRulesVer); err != nil {
		log.ErrorContext(ctx, "bump rule cache version failed", "err", err)
	}
}

// CreateKeyword 新增违禁词并使缓存失效
func (s *moderationServiceImpl) CreateKeyword(ctx context.Context, req *dto.KeywordReq) (*dto.KeywordDTO, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, invalidParam(err)
	}
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return nil, ErrEmptyContent
	}

	kw := &model.BannedKeyword{
		Keyword:       keyword,
		WholeWord:     req.WholeWord,
		CaseSensitive: req.CaseSensitive,
		Severity:      req.Severity,
	}
	err := s.retry.Once(ctx, "create keyword", func(ctx context.Context) error {
		return s.keywordRepo.CreateKeyword(ctx, kw)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	res := &dto.KeywordDTO{}
	if err = copier.Copy(res, kw); err != nil {
		return nil, err
	}
	return res, nil
}

// SetKeywordActive 启用/停用违禁词
func (s *moderationServiceImpl) SetKeywordActive(ctx context.Context, id uint64, active bool) error {
	err := s.retry.Do(ctx, "set keyword active", func(ctx context.Context) error {
		return s.keywordRepo.SetActive(ctx, id, active)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrKeywordNotFound
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ListKeywords 后台分页列表
func (s *moderationServiceImpl) ListKeywords(ctx context.Context, page, pageSize int) ([]*dto.KeywordDTO, error) {
	limit, offset := util.NormalizePage(page, pageSize)
	var keywords []*model.BannedKeyword
	err := s.retry.Do(ctx, "list keywords", func(ctx context.Context) error {
		var err error
		keywords, err = s.keywordRepo.ListKeywords(ctx, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	res := make([]*dto.KeywordDTO, 0, len(keywords))
	if err = copier.Copy(&res, &keywords); err != nil {
		return nil, err
	}
	return res, nil
}
