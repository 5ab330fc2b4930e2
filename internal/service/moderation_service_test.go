package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/moderation"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeration_CacheFollowsKeywordChanges(t *testing.T) {
	env := newTestEnv(t)

	v, err := env.moderation.Check(env.ctx, "buy spam now")
	require.NoError(t, err)
	assert.Equal(t, moderation.ActionAllow, v.Action)
	assert.True(t, env.redis.Exists(consts.ModerationRulesKey+"0"))

	kw, err := env.moderation.CreateKeyword(env.ctx, &dto.KeywordReq{Keyword: "spam", Severity: 3})
	require.NoError(t, err)
	ver, err := env.redis.Get(consts.ModerationRulesVer)
	require.NoError(t, err)
	assert.Equal(t, "1", ver)

	v, err = env.moderation.Check(env.ctx, "buy spam now")
	require.NoError(t, err)
	assert.Equal(t, moderation.ActionBlock, v.Action)
	require.NotNil(t, v.Rule)
	assert.Equal(t, kw.ID, v.Rule.ID)

	require.NoError(t, env.moderation.SetKeywordActive(env.ctx, kw.ID, false))
	v, err = env.moderation.Check(env.ctx, "buy spam now")
	require.NoError(t, err)
	assert.Equal(t, moderation.ActionAllow, v.Action)

	assert.ErrorIs(t, env.moderation.SetKeywordActive(env.ctx, 999, true), ErrKeywordNotFound)

	list, err := env.moderation.ListKeywords(env.ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive)
}

func TestModeration_StaleRuleWritebackIgnored(t *testing.T) {
	env := newTestEnv(t)

	v, err := env.moderation.Check(env.ctx, "free casino chips")
	require.NoError(t, err)
	assert.Equal(t, moderation.ActionAllow, v.Action)

	_, err = env.moderation.CreateKeyword(env.ctx, &dto.KeywordReq{Keyword: "casino", Severity: 3})
	require.NoError(t, err)

	// 变更前读库的请求晚于失效才回写旧规则
	require.NoError(t, env.redis.Set(consts.ModerationRulesKey+"0", "[]"))

	v, err = env.moderation.Check(env.ctx, "free casino chips")
	require.NoError(t, err)
	assert.Equal(t, moderation.ActionBlock, v.Action)
}

func TestModeration_StrongestAcrossTexts(t *testing.T) {
	env := newTestEnv(t)
	for _, req := range []*dto.KeywordReq{
		{Keyword: "dang", Severity: 1, WholeWord: true},
		{Keyword: "Promo", Severity: 2, CaseSensitive: true},
	} {
		_, err := env.moderation.CreateKeyword(env.ctx, req)
		require.NoError(t, err)
	}

	v, err := env.moderation.Check(env.ctx, "dangerous")
	require.NoError(t, err)
	assert.Equal(t, moderation.ActionAllow, v.Action)

	v, err = env.moderation.Check(env.ctx, "oh dang", "promo code")
	require.NoError(t, err)
	assert.Equal(t, moderation.ActionFlag, v.Action)

	v, err = env.moderation.Check(env.ctx, "oh dang", "Promo code")
	require.NoError(t, err)
	assert.Equal(t, moderation.ActionShadow, v.Action)

	_, err = env.moderation.CreateKeyword(env.ctx, &dto.KeywordReq{Keyword: "x", Severity: 7})
	assert.ErrorIs(t, err, ErrValidation)
}
