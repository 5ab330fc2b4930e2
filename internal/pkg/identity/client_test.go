package identity

import (
	"Agora/internal/api/config"
	"Agora/internal/pkg/redis"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_GetUser(t *testing.T) {
	mr := miniredis.RunT(t)
	redis.Rdb = goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redis.Rdb = nil })

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		switch r.URL.Path {
		case "/internal/users/7":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"code":200,"message":"ok","data":{"id":7,"nickname":"bob","avatar_url":"http://img/bob.png"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	r := NewResolver(config.IdentityConfig{BaseURL: srv.URL, Timeout: 1000, CacheTTL: 60})

	info, err := r.GetUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "bob", info.Nickname)
	assert.Equal(t, "http://img/bob.png", info.AvatarURL)

	// 第二次命中缓存
	info, err = r.GetUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "bob", info.Nickname)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	_, err = r.GetUser(context.Background(), 8)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
