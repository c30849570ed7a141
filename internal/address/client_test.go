package address

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/p/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/api/p/":
			_, _ = w.Write([]byte(`[{"code":1,"name":"Thành phố Hà Nội","division_type":"thành phố trung ương","districts":[]},{"code":79,"name":"Thành phố Hồ Chí Minh","districts":[]}]`))
		case "/api/p/1":
			assert.Equal(t, "2", r.URL.Query().Get("depth"))
			_, _ = w.Write([]byte(`{"code":1,"name":"Thành phố Hà Nội","districts":[{"code":1,"name":"Quận Ba Đình"},{"code":2,"name":"Quận Hoàn Kiếm"}]}`))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/api/d/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		_, _ = w.Write([]byte(`{"code":1,"name":"Quận Ba Đình","wards":[{"code":1,"name":"Phường Phúc Xá"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCache(rdb, "addr:"), mr
}

func TestProvincesAreCached(t *testing.T) {
	var hits int32
	srv := newUpstream(t, &hits)
	cache, mr := newRedisCache(t)

	c := New(srv.URL, cache, Options{CacheTTL: time.Hour})
	ctx := context.Background()

	first, err := c.Provinces(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 79, first[1].Code)

	second, err := c.Provinces(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	assert.True(t, mr.Exists("addr:provinces"))
	assert.Equal(t, time.Hour, mr.TTL("addr:provinces"))

	mr.FastForward(2 * time.Hour)
	_, err = c.Provinces(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestDistrictsAndWards(t *testing.T) {
	var hits int32
	srv := newUpstream(t, &hits)
	c := New(srv.URL, nil, Options{})
	ctx := context.Background()

	districts, err := c.Districts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, districts, 2)
	assert.Equal(t, "Quận Hoàn Kiếm", districts[1].Name)

	wards, err := c.Wards(ctx, 1)
	require.NoError(t, err)
	require.Len(t, wards, 1)
	assert.Equal(t, "Phường Phúc Xá", wards[0].Name)
}

func TestUnknownProvince(t *testing.T) {
	var hits int32
	srv := newUpstream(t, &hits)
	c := New(srv.URL, nil, Options{})

	_, err := c.Districts(context.Background(), 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCacheOutageFallsThrough(t *testing.T) {
	var hits int32
	srv := newUpstream(t, &hits)
	cache, mr := newRedisCache(t)
	mr.Close()

	c := New(srv.URL, cache, Options{CacheTTL: time.Minute})
	provinces, err := c.Provinces(context.Background())
	require.NoError(t, err)
	assert.Len(t, provinces, 2)
}

func TestRateLimitHonoursContext(t *testing.T) {
	var hits int32
	srv := newUpstream(t, &hits)
	c := New(srv.URL, nil, Options{RateLimit: 0.001, Burst: 1})

	_, err := c.Provinces(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Provinces(ctx)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
