package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-private-messages/pkg/helpers"
)

// sessionStore answers HGetAll from memory; other commands are not used.
type sessionStore struct {
	redis.Cmdable
	hashes map[string]map[string]string
}

func (s *sessionStore) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	h, ok := s.hashes[key]
	if !ok {
		h = map[string]string{}
	}
	return redis.NewMapStringStringResult(h, nil)
}

func init() { gin.SetMode(gin.TestMode) }

func newAuthEngine(rdb redis.Cmdable, jwt *helpers.JWTManager) *gin.Engine {
	r := gin.New()
	r.GET("/me", Auth(rdb, jwt), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserIDKey)+"|"+c.GetString("userName"))
	})
	return r
}

func TestAuth(t *testing.T) {
	jwt := helpers.NewJWTManager("a", "r", time.Minute, time.Hour)
	store := &sessionStore{hashes: map[string]map[string]string{
		helpers.SessionKey("u1"): {"sid": "s1", "username": "alice", "email": "a@example.com"},
	}}
	r := newAuthEngine(store, jwt)

	valid, _, err := jwt.GenerateAccessToken("u1", "s1")
	require.NoError(t, err)
	stale, _, err := jwt.GenerateAccessToken("u1", "old")
	require.NoError(t, err)
	other, _, err := jwt.GenerateAccessToken("u2", "s2")
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie string
		code   int
	}{
		{"missing cookie", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"rotated session", stale, http.StatusUnauthorized},
		{"no session", other, http.StatusUnauthorized},
		{"ok", valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "u1|alice", w.Body.String())
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "3f2b8f7e-6f0a-4a55-9d0c-3f0b5d4c2e11")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "3f2b8f7e-6f0a-4a55-9d0c-3f0b5d4c2e11", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Body.String())
}

func TestRealIP(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare", map[string]string{"CF-Connecting-IP": "203.0.113.9", "X-Forwarded-For": "198.51.100.1"}, "203.0.113.9"},
		{"forwarded left-most", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "198.51.100.1"},
		{"real ip", map[string]string{"X-Forwarded-For": "junk", "X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestAllowPrivateIP(t *testing.T) {
	allow := AllowPrivateIP()
	for ip, want := range map[string]bool{"127.0.0.1": true, "10.1.2.3": true, "192.168.0.4": true, "203.0.113.9": false} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("real_ip", ip)
		assert.Equal(t, want, allow(c), ip)
	}
}

func TestRateLimit_DisabledWithoutRedis(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(nil, Limit{Name: "t", Requests: 1, Window: time.Minute, Key: KeyByIP()}), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestKeyFuncs(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	c.Set("real_ip", "198.51.100.1")
	assert.Equal(t, "ip:198.51.100.1", KeyByIP()(c))
	assert.Equal(t, "path:/api/messages:ip:198.51.100.1", KeyByIPAndPath()(c))
	assert.Equal(t, "rl:compose:user:anon:ip:198.51.100.1", ComposeLimit.key(c))
	c.Set(CtxUserIDKey, "u1")
	assert.Equal(t, "rl:compose:user:u1", ComposeLimit.key(c))
}

func TestLimit_Judge(t *testing.T) {
	l := Limit{Name: "t", Requests: 2, Window: time.Minute, Key: KeyByIP()}

	v := l.judge(1, 59500*time.Millisecond)
	assert.Equal(t, verdict{remaining: 1, resetSec: 60}, v)

	v = l.judge(2, time.Second)
	assert.Equal(t, verdict{remaining: 0, resetSec: 1}, v)

	v = l.judge(5, -1)
	assert.Equal(t, verdict{remaining: 0, resetSec: 0, blocked: true}, v)
}

func TestLimit_Enabled(t *testing.T) {
	assert.True(t, MailboxLimit.enabled())
	assert.False(t, Limit{Name: "off", Window: time.Minute, Key: KeyByIP()}.enabled())
	assert.False(t, Limit{Name: "nokey", Requests: 1, Window: time.Minute}.enabled())
}
