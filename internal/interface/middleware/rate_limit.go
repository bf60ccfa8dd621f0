package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-private-messages/pkg/response"
)

// ipFromCtx prefers the IP set by RealIP, falling back to "unknown".
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds the per-client part of a rate-limit key.
type KeyFunc func(c *gin.Context) string

func KeyByIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + ipFromCtx(c) }
}

func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "path:" + normalizePath(c) + ":ip:" + ipFromCtx(c)
	}
}

// KeyByUserID limits signed-in users by id and anonymous ones by IP.
func KeyByUserID() KeyFunc {
	return func(c *gin.Context) string {
		uid := c.GetString(CtxUserIDKey)
		if uid == "" {
			return "user:anon:ip:" + ipFromCtx(c)
		}
		return "user:" + uid
	}
}

// AllowFunc returns true to bypass the limit.
type AllowFunc func(*gin.Context) bool

// Limit is a named fixed-window policy.
type Limit struct {
	Name     string
	Requests int
	Window   time.Duration
	Key      KeyFunc
	Allow    AllowFunc
}

// Policies used by the route modules.
var (
	LoginLimit   = Limit{Name: "login", Requests: 10, Window: time.Minute, Key: KeyByIP()}
	RefreshLimit = Limit{Name: "refresh", Requests: 60, Window: time.Minute, Key: KeyByIP()}
	AccountLimit = Limit{Name: "account", Requests: 120, Window: time.Minute, Key: KeyByUserID()}
	MailboxLimit = Limit{Name: "mailbox", Requests: 300, Window: time.Minute, Key: KeyByUserID()}
	ComposeLimit = Limit{Name: "compose", Requests: 30, Window: time.Minute, Key: KeyByUserID()}
	UploadLimit  = Limit{Name: "upload", Requests: 20, Window: time.Minute, Key: KeyByIPAndPath()}
	DebugLimit   = Limit{Name: "debug", Requests: 120, Window: time.Minute, Key: KeyByIP(), Allow: AllowPrivateIP()}
)

func (l Limit) key(c *gin.Context) string {
	return "rl:" + l.Name + ":" + l.Key(c)
}

func (l Limit) enabled() bool {
	return l.Requests > 0 && l.Window > 0 && l.Key != nil
}

// verdict holds the header values for one counted request.
type verdict struct {
	remaining int
	resetSec  int
	blocked   bool
}

func (l Limit) judge(count int64, ttl time.Duration) verdict {
	v := verdict{remaining: max(l.Requests-int(count), 0)}
	if ttl > 0 {
		v.resetSec = int((ttl + time.Second - 1) / time.Second)
	}
	v.blocked = count > int64(l.Requests)
	return v
}

// RateLimit counts requests per key in a fixed window. It fails open when
// Redis errors and never counts OPTIONS.
func RateLimit(rdb redis.Cmdable, l Limit) gin.HandlerFunc {
	if rdb == nil || !l.enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if (l.Allow != nil && l.Allow(c)) || strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := l.key(c)

		var incr *redis.IntCmd
		var ttl *redis.DurationCmd
		_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
			incr = p.Incr(ctx, key)
			p.ExpireNX(ctx, key, l.Window)
			ttl = p.PTTL(ctx, key)
			return nil
		})
		if err != nil {
			c.Next()
			return
		}
		v := l.judge(incr.Val(), ttl.Val())

		// https://datatracker.ietf.org/doc/html/rfc6585#section-4
		c.Header("X-RateLimit-Limit", strconv.Itoa(l.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(v.resetSec))

		if v.blocked {
			if v.resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(v.resetSec))
			}
			response.Error[any](c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
