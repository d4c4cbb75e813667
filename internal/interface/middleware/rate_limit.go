package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-form-playground/pkg/response"
)

// ipFromCtx extracts the client IP from Gin context, falling back to "unknown"
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

// KeyFunc builds a rate-limit key from the request
// Example: combine client IP and route path for more granular limiting
type KeyFunc func(c *gin.Context) string

// KeyByIP returns a key function that limits by client IP only
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndPath returns a key function that limits by client IP and request path
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + normalizePath(c) + ":ip:" + ipFromCtx(c)
	}
}

// KeyBySession limits per playground session, falling back to the client IP.
func KeyBySession() KeyFunc {
	return func(c *gin.Context) string {
		sid := c.GetString(CtxSessionIDKey)
		if sid == "" {
			return "rl:session:anon:ip:" + ipFromCtx(c)
		}
		return "rl:session:" + sid
	}
}

// incrExpireScript counts a hit and returns {count, pttl}. The window starts
// at the first hit of a key.
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

type AllowFunc func(*gin.Context) bool // return true for bypass limit

// RateLimit counts requests per key in Redis over a fixed window and answers
// 429 once max is exceeded. A nil client disables limiting; Redis errors let
// the request through.
func RateLimit(rdb *redis.Client, max int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || max <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (allow != nil && allow(c)) {
			c.Next()
			return
		}

		count, reset, err := hit(c, rdb, keyFn(c), window)
		if err != nil {
			c.Next()
			return
		}
		writeLimitHeaders(c, max, count, reset)

		if count > max {
			c.Header("Retry-After", strconv.Itoa(reset))
			response.Error[any](c, http.StatusTooManyRequests, "Too many requests, slow down", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// hit records one request for key and returns the count in the current
// window and the seconds until it resets (rounded up).
func hit(c *gin.Context, rdb *redis.Client, key string, window time.Duration) (int, int, error) {
	vals, err := incrExpireScript.Run(c.Request.Context(), rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(vals) != 2 {
		return 0, 0, fmt.Errorf("rate limit script returned %d values", len(vals))
	}
	return int(vals[0]), resetSeconds(vals[1], window), nil
}

// resetSeconds turns a PTTL reply into whole seconds. A missing expiry
// (-1 or -2) falls back to the full window.
func resetSeconds(pttlMs int64, window time.Duration) int {
	if pttlMs <= 0 {
		pttlMs = window.Milliseconds()
	}
	return int((pttlMs + 999) / 1000)
}

// writeLimitHeaders sets the X-RateLimit-* headers (RFC 6585 section 4).
func writeLimitHeaders(c *gin.Context, max, count, reset int) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(max))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(maxInt(max-count, 0)))
	c.Header("X-RateLimit-Reset", strconv.Itoa(reset))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
