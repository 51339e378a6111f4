package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"barber-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const rateLimitPrefix = "ratelimit:ip:"

// tokenBucket refills one token every interval up to capacity and takes one per request.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local interval_ms = tonumber(ARGV[3])
	local ttl_seconds = tonumber(ARGV[4])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 then
		local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + intervals)
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// RateLimiter limits requests per client IP. It uses a Redis token bucket shared across
// instances, and a per-process limiter when Redis is absent or failing.
type RateLimiter struct {
	cfg      utils.RateLimitConfig
	rdb      *redis.Client
	interval time.Duration
	log      *zap.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRateLimiter(cfg utils.RateLimitConfig, rdb *redis.Client, log *zap.Logger) *RateLimiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerMinute
	}
	return &RateLimiter{
		cfg:      cfg,
		rdb:      rdb,
		interval: time.Minute / time.Duration(cfg.RequestsPerMinute),
		log:      log.With(zap.String("middleware", "ratelimit")),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	if !l.cfg.Enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		allowed, remaining, retryAfter := l.allow(r, ip)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Burst))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if !allowed {
			secs := int(math.Ceil(retryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			l.log.Warn("Rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
			utils.ResponseTooManyRequests(w, "Rate limit exceeded. Try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) allow(r *http.Request, ip string) (bool, int64, time.Duration) {
	if l.rdb != nil {
		args := []any{
			time.Now().UnixMilli(),
			l.cfg.Burst,
			l.interval.Milliseconds(),
			int64(max(time.Minute, l.interval*time.Duration(l.cfg.Burst)) / time.Second),
		}
		vals, err := tokenBucket.Run(r.Context(), l.rdb, []string{rateLimitPrefix + ip}, args...).Int64Slice()
		if err == nil && len(vals) == 3 {
			return vals[0] == 1, vals[1], time.Duration(vals[2]) * time.Millisecond
		}
		l.log.Warn("Redis rate limit unavailable, using local limiter", zap.Error(err))
	}

	limiter := l.limiter(ip)
	res := limiter.Reserve()
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return false, 0, delay
	}
	return true, int64(limiter.Tokens()), 0
}

func (l *RateLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(l.interval), l.cfg.Burst)
		l.limiters[ip] = limiter
	}
	return limiter
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
