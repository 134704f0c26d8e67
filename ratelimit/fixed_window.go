/*
fixed_window.go - Per-principal submission quota

PURPOSE:
  Caps how many pickup requests one principal may submit per window.
  Counters live in Redis so every server instance shares them.

KEYS:
  <prefix>:<principal>:<slot>   slot = unix millis / window millis
  A key expires one window after its first hit, so abandoned slots clean
  themselves up.

FAILURE MODE:
  Any Redis error denies the submission and is logged. Callers cannot
  tell a closed limiter from an exhausted quota except by the log.

SEE ALSO:
  - api/handlers.go: SubmitPickup answers 429 with Retry-After
  - config/config.go: RateLimitConfig
*/
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harvestlink/rescue-engine/logger"
)

const (
	defaultPrefix = "rescue:ratelimit"
	redisTimeout  = 2 * time.Second
)

// takeScript increments the slot counter, arming its expiry on first use.
var takeScript = redis.NewScript(`
local used = redis.call("INCR", KEYS[1])
if used == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return used
`)

// Decision is the outcome of one Take.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // time until the current window closes
}

// Limiter hands out submission quota per principal.
type Limiter interface {
	Take(ctx context.Context, principalID string) Decision
}

// Options configures a SubmissionLimiter.
type Options struct {
	Addr     string
	Password string
	Prefix   string
	Limit    int
	Window   time.Duration
}

// SubmissionLimiter is a Redis-backed fixed-window Limiter.
type SubmissionLimiter struct {
	opts   Options
	client *redis.Client
	now    func() time.Time
}

// NewSubmissionLimiter validates opts and connects lazily to Redis.
func NewSubmissionLimiter(opts Options) (*SubmissionLimiter, error) {
	if opts.Limit <= 0 || opts.Window < time.Millisecond {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	opts.Addr = strings.TrimSpace(opts.Addr)
	if opts.Addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	opts.Prefix = strings.TrimSpace(opts.Prefix)
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	return &SubmissionLimiter{
		opts:   opts,
		client: redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password}),
		now:    time.Now,
	}, nil
}

// Take consumes one unit of principalID's quota for the current window.
func (l *SubmissionLimiter) Take(ctx context.Context, principalID string) Decision {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		principalID = "anonymous"
	}

	windowMs := l.opts.Window.Milliseconds()
	nowMs := l.now().UTC().UnixMilli()
	slot := nowMs / windowMs
	retryAfter := time.Duration((slot+1)*windowMs-nowMs) * time.Millisecond

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	key := fmt.Sprintf("%s:%s:%d", l.opts.Prefix, principalID, slot)
	used, err := takeScript.Run(ctx, l.client, []string{key}, windowMs).Int64()
	if err != nil {
		logger.ExternalServiceResult("redis", "ratelimit.take", err, "principal_id", principalID)
		return Decision{Allowed: false, RetryAfter: retryAfter}
	}

	remaining := l.opts.Limit - int(used)
	if remaining < 0 {
		return Decision{Allowed: false, RetryAfter: retryAfter}
	}
	return Decision{Allowed: true, Remaining: remaining, RetryAfter: retryAfter}
}

// Close releases the Redis connection pool.
func (l *SubmissionLimiter) Close() error {
	return l.client.Close()
}
