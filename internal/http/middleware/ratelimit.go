package middleware

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
)

// rateWindow is one fixed counting window for a (client, route) key.
// Ephemeral and in-memory: a process restart starts every window fresh.
// start is immutable after publication; a window is never reused, an
// expired one is replaced wholesale.
type rateWindow struct {
	count atomic.Int64
	start int64 // window start, unix nanos
}

// RateLimiter is a fixed-window request counter keyed by client identity and
// route path. It gates admission before any handler runs; a rejected request
// never reaches the lifecycle layer and never affects other clients' windows.
type RateLimiter struct {
	windows  sync.Map // key string -> *rateWindow
	window   time.Duration
	max      int64
	bypass   []string
	clk      clock.Clock
	rejected prometheus.Counter
}

// NewRateLimiter constructs the limiter and registers its rejection counter.
func NewRateLimiter(window time.Duration, maxRequests int64, bypassPrefixes []string, clk clock.Clock, reg prometheus.Registerer) (*RateLimiter, error) {
	rl := &RateLimiter{
		window: window,
		max:    maxRequests,
		bypass: bypassPrefixes,
		clk:    clk,
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rate_limit_rejected_total",
			Help: "Requests rejected by the rate limiter.",
		}),
	}
	if reg != nil {
		if err := reg.Register(rl.rejected); err != nil {
			return nil, err
		}
	}
	return rl, nil
}

// Handler returns the Fiber middleware.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, p := range rl.bypass {
			if strings.HasPrefix(path, p) {
				return c.Next()
			}
		}

		now := rl.clk.Now().UnixNano()
		rl.sweep(now)

		key := rl.clientIdentity(c) + ":" + path
		if !rl.admit(key, now) {
			rl.rejected.Inc()
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}

// admit counts the request against the key's current window and reports
// whether it stays under the ceiling. An expired window is never mutated in
// place: a fresh entry already counting this request is swapped in, and
// losers of the swap retry against whichever entry won. Every increment
// lands on exactly one published window, so concurrent requests can neither
// be falsely rejected mid-reset nor slip past the ceiling through lost
// updates.
func (rl *RateLimiter) admit(key string, now int64) bool {
	for {
		v, loaded := rl.windows.Load(key)
		if !loaded {
			fresh := &rateWindow{start: now}
			fresh.count.Store(1)
			if v, loaded = rl.windows.LoadOrStore(key, fresh); !loaded {
				return true
			}
			// Another request created the entry first; count against it.
		}
		w := v.(*rateWindow)

		if now-w.start >= int64(rl.window) {
			fresh := &rateWindow{start: now}
			fresh.count.Store(1)
			if rl.windows.CompareAndSwap(key, w, fresh) {
				return true
			}
			continue
		}
		return w.count.Add(1) <= rl.max
	}
}

// sweep drops expired windows for all keys. Run opportunistically on each
// request instead of a timer: stale entries only waste memory, never
// correctness, so amortizing the cleanup across traffic is enough. The
// conditional delete leaves an entry alone when admit has already swapped a
// fresh window in under the same key.
func (rl *RateLimiter) sweep(now int64) {
	rl.windows.Range(func(key, v any) bool {
		if now-v.(*rateWindow).start >= int64(rl.window) {
			rl.windows.CompareAndDelete(key, v)
		}
		return true
	})
}

// clientIdentity resolves the caller: forwarded-for first hop, then
// real-IP, then the transport peer. The proxy supplying these headers is
// trusted by deployment configuration, not verified here.
func (rl *RateLimiter) clientIdentity(c *fiber.Ctx) string {
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if rip := c.Get("X-Real-IP"); rip != "" {
		return rip
	}
	return c.IP()
}
