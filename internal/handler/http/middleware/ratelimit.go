package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"newssense/internal/handler/http/respond"
	"newssense/pkg/config"
)

// RateLimitedMessage is the body of 429 responses.
const RateLimitedMessage = "Too many requests, please try again later"

var rateLimitRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rate_limit_rejected_total",
		Help: "Requests rejected by a rate limiter",
	},
	[]string{"limiter"},
)

// RateLimitConfig configures a per-client token bucket.
type RateLimitConfig struct {
	// Name labels the limiter in logs and metrics.
	Name string
	// RPS is the sustained refill rate in requests per second.
	RPS float64
	// Burst is the bucket size.
	Burst int
	// IdleTTL is how long an untouched client bucket is kept.
	IdleTTL time.Duration
}

// LoadAuthRateLimitConfig reads AUTH_RATE_LIMIT_RPS (default 0.2, i.e. one
// request every five seconds) and AUTH_RATE_LIMIT_BURST (default 10).
func LoadAuthRateLimitConfig() RateLimitConfig {
	rps := config.GetEnvFloat("AUTH_RATE_LIMIT_RPS", 0.2)
	if rps <= 0 {
		slog.Warn("AUTH_RATE_LIMIT_RPS must be positive, using default", slog.Float64("value", rps))
		rps = 0.2
	}
	burst := config.GetEnvInt("AUTH_RATE_LIMIT_BURST", 10)
	if burst < 1 {
		slog.Warn("AUTH_RATE_LIMIT_BURST must be at least 1, using default", slog.Int("value", burst))
		burst = 10
	}
	return RateLimitConfig{Name: "auth", RPS: rps, Burst: burst, IdleTTL: 10 * time.Minute}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	cfg       RateLimitConfig
	extractor IPExtractor
	now       func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewIPRateLimiter creates a limiter; a nil extractor means RemoteAddr only.
func NewIPRateLimiter(cfg RateLimitConfig, extractor IPExtractor) *IPRateLimiter {
	if extractor == nil {
		extractor = RemoteAddrExtractor{}
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &IPRateLimiter{
		cfg:       cfg,
		extractor: extractor,
		now:       time.Now,
		visitors:  make(map[string]*visitor),
	}
}

// Reserve takes one token for ip. It returns zero when the request may
// proceed, otherwise how long the client has to wait (no token is consumed).
func (l *IPRateLimiter) Reserve(ip string) time.Duration {
	now := l.now()

	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	res := v.limiter.ReserveN(now, 1)
	if !res.OK() {
		return time.Duration(math.MaxInt64)
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return delay
	}
	return 0
}

// Middleware rejects requests over the limit with 429 and Retry-After.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, err := l.extractor.ExtractIP(r)
		if err != nil {
			// IP が取れない場合は制限しない
			slog.Warn("rate limiter could not extract client IP",
				slog.String("limiter", l.cfg.Name),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}

		if wait := l.Reserve(ip); wait > 0 {
			rateLimitRejectedTotal.WithLabelValues(l.cfg.Name).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
			respond.Message(w, http.StatusTooManyRequests, RateLimitedMessage)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(d time.Duration) int {
	if d > time.Hour {
		return int(time.Hour / time.Second)
	}
	return int(math.Ceil(d.Seconds()))
}

// Cleanup drops buckets idle for longer than IdleTTL and returns how many
// were removed.
func (l *IPRateLimiter) Cleanup() int {
	cutoff := l.now().Add(-l.cfg.IdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for ip, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, ip)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (l *IPRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// RunCleanup calls Cleanup every interval until ctx is cancelled.
func (l *IPRateLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Cleanup(); n > 0 {
				slog.Debug("rate limiter cleanup",
					slog.String("limiter", l.cfg.Name),
					slog.Int("removed", n),
					slog.Int("remaining", l.Len()))
			}
		}
	}
}
