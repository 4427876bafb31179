package interceptors

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	"asset-registry/backend/api/rpc"
	"asset-registry/backend/internal/diag"
)

// idleLimiterTTL is how long an unused per-IP limiter is kept.
const idleLimiterTTL = 10 * time.Minute

// RateLimiter throttles selected RPCs per client IP with a token bucket.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	methods map[string]bool

	mu       sync.Mutex
	limiters map[string]*ipLimiter
	nowF     func() time.Time
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter returns a limiter allowing rps requests per second with the given burst, per client IP,
// on each method in methods. A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int, methods map[string]bool) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		methods:  methods,
		limiters: make(map[string]*ipLimiter),
		nowF:     time.Now,
	}
}

// Unary returns the interceptor. Rejected calls get ResourceExhausted with RATE_LIMITED.
func (r *RateLimiter) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if r.limit <= 0 || !r.methods[info.FullMethod] {
			return handler(ctx, req)
		}
		if !r.allow(ClientIP(ctx)) {
			return nil, rpc.RetryError(codes.ResourceExhausted, diag.RateLimited, "too many requests", time.Second)
		}
		return handler(ctx, req)
	}
}

func (r *RateLimiter) allow(ip string) bool {
	now := r.nowF()
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[ip]
	if !ok {
		r.prune(now)
		l = &ipLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[ip] = l
	}
	l.lastSeen = now
	return l.limiter.AllowN(now, 1)
}

// prune drops idle limiters. Caller holds r.mu.
func (r *RateLimiter) prune(now time.Time) {
	for ip, l := range r.limiters {
		if now.Sub(l.lastSeen) > idleLimiterTTL {
			delete(r.limiters, ip)
		}
	}
}
