package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mnehpets/rpcenvelope/endpoint"
)

// RateLimitProcessor applies a token bucket per client. Requests over the
// limit fail with 429 Too Many Requests and a Retry-After header.
//
// Limits are kept in memory; each server instance enforces them on its own.
type RateLimitProcessor struct {
	limit rate.Limit
	burst int
	// KeyFunc selects the bucket. It defaults to the client IP.
	KeyFunc func(r *http.Request) string
	// IdleTTL is how long an unused bucket is kept.
	IdleTTL time.Duration

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
	now       func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimitProcessor allows rps requests per second per client with the
// given burst. burst < 1 is treated as 1.
func NewRateLimitProcessor(rps float64, burst int) *RateLimitProcessor {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitProcessor{
		limit:   rate.Limit(rps),
		burst:   burst,
		KeyFunc: ClientIP,
		IdleTTL: 5 * time.Minute,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// ClientIP returns the host part of r.RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Allow reports whether a request for key may proceed now.
func (p *RateLimitProcessor) Allow(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.lastSweep) > p.IdleTTL {
		for k, c := range p.clients {
			if now.Sub(c.lastSeen) > p.IdleTTL {
				delete(p.clients, k)
			}
		}
		p.lastSweep = now
	}

	c, ok := p.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Process implements endpoint.Processor.
func (p *RateLimitProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if !p.Allow(p.KeyFunc(r)) {
		retry := 1
		if p.limit > 0 {
			if s := int(1 / float64(p.limit)); s > retry {
				retry = s
			}
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		return endpoint.Error(http.StatusTooManyRequests, "rate limit exceeded", nil)
	}
	return next(w, r)
}

var _ endpoint.Processor = (*RateLimitProcessor)(nil)
