package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-client rate limiter
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_minute"`
	BurstSize      int  `yaml:"burst_size"`
}

// RateLimiter applies a token-bucket limit per client IP. Idle client buckets
// are dropped by a background sweep so the map does not grow unbounded.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	logger  *logrus.Logger
	enabled bool
	done    chan struct{}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates the limiter and starts its cleanup loop when enabled.
func NewRateLimiter(config *RateLimitConfig, logger *logrus.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientLimiter),
		logger:  logger,
		done:    make(chan struct{}),
	}

	if config == nil || !config.Enabled {
		logger.Info("Rate limiting disabled")
		return rl
	}

	rl.enabled = true
	rl.limit = rate.Limit(float64(config.RequestsPerMin) / 60.0)
	rl.burst = config.BurstSize

	go rl.cleanupLoop(5 * time.Minute)

	logger.WithFields(logrus.Fields{
		"requests_per_minute": config.RequestsPerMin,
		"burst":               config.BurstSize,
	}).Info("Rate limiting enabled")

	return rl
}

// Middleware returns the HTTP middleware function
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if !rl.enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if !rl.allow(client) {
			rl.logger.WithFields(logrus.Fields{
				"client": client,
				"path":   r.URL.Path,
			}).Warn("Rate limit exceeded")

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{
					"type":    "rate_limit_exceeded",
					"message": "too many requests, slow down",
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[client] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter.Allow()
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-interval)
			for client, cl := range rl.clients {
				if cl.lastSeen.Before(cutoff) {
					delete(rl.clients, client)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop terminates the cleanup loop.
func (rl *RateLimiter) Stop() {
	close(rl.done)
}

// clientIP resolves the originating address, trusting proxy headers first.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
