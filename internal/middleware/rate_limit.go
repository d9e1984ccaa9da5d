package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"query-gateway/internal/utils"
	"query-gateway/pkg/response"
)

// RateLimiterConfig configuration for rate limiting
type RateLimiterConfig struct {
	// Requests allowed per client within Window
	Requests int
	Window   time.Duration
	// Cleanup interval for inactive clients
	CleanupInterval time.Duration
}

// DefaultRateLimiterConfig returns default configuration
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Requests:        100,
		Window:          15 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimiter implements per client rate limiting. Each client gets a token
// bucket holding Requests tokens that refills over Window.
type RateLimiter struct {
	config  RateLimiterConfig
	metrics *Metrics
	clients map[string]*ClientLimiter
	mutex   sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// ClientLimiter represents rate limiter for a specific client
type ClientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter. Call Close to stop the
// background cleanup.
func NewRateLimiter(config RateLimiterConfig, metrics *Metrics) *RateLimiter {
	defaults := DefaultRateLimiterConfig()
	if config.Requests <= 0 {
		config.Requests = defaults.Requests
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}

	rl := &RateLimiter{
		config:  config,
		metrics: metrics,
		clients: make(map[string]*ClientLimiter),
		done:    make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// RateLimit creates a rate limiting middleware
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.limiterFor(rl.getClientID(c))

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))

		if !limiter.Allow() {
			rl.rateLimitExceeded(c)
			return
		}

		remaining := int(math.Max(0, math.Floor(limiter.Tokens())))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}

func (rl *RateLimiter) limiterFor(clientID string) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	client, exists := rl.clients[clientID]
	if !exists {
		every := rl.config.Window / time.Duration(rl.config.Requests)
		client = &ClientLimiter{
			limiter: rate.NewLimiter(rate.Every(every), rl.config.Requests),
		}
		rl.clients[clientID] = client
	}
	client.lastSeen = time.Now()

	return client.limiter
}

// getClientID keys clients by address
func (rl *RateLimiter) getClientID(c *gin.Context) string {
	clientIP := c.ClientIP()
	if clientIP == "" {
		clientIP = "unknown"
	}
	return "ip:" + clientIP
}

// rateLimitExceeded handles rate limit exceeded scenario
func (rl *RateLimiter) rateLimitExceeded(c *gin.Context) {
	rl.metrics.recordRateLimited()

	retryAfter := int(math.Ceil((rl.config.Window / time.Duration(rl.config.Requests)).Seconds()))
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-RateLimit-Remaining", "0")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorResponseFromAppError(utils.NewRateLimitError()))
}

// cleanup removes inactive clients
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.mutex.Lock()
			for clientID, client := range rl.clients {
				// A bucket idle for a full window has refilled anyway
				if now.Sub(client.lastSeen) > rl.config.Window {
					delete(rl.clients, clientID)
				}
			}
			rl.mutex.Unlock()
		}
	}
}

// ActiveClients returns the number of tracked clients
func (rl *RateLimiter) ActiveClients() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.clients)
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}
