package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	rateWindow    = time.Minute
	sweepInterval = 5 * time.Minute
)

// RateLimiter enforces a per-client sliding window: a request is allowed
// when fewer than maxPerWindow requests arrived in the preceding minute.
// Rejected requests carry a Retry-After header pointing at the moment the
// oldest counted request leaves the window.
func RateLimiter(maxPerWindow int) gin.HandlerFunc {
	var mu sync.Mutex
	windows := make(map[string][]time.Time)
	lastSweep := time.Now()

	return func(c *gin.Context) {
		now := time.Now()
		client := c.ClientIP()

		mu.Lock()

		// Drop clients that have gone quiet; piggybacked on request
		// handling so no background goroutine is needed.
		if now.Sub(lastSweep) > sweepInterval {
			for ip, stamps := range windows {
				if len(stamps) == 0 || now.Sub(stamps[len(stamps)-1]) > rateWindow {
					delete(windows, ip)
				}
			}
			lastSweep = now
		}

		stamps := windows[client]
		cutoff := now.Add(-rateWindow)
		for len(stamps) > 0 && stamps[0].Before(cutoff) {
			stamps = stamps[1:]
		}

		if len(stamps) >= maxPerWindow {
			retryAfter := rateWindow - now.Sub(stamps[0])
			windows[client] = stamps
			mu.Unlock()

			seconds := int(retryAfter.Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":               "Rate limit exceeded",
				"retry_after_seconds": seconds,
			})
			return
		}

		windows[client] = append(stamps, now)
		mu.Unlock()

		c.Next()
	}
}
