package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/EMe-U/plotsure/internal/adapter/http/response"
)

// Limiter decides whether a client may make another request.
type Limiter interface {
	Allow(ctx context.Context, clientKey string) (bool, time.Duration)
}

// RateLimit rejects clients that exceed limiter's budget with 429. The
// budget is tracked per client address.
func RateLimit(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := limiter.Allow(r.Context(), ClientIP(r))
			if !allowed {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				response.Error(w, http.StatusTooManyRequests, response.CodeRateLimitExceeded,
					"Too many requests from this IP, please try again later.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
