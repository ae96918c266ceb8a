package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"chatforge-backend/internal/logger"
	"chatforge-backend/utils"

	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

const MessageRateLimited = "Too many requests. Please try again later."

// RateLimit allows requests per window for each client IP. A non-positive
// limit disables it.
func RateLimit(requests int, window time.Duration) Middleware {
	if requests <= 0 {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return next
		}
	}

	limiter := httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return utils.RealClientIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Warn("rate limit exceeded",
				zap.String("ip", utils.RealClientIP(r)),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"message": MessageRateLimited})
		}),
	)

	return func(next http.HandlerFunc) http.HandlerFunc {
		return limiter(next).ServeHTTP
	}
}
