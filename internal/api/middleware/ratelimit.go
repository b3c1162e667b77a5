package middleware

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewRateLimiter builds a per-client-IP rate limiting middleware backed by
// Redis. rate uses the limiter format, e.g. "20-M" for 20 per minute.
// Applied to the credential endpoints to slow down enumeration.
func NewRateLimiter(rdb *redis.Client, rate string) (func(next http.Handler) http.Handler, error) {
	parsedRate, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("middleware.NewRateLimiter rate: %w", err)
	}

	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "ratelimit:auth",
	})
	if err != nil {
		return nil, fmt.Errorf("middleware.NewRateLimiter store: %w", err)
	}

	instance := limiter.New(store, parsedRate)
	return limiterhttp.NewMiddleware(instance).Handler, nil
}
