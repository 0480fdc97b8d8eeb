package ginserver

import (
	"fmt"
	"net/http"

	gin "github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginmiddleware "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

const limiterPrefix = "acropolis:ratelimit"

// NewLimiterStore keeps counters in redis when a client is given, so every
// replica shares one budget; otherwise counters are per process.
func NewLimiterStore(client *goredis.Client) (limiter.Store, error) {
	if client == nil {
		return memorystore.NewStore(), nil
	}
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   limiterPrefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: redis store: %w", err)
	}
	return store, nil
}

// RateLimit limits requests per client IP. rate uses the limiter format, e.g.
// "30-M" for 30 requests per minute.
func RateLimit(rate string, store limiter.Store) (gin.HandlerFunc, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: %w", err)
	}
	instance := limiter.New(store, parsed)
	return ginmiddleware.NewMiddleware(instance,
		ginmiddleware.WithKeyGetter(func(c *gin.Context) string {
			return c.ClientIP()
		}),
		ginmiddleware.WithLimitReachedHandler(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
		}),
	), nil
}
