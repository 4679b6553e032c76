package middlewares

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit keys requests by authenticated user, falling back to client IP.
// Limiter failures let the request through.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if limiter == nil {
			return
		}
		key := fmt.Sprintf("ip:%s", ctx.ClientIP())
		if id := ctx.GetUint("id"); id > 0 {
			key = fmt.Sprintf("user:%d", id)
		}
		key = fmt.Sprintf("%s:%s", ctx.FullPath(), key)
		allowed, err := limiter.Allow(ctx.Request.Context(), key)
		if err != nil {
			log.Printf("[ratelimit] %s\n", err.Error())
			return
		}
		if !allowed {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
	}
}
