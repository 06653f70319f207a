package middleware

import (
	"context"
	"strings"

	"medishare/internal/services"
	"medishare/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ActorResolver is satisfied by services.AuthService.
type ActorResolver interface {
	ResolveActor(ctx context.Context, token string) (services.Actor, error)
}

// AuthMiddleware resolves the bearer token against the user store on every
// request and stores the actor in the request context.
func AuthMiddleware(resolver ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := resolver.ResolveActor(c.Request.Context(), extractBearer(c))
		if err != nil {
			abortWithError(c, err)
			return
		}

		ctx := services.WithActor(c.Request.Context(), actor)
		ctx = context.WithValue(ctx, logger.UserIdKey, actor.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
