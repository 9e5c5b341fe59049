package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fundhub/backend/internal/policy"
	"github.com/fundhub/backend/internal/store"
	"github.com/fundhub/backend/pkg/response"
)

// ContextActor is the key for the acting *policy.Actor in gin context.
const ContextActor = "actor"

// Actor loads the user set by OptionalJWT together with its memberships.
func Actor(s store.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(ContextUserID)
		if !ok {
			c.Next()
			return
		}
		userID, _ := v.(int64)
		actor, err := policy.LoadActor(c.Request.Context(), s, userID)
		if errors.Is(err, store.ErrNotFound) {
			response.Unauthorized(c, "unknown user")
			c.Abort()
			return
		}
		if err != nil {
			logger.Error("load actor failed", zap.Int64("user_id", userID), zap.Error(err))
			response.Internal(c, "internal error")
			c.Abort()
			return
		}
		c.Set(ContextActor, actor)
		c.Next()
	}
}

// ActorFrom returns the acting user, or nil for anonymous requests.
func ActorFrom(c *gin.Context) *policy.Actor {
	v, ok := c.Get(ContextActor)
	if !ok {
		return nil
	}
	a, _ := v.(*policy.Actor)
	return a
}
