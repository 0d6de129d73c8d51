package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	obscontext "github.com/stefanratchev/Veda-Legal-sub000/internal/observability/context"
)

const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"

	contextActorIDKey   = "actor_id"
	contextActorRoleKey = "actor_role"
)

// ActorContext requires the acting user headers on every API request and
// threads them through the request context.
func (s *Server) ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader(HeaderActorID))
		actorRole := strings.TrimSpace(c.GetHeader(HeaderActorRole))
		if actorID == "" || actorRole == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextActorIDKey, actorID)
		c.Set(contextActorRoleKey, actorRole)
		c.Request = c.Request.WithContext(
			obscontext.WithActor(c.Request.Context(), actorID, actorRole),
		)
		c.Next()
	}
}

func (s *Server) requireAuthz(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetString(contextActorIDKey)
		actorRole := c.GetString(contextActorRoleKey)
		if err := s.authzSvc.Authorize(c.Request.Context(), actorID, actorRole, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
