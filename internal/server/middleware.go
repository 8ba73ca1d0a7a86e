package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/donare/internal/actorcontext"
	"github.com/smallbiznis/donare/internal/authorization"
	obscontext "github.com/smallbiznis/donare/internal/observability/context"
	obslogger "github.com/smallbiznis/donare/internal/observability/logger"
	"go.uber.org/zap"
)

// Identity resolves the caller from the gateway headers. Requests without a
// role header are the anonymous visitor.
func (s *Server) Identity() gin.HandlerFunc {
	idHeader := s.cfg.Identity.ActorIDHeader
	roleHeader := s.cfg.Identity.ActorRoleHeader

	return func(c *gin.Context) {
		subject, err := subjectFromHeaders(c.GetHeader(idHeader), c.GetHeader(roleHeader))
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := actorcontext.WithSubject(c.Request.Context(), subject)
		ctx = obscontext.WithActor(ctx, subject.Role.String(), subject.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func subjectFromHeaders(rawID, rawRole string) (authorization.Subject, error) {
	id := strings.TrimSpace(rawID)
	if strings.TrimSpace(rawRole) == "" {
		if id != "" {
			return authorization.Subject{}, ErrUnauthorized
		}
		return authorization.Anonymous(), nil
	}

	role, err := authorization.ParseRole(rawRole)
	if err != nil {
		return authorization.Subject{}, err
	}
	if role != authorization.RoleVisitor && id == "" {
		return authorization.Subject{}, ErrUnauthorized
	}
	return authorization.Subject{ID: id, Role: role}, nil
}

func actorFrom(c *gin.Context) authorization.Subject {
	subject, _ := actorcontext.SubjectFromContext(c.Request.Context())
	return subject
}

// MutationRateLimit throttles state-changing requests per actor. A limiter
// failure lets the request through.
func (s *Server) MutationRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		result, err := s.limiter.Allow(ctx, actorFrom(c).ID)
		if err != nil {
			obslogger.FromContext(ctx).Warn("mutation rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			seconds := int(result.RetryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
