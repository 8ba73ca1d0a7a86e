package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/donare/internal/audit/domain"
	"github.com/smallbiznis/donare/internal/authorization"
	categorydomain "github.com/smallbiznis/donare/internal/category/domain"
	"github.com/smallbiznis/donare/pkg/db/pagination"
)

func (s *Server) ListCategories(c *gin.Context) {
	if !s.policy.Allows(actorFrom(c), authorization.ActionCategoryView) {
		AbortWithError(c, ErrForbidden)
		return
	}

	var query categorydomain.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.categorySvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateCategory(c *gin.Context) {
	var req categorydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.categorySvc.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetImpact(c *gin.Context) {
	resp, err := s.impactSvc.Snapshot(c.Request.Context(), actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAuditEntries(c *gin.Context) {
	if !s.policy.Allows(actorFrom(c), authorization.ActionAuditLogView) {
		AbortWithError(c, ErrForbidden)
		return
	}

	var query struct {
		pagination.Pagination
		TargetType string `form:"target_type"`
		TargetID   string `form:"target_id"`
		ActorID    string `form:"actor_id"`
		ActionType string `form:"action_type"`
		Order      string `form:"order"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListRequest{
		Pagination: query.Pagination,
		TargetType: normalizeQuery(query.TargetType),
		TargetID:   normalizeQuery(query.TargetID),
		ActorID:    normalizeQuery(query.ActorID),
		ActionType: normalizeQuery(query.ActionType),
		Order:      strings.ToLower(normalizeQuery(query.Order)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
