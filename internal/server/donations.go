package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	donationdomain "github.com/smallbiznis/donare/internal/donation/domain"
	"github.com/smallbiznis/donare/pkg/db/pagination"
)

type transitionRequest struct {
	Action string `json:"action"`
	donationdomain.TransitionPayload
}

func (s *Server) CreateDonation(c *gin.Context) {
	var req donationdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.donationSvc.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDonations(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status        string `form:"status"`
		CategoryID    string `form:"category_id"`
		DonorID       string `form:"donor_id"`
		BeneficiaryID string `form:"beneficiary_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.donationSvc.List(c.Request.Context(), actorFrom(c), donationdomain.ListRequest{
		Pagination:    query.Pagination,
		Status:        normalizeQuery(query.Status),
		CategoryID:    normalizeQuery(query.CategoryID),
		DonorID:       normalizeQuery(query.DonorID),
		BeneficiaryID: normalizeQuery(query.BeneficiaryID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDonation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.donationSvc.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteDonation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.donationSvc.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// TransitionDonation applies the action named in the body.
func (s *Server) TransitionDonation(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Action) == "" {
		AbortWithError(c, newValidationError("action", "invalid_action", "action is required"))
		return
	}
	s.transition(c, req.Action, req.TransitionPayload)
}

// transitionAction binds one lifecycle action to its own route. The body is optional.
func (s *Server) transitionAction(action donationdomain.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload donationdomain.TransitionPayload
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&payload); err != nil {
				AbortWithError(c, invalidRequestError())
				return
			}
		}
		s.transition(c, string(action), payload)
	}
}

func (s *Server) transition(c *gin.Context, action string, payload donationdomain.TransitionPayload) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	resp, err := s.donationSvc.Transition(c.Request.Context(), donationdomain.TransitionRequest{
		DonationID: id,
		Actor:      actorFrom(c),
		Action:     action,
		Payload:    payload,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
