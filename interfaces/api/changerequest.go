package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rcflow/rcflow/application"
	"github.com/rcflow/rcflow/domain/audit"
	"github.com/rcflow/rcflow/domain/changerequest"
	"github.com/rcflow/rcflow/domain/remoteconfig"
)

type createRequest struct {
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Env         string                   `json:"env"`
	ProjectID   string                   `json:"projectId"`
	Parameters  []remoteconfig.Parameter `json:"parameters"`
	Conditions  []remoteconfig.Condition `json:"conditions"`
}

type addReviewerRequest struct {
	UserID string `json:"userId"`
}

type reviewRequest struct {
	Message string `json:"message"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCreate(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", changerequest.ErrInvalidRequest, err))
		return
	}

	env, err := remoteconfig.ParseEnv(req.Env)
	if err != nil {
		abortWithError(c, err)
		return
	}

	cr, err := s.workflow.Create(c.Request.Context(), application.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Env:         env,
		ProjectID:   req.ProjectID,
		Parameters:  req.Parameters,
		Conditions:  req.Conditions,
		Actor:       currentPrincipal(c),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cr)
}

func (s *Server) handleList(c *gin.Context) {
	filter := changerequest.ListFilter{
		Env:       remoteconfig.Env(c.Query("env")),
		Status:    changerequest.Status(c.Query("status")),
		CreatedBy: c.Query("createdBy"),
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			abortWithError(c, fmt.Errorf("%w: invalid limit %q", changerequest.ErrInvalidRequest, limit))
			return
		}
		filter.Limit = n
	}
	if offset := c.Query("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			abortWithError(c, fmt.Errorf("%w: invalid offset %q", changerequest.ErrInvalidRequest, offset))
			return
		}
		filter.Offset = n
	}

	requests, err := s.workflow.List(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

func (s *Server) handleGet(c *gin.Context) {
	cr, err := s.workflow.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}

func (s *Server) handleSubmit(c *gin.Context) {
	cr, err := s.workflow.Submit(c.Request.Context(), c.Param("id"), currentPrincipal(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}

func (s *Server) handleAddReviewer(c *gin.Context) {
	var req addReviewerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		abortWithError(c, fmt.Errorf("%w: userId is required", changerequest.ErrInvalidRequest))
		return
	}

	cr, err := s.workflow.AddReviewer(c.Request.Context(), c.Param("id"), currentPrincipal(c), req.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}

func (s *Server) handleReviewerApprove(c *gin.Context) {
	s.reviewerDecision(c, s.workflow.ReviewerApprove)
}

func (s *Server) handleReviewerDeny(c *gin.Context) {
	s.reviewerDecision(c, s.workflow.ReviewerDeny)
}

type decisionFunc func(ctx context.Context, id string, actor changerequest.Principal, message string) (*changerequest.ChangeRequest, error)

func (s *Server) reviewerDecision(c *gin.Context, decide decisionFunc) {
	var req reviewRequest
	// A missing body is allowed; the message is optional.
	_ = c.ShouldBindJSON(&req)

	cr, err := decide(c.Request.Context(), c.Param("id"), currentPrincipal(c), req.Message)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}

func (s *Server) handleApprove(c *gin.Context) {
	cr, err := s.workflow.Approve(c.Request.Context(), c.Param("id"), currentPrincipal(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}

func (s *Server) handleReject(c *gin.Context) {
	var req rejectRequest
	// A missing body is allowed; the reason is optional.
	_ = c.ShouldBindJSON(&req)

	cr, err := s.workflow.Reject(c.Request.Context(), c.Param("id"), currentPrincipal(c), req.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}

func (s *Server) handlePublish(c *gin.Context) {
	cr, err := s.workflow.Publish(c.Request.Context(), c.Param("id"), currentPrincipal(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}

func (s *Server) handleSnapshot(c *gin.Context) {
	env, err := remoteconfig.ParseEnv(c.Query("env"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	snapshot, err := s.workflow.LiveSnapshot(c.Request.Context(), env)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleAuditLogs(c *gin.Context) {
	filter := audit.ListFilter{
		ChangeRequestID: c.Query("changeRequestId"),
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			abortWithError(c, fmt.Errorf("%w: invalid limit %q", changerequest.ErrInvalidRequest, limit))
			return
		}
		filter.Limit = n
	}

	entries, err := s.workflow.AuditTrail(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
