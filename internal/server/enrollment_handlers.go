package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Hankatuur/englishpod/internal/enrollments"
)

// EnrollmentRequest represents a completed purchase to record
type EnrollmentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// @Summary Record an enrollment
// @Description Record a completed purchase order for the current user
// @Tags enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EnrollmentRequest true "Enrollment request"
// @Success 201 {object} models.Enrollment
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/enrollments [post]
func (s *Server) recordEnrollment(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req EnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orderID := strings.TrimSpace(req.OrderID)
	enrollment, err := s.enrollmentsService.Record(c.Request.Context(), sessionData.UserID, orderID)
	if err != nil {
		if errors.Is(err, enrollments.ErrAlreadyRecorded) {
			c.JSON(http.StatusConflict, gin.H{"error": "Order already recorded"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, enrollment)
}

// @Summary List my enrollments
// @Description List the current user's recorded purchases
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/enrollments/me [get]
func (s *Server) myEnrollments(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := s.enrollmentsService.ListForUser(c.Request.Context(), sessionData.UserID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list enrollments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"enrollments": list,
		"subscribed":  len(list) > 0,
	})
}
