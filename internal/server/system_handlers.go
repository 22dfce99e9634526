package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Hankatuur/englishpod/internal/models"
	"github.com/Hankatuur/englishpod/internal/sysinfo"
)

// @Summary System status
// @Description Host metrics and platform counters (admin only)
// @Tags system
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/system [get]
func (s *Server) systemStatus(c *gin.Context) {
	metrics, err := sysinfo.GetMetrics(s.config.Media.Root)
	if err != nil {
		// Partial metrics are still useful; report the failure alongside
		s.logger.Warn().Err(err).Msg("Failed to collect host metrics")
	}

	var userCount, contentCount, enrollmentCount int64
	s.db.Model(&models.User{}).Count(&userCount)
	s.db.Model(&models.ContentItem{}).Count(&contentCount)
	s.db.Model(&models.Enrollment{}).Count(&enrollmentCount)

	var appConfig models.Config
	var reconcileSchedule string
	if err := s.db.First(&appConfig).Error; err == nil {
		reconcileSchedule = appConfig.ReconcileSchedule
	}

	c.JSON(http.StatusOK, gin.H{
		"version":            s.version,
		"metrics":            metrics,
		"users":              userCount,
		"content_items":      contentCount,
		"enrollments":        enrollmentCount,
		"active_playbacks":   s.tracker.Active(),
		"reconcile_schedule": reconcileSchedule,
	})
}
