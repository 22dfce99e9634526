package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Hankatuur/englishpod/internal/auth"
	"github.com/Hankatuur/englishpod/internal/models"
	"github.com/Hankatuur/englishpod/internal/validate"
)

// CreateUserRequest represents an admin request to create a user
type CreateUserRequest struct {
	Email           string `json:"email" binding:"required"`
	Name            string `json:"name"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	IsAdmin         bool   `json:"is_admin"`
}

// @Summary List users
// @Description List all user accounts (admin only)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} UserDetail
// @Router /api/users [get]
func (s *Server) listUsers(c *gin.Context) {
	var users []models.User
	if err := s.db.Order("created_at ASC").Find(&users).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var profiles []models.Profile
	if err := s.db.Find(&profiles).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list profiles")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	byUser := make(map[string]*models.Profile, len(profiles))
	for i := range profiles {
		byUser[profiles[i].UserID] = &profiles[i]
	}

	details := make([]*UserDetail, 0, len(users))
	for i := range users {
		details = append(details, userDetail(&users[i], byUser[users[i].ID]))
	}

	c.JSON(http.StatusOK, details)
}

// @Summary Create user
// @Description Create a new user account (admin only)
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "Create user request"
// @Success 201 {object} UserDetail
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/users [post]
func (s *Server) createUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if msg := s.checkCredentials(req.Email, req.Password); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if !validate.PasswordsMatch(req.Password, req.ConfirmPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Passwords do not match"})
		return
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to check existing email")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	user, profile, err := s.createUserWithProfile(req.Email, passwordHash, req.Name, req.IsAdmin)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("email", user.Email).
		Bool("is_admin", profile.IsAdmin).
		Msg("User created")

	c.JSON(http.StatusCreated, userDetail(user, profile))
}

// @Summary Delete user
// @Description Delete a user account (admin only, cannot delete yourself)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/users/{id} [delete]
func (s *Server) deleteUser(c *gin.Context) {
	userID := c.Param("id")

	sessionData, exists := GetSessionData(c)
	if exists && sessionData.UserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
		return
	}

	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// Profile rows cascade from the user delete; enrollments are swept by
	// the reconcile worker rather than inline.
	if err := s.db.Delete(&user).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to delete user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	s.logger.Info().Str("user_id", userID).Str("email", user.Email).Msg("User deleted")

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
