package server

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Hankatuur/englishpod/internal/access"
	"github.com/Hankatuur/englishpod/internal/assert"
	"github.com/Hankatuur/englishpod/internal/auth"
	"github.com/Hankatuur/englishpod/internal/models"
	"github.com/Hankatuur/englishpod/internal/validate"
)

// SetupRequest represents the first-run setup request
type SetupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignupRequest represents a member self-registration request
type SignupRequest struct {
	Email           string `json:"email" binding:"required"`
	Name            string `json:"name"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token string      `json:"token"`
	User  *UserDetail `json:"user"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func userDetail(user *models.User, profile *models.Profile) *UserDetail {
	detail := &UserDetail{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		Role:      access.RoleGuest.String(),
	}
	if profile != nil {
		detail.Name = profile.Name
		detail.IsAdmin = profile.IsAdmin
		detail.Role = access.RoleFromProfile(profile.IsAdmin).String()
	}
	return detail
}

// checkCredentials runs the local form rules before anything touches the
// database. Returns a field-specific message, or "" when the input is fine.
func (s *Server) checkCredentials(email, password string) string {
	if err := s.validator.Var(email, "formemail"); err != nil {
		return "Invalid email address"
	}
	if err := s.validator.Var(password, "strongpwd"); err != nil {
		return "Password must be at least 6 characters with an uppercase letter and a symbol"
	}
	return ""
}

// createUserWithProfile creates the auth user row and then the profile row.
// A failed profile insert triggers a best-effort compensating delete of the
// user so no account is left without a role record; failure of the cleanup
// itself is logged only.
func (s *Server) createUserWithProfile(email, passwordHash, name string, isAdmin bool) (*models.User, *models.Profile, error) {
	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, nil, err
	}

	profile := &models.Profile{
		UserID:  user.ID,
		Name:    name,
		IsAdmin: isAdmin,
	}
	if err := s.db.Create(profile).Error; err != nil {
		if delErr := s.db.Delete(user).Error; delErr != nil {
			s.logger.Error().Err(delErr).
				Str("user_id", user.ID).
				Msg("Failed to remove user after profile creation failure")
		}
		return nil, nil, err
	}

	return user, profile, nil
}

// @Summary First-run setup
// @Description Creates the first admin user (only works if no users exist)
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SetupRequest true "Setup request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/setup [post]
func (s *Server) setupFirstAdmin(c *gin.Context) {
	var req SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if msg := s.checkCredentials(req.Email, req.Password); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	// Check if any users exist
	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Setup already completed"})
		return
	}

	// Generate JWT secret (64 hex characters = 32 bytes of randomness)
	jwtSecretBytes := make([]byte, 32)
	if _, err := rand.Read(jwtSecretBytes); err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate JWT secret")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initialize system"})
		return
	}
	jwtSecret := hex.EncodeToString(jwtSecretBytes)
	assert.Length(jwtSecret, 64)

	// Create Config singleton with JWT secret
	appConfig := &models.Config{
		JWTSecret: jwtSecret,
	}
	if err := s.db.Create(appConfig).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initialize system"})
		return
	}

	// Initialize JWT authentication with the generated secret
	auth.InitializeJWT(jwtSecret)

	// Hash password
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	user, profile, err := s.createUserWithProfile(req.Email, passwordHash, req.Name, true)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create admin user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	// Generate JWT token
	token, err := auth.GenerateToken(user.ID, user.Email, profile.IsAdmin)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("First admin user created")

	c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User:  userDetail(user, profile),
	})
}

// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Find user by email
	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// Verify password
	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	// Role comes from the profile row; a missing row reads as non-admin
	var profile models.Profile
	isAdmin := false
	if err := s.db.Where("user_id = ?", user.ID).First(&profile).Error; err == nil {
		isAdmin = profile.IsAdmin
	}

	// Generate JWT token
	token, err := auth.GenerateToken(user.ID, user.Email, isAdmin)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User logged in")

	c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User:  userDetail(&user, &profile),
	})
}

// @Summary Sign up
// @Description Register a new member account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup request"
// @Success 201 {object} LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/auth/signup [post]
func (s *Server) signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// All form rules run before anything touches the database
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
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	user, profile, err := s.createUserWithProfile(req.Email, passwordHash, req.Name, false)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create member account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Email, false)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("Member signed up")

	c.JSON(http.StatusCreated, LoginResponse{
		Token: token,
		User:  userDetail(user, profile),
	})
}

// @Summary Get current user
// @Description Get information about the currently authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserDetail
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user models.User
	if err := s.db.Where("id = ?", sessionData.UserID).First(&user).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var profile models.Profile
	var profilePtr *models.Profile
	if err := s.db.Where("user_id = ?", user.ID).First(&profile).Error; err == nil {
		profilePtr = &profile
	}

	c.JSON(http.StatusOK, userDetail(&user, profilePtr))
}
