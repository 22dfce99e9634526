package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Hankatuur/englishpod/internal/access"
	"github.com/Hankatuur/englishpod/internal/auth"
	"github.com/Hankatuur/englishpod/internal/models"
)

const (
	bearerPrefix = "Bearer "

	// homePath and loginPath are where denied navigations are sent.
	// Unauthenticated visitors on protected routes go home, not to a login
	// prompt.
	homePath  = "/"
	loginPath = "/login"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

// GetSessionData returns the resolved session for the request, if any
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// SessionMiddleware resolves the bearer token into a session when one is
// presented. It never rejects the request: a missing, malformed or stale
// token simply leaves the request without a session, and the access
// middleware decides what that means for the route.
func SessionMiddleware(db *gorm.DB, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.Next()
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			log.Debug().Err(err).Msg("Rejected bearer token")
			c.Next()
			return
		}

		// Verify user still exists; a token for a deleted account is no session
		var user models.User
		if err := db.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
			log.Debug().Str("user_id", claims.UserID).Msg("Token for unknown user")
			c.Next()
			return
		}

		setSession(c, &auth.SessionData{
			UserID:     user.ID,
			Email:      user.Email,
			IsAdmin:    claims.IsAdmin,
			AuthMethod: "jwt",
		})

		c.Next()
	}
}

// RequireAccess runs the access decision procedure for the route's declared
// requirement. Each navigation attempt re-evaluates from scratch; the oracle
// lookup is bound to the request context so a superseded lookup is abandoned
// with the request.
func RequireAccess(oracle access.Oracle, requirement access.Requirement, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _ := GetSessionData(c)

		lookup, err := oracle.Lookup(c.Request.Context(), session)
		if err != nil {
			// Lookup is already fail-closed; log and decide with what we have
			log.Warn().Err(err).Msg("Profile lookup failed, denying elevated access")
		}

		decision := access.Decide(requirement, lookup)
		switch decision {
		case access.Allow:
			c.Next()
		case access.RedirectLogin:
			redirectDenied(c, log, requirement, decision, loginPath)
		default:
			redirectDenied(c, log, requirement, decision, homePath)
		}
	}
}

func redirectDenied(c *gin.Context, log zerolog.Logger, requirement access.Requirement, decision access.Decision, location string) {
	log.Info().
		Str("path", c.Request.URL.Path).
		Str("requirement", requirement.String()).
		Str("decision", decision.String()).
		Msg("Access denied")

	c.Header("Location", location)
	c.AbortWithStatusJSON(http.StatusSeeOther, gin.H{
		"error":    "Access denied",
		"redirect": location,
	})
}
