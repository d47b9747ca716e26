package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/auth"
	"github.com/vovakirdan/relaychat/internal/store"
)

const (
	// ContextKeyUserID is the context key for storing user ID.
	ContextKeyUserID = "user_id"
	// ContextKeyUser is the context key for storing the authenticated *store.User.
	ContextKeyUser = "user"

	// SessionCookie carries the JWT for browser clients.
	SessionCookie = "jwt"
)

// AuthMiddleware creates a middleware that validates the session token and
// loads the user it names.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c.Request, false)
		if token == "" {
			logger.Debug().Msg("missing session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized - No Token Provided"})
			return
		}

		user, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				logger.Debug().Err(err).Msg("invalid token")
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized - Invalid Token"})
			case errors.Is(err, auth.ErrUserNotFound):
				c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
			default:
				logger.Error().Err(err).Msg("failed to authenticate request")
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
			}
			return
		}

		// Store user info in context
		c.Set(ContextKeyUserID, user.ID)
		c.Set(ContextKeyUser, user)

		c.Next()
	}
}

// tokenFromRequest extracts the session token from the jwt cookie, then the
// Authorization header, then (when allowQuery is set) the token query parameter.
func tokenFromRequest(r *http.Request, allowQuery bool) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	if header := r.Header.Get("Authorization"); header != "" {
		// Extract token from "Bearer <token>"
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}

// currentUser returns the user stored by AuthMiddleware.
func currentUser(c *gin.Context) (*store.User, bool) {
	v, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*store.User)
	return user, ok
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

// BodyLimitMiddleware caps request bodies so JSON binding cannot be fed
// unbounded input.
func BodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// CORSMiddleware allows credentialed requests from exactly one origin.
// Simple requests from other origins are still served, without CORS
// headers, so the browser withholds the response. Preflights from other
// origins are rejected with 403.
func CORSMiddleware(origin string) gin.HandlerFunc {
	policy := cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
	return func(c *gin.Context) {
		if requestOrigin := c.GetHeader("Origin"); requestOrigin != "" &&
			requestOrigin != origin &&
			c.Request.Method != http.MethodOptions {
			return
		}
		policy(c)
	}
}
