package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/auth"
	"github.com/vovakirdan/relaychat/internal/store"
)

// AuthHandlers provides HTTP handlers for the /api/auth group.
type AuthHandlers struct {
	authService  *auth.Service
	secureCookie bool
	log          *zerolog.Logger
}

// NewAuthHandlers creates a new auth handlers instance. secureCookie marks
// the session cookie Secure, which production deployments behind TLS need.
func NewAuthHandlers(authService *auth.Service, secureCookie bool, logger *zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService:  authService,
		secureCookie: secureCookie,
		log:          logger,
	}
}

// SignupRequest represents the signup request body.
type SignupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest represents the profile update request body.
type UpdateProfileRequest struct {
	ProfilePic string `json:"profilePic"`
}

// UserResponse is the public JSON shape of a user.
type UserResponse struct {
	ID         string    `json:"_id"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	ProfilePic string    `json:"profilePic"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MessageResponse carries a plain status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Signup handles account creation.
// POST /api/auth/signup
func (h *AuthHandlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid signup request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	user, token, err := h.authService.Signup(c.Request.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "All fields are required"})
		case errors.Is(err, auth.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Password must be at least 6 characters"})
		case errors.Is(err, auth.ErrPasswordTooLong):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Password must be at most 72 characters"})
		case errors.Is(err, auth.ErrEmailExists):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Email already exists"})
		default:
			h.log.Error().Err(err).Str("email", req.Email).Msg("failed to sign up user")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
		}
		return
	}

	h.setSessionCookie(c, token, h.authService.CookieMaxAge())
	h.log.Info().Str("user_id", user.ID).Msg("user signed up")
	c.JSON(http.StatusCreated, toUserResponse(user))
}

// Login handles credential login.
// POST /api/auth/login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid credentials"})
			return
		}
		h.log.Error().Err(err).Str("email", req.Email).Msg("failed to log in user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
		return
	}

	h.setSessionCookie(c, token, h.authService.CookieMaxAge())
	h.log.Info().Str("user_id", user.ID).Msg("user logged in")
	c.JSON(http.StatusOK, toUserResponse(user))
}

// Logout clears the session cookie.
// POST /api/auth/logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// UpdateProfile sets the caller's profile picture.
// PUT /api/auth/update-profile
func (h *AuthHandlers) UpdateProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized - No Token Provided"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	updated, err := h.authService.UpdateProfilePic(c.Request.Context(), user.ID, req.ProfilePic)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Profile pic is required"})
		case errors.Is(err, auth.ErrUserNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		default:
			h.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to update profile")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
		}
		return
	}

	c.JSON(http.StatusOK, toUserResponse(updated))
}

// Check returns the authenticated user.
// GET /api/auth/check
func (h *AuthHandlers) Check(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized - No Token Provided"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *AuthHandlers) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", h.secureCookie, true)
}

func toUserResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}
