package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/relaychat/internal/store"
)

const (
	minPasswordLength = 6
	// maxPasswordLength is the bcrypt input limit in bytes.
	maxPasswordLength = 72
)

var (
	// ErrInvalidCredentials is returned when email/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailExists is returned when trying to sign up with a registered email.
	ErrEmailExists = errors.New("email already exists")
	// ErrMissingFields is returned when a required field is empty.
	ErrMissingFields = errors.New("all fields are required")
	// ErrPasswordTooShort is returned when the password is under minPasswordLength.
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	// ErrPasswordTooLong is returned when the password exceeds maxPasswordLength bytes.
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
	// ErrUserNotFound is returned when a valid token names a deleted user.
	ErrUserNotFound = errors.New("user not found")
)

// Service provides authentication operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// CookieMaxAge returns the token lifetime in seconds, for session cookies.
func (s *Service) CookieMaxAge() int {
	return int(s.jwtConfig.TTL.Seconds())
}

// Signup creates a new user with a hashed password and returns it with a token.
func (s *Service) Signup(ctx context.Context, fullName, email, password string) (*store.User, string, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" || email == "" || password == "" {
		return nil, "", ErrMissingFields
	}
	if len(password) < minPasswordLength {
		return nil, "", ErrPasswordTooShort
	}
	if len(password) > maxPasswordLength {
		return nil, "", ErrPasswordTooLong
	}
	if len(s.jwtConfig.Secret) == 0 {
		// Refuse before writing a user that could never log in.
		return nil, "", ErrSigningKeyMissing
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user := &store.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: hashedPassword,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, "", ErrEmailExists
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	return user, token, nil
}

// Login validates credentials and returns the user with a token.
func (s *Service) Login(ctx context.Context, email, password string) (*store.User, string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	return user, token, nil
}

// Authenticate validates a token and loads the user it names.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*store.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfilePic stores a new profile picture URL for the user.
func (s *Service) UpdateProfilePic(ctx context.Context, userID, profilePic string) (*store.User, error) {
	profilePic = strings.TrimSpace(profilePic)
	if profilePic == "" {
		return nil, ErrMissingFields
	}

	user, err := s.store.UpdateProfilePic(ctx, userID, profilePic)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile pic: %w", err)
	}
	return user, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}
