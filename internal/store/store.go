package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint (user email) is violated.
	ErrDuplicate = errors.New("duplicate")
)

// User represents a registered account.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	ProfilePic   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message represents a persisted direct message between two users.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Text       string
	Image      string
	CreatedAt  time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser inserts a new user. ID and timestamps are assigned by the store.
	// Returns ErrDuplicate when the email is already registered.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email (case-insensitive).
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// UpdateProfilePic sets the profile picture URL and returns the updated user.
	UpdateProfilePic(ctx context.Context, id, profilePic string) (*User, error)

	// ListUsersExcept returns all users other than the given one, ordered by full name.
	ListUsersExcept(ctx context.Context, id string) ([]*User, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message, assigning ID and CreatedAt when unset.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListConversation returns messages exchanged between two users in
	// chronological order. A positive limit keeps only the newest messages.
	ListConversation(ctx context.Context, userA, userB string, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore

	// Connect verifies connectivity and prepares schema or indexes.
	Connect(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}
