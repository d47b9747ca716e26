package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/relaychat/internal/store/sqlite"
)

func newTestAuthService(t *testing.T, secret string) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect store: %v", err)
	}

	jwtConfig := &JWTConfig{
		Secret:   []byte(secret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig)
}

func TestSignup_RejectsMissingFields(t *testing.T) {
	svc := newTestAuthService(t, "test-secret-change-me")
	ctx := context.Background()

	cases := []struct{ name, email, password string }{
		{"", "a@example.com", "password123"},
		{"Alice", "  ", "password123"},
		{"Alice", "a@example.com", ""},
	}
	for _, c := range cases {
		if _, _, err := svc.Signup(ctx, c.name, c.email, c.password); !errors.Is(err, ErrMissingFields) {
			t.Fatalf("expected ErrMissingFields for %+v, got %v", c, err)
		}
	}
}

func TestSignup_RejectsShortPassword(t *testing.T) {
	svc := newTestAuthService(t, "test-secret-change-me")

	if _, _, err := svc.Signup(context.Background(), "Alice", "a@example.com", "12345"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestSignup_RejectsLongPassword(t *testing.T) {
	svc := newTestAuthService(t, "test-secret-change-me")
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "Alice", "a@example.com", strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if _, _, err := svc.Signup(ctx, "Alice", "a@example.com", strings.Repeat("a", 72)); err != nil {
		t.Fatalf("72-byte password should be accepted, got %v", err)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc := newTestAuthService(t, "test-secret-change-me")
	ctx := context.Background()

	user, token, err := svc.Signup(ctx, " Alice ", "Alice@Example.com", "password123")
	if err != nil {
		t.Fatalf("expected signup success, got %v", err)
	}
	if token == "" || user.ID == "" {
		t.Fatalf("expected token and id, got %q %q", token, user.ID)
	}
	if user.FullName != "Alice" || user.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, _, err := svc.Signup(ctx, "Alice 2", "alice@example.com", "password123"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestAuthService(t, "test-secret-change-me")
	ctx := context.Background()

	created, _, err := svc.Signup(ctx, "Bob", "bob@example.com", "password123")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	if _, _, err := svc.Login(ctx, "bob@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	user, token, err := svc.Login(ctx, "BOB@example.com", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.ID != created.ID {
		t.Fatalf("logged in as wrong user: %s != %s", user.ID, created.ID)
	}

	authed, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if authed.ID != created.ID {
		t.Fatalf("token names wrong user: %s", authed.ID)
	}
}

func TestMissingSecretDegradesAuth(t *testing.T) {
	svc := newTestAuthService(t, "")
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "Carol", "carol@example.com", "password123"); !errors.Is(err, ErrSigningKeyMissing) {
		t.Fatalf("expected ErrSigningKeyMissing, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "anything"); !errors.Is(err, ErrSigningKeyMissing) {
		t.Fatalf("expected ErrSigningKeyMissing, got %v", err)
	}
}

func TestUpdateProfilePic(t *testing.T) {
	svc := newTestAuthService(t, "test-secret-change-me")
	ctx := context.Background()

	user, _, err := svc.Signup(ctx, "Dana", "dana@example.com", "password123")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	if _, err := svc.UpdateProfilePic(ctx, user.ID, " "); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if _, err := svc.UpdateProfilePic(ctx, "ghost", "https://pic"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	updated, err := svc.UpdateProfilePic(ctx, user.ID, "https://cdn.example.com/dana.png")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.ProfilePic != "https://cdn.example.com/dana.png" {
		t.Fatalf("unexpected profile pic %q", updated.ProfilePic)
	}
}
