package http

import (
	stdhttp "net/http"
	"strings"
	"testing"

	"github.com/vovakirdan/relaychat/internal/config"
)

func TestAuthFlow(t *testing.T) {
	ts := startTestServer(t, testConfig())
	client := newClient(t)

	user, _ := signup(t, ts, client, "Alice Doe", "Alice@Example.com")
	if user.ID == "" || user.Email != "alice@example.com" || user.FullName != "Alice Doe" {
		t.Fatalf("unexpected user: %+v", user)
	}

	resp := doJSON(t, client, stdhttp.MethodGet, ts.URL+"/api/auth/check", nil)
	expectStatus(t, resp, stdhttp.StatusOK)
	if got := decodeJSON[UserResponse](t, resp); got.ID != user.ID {
		t.Fatalf("check returned %+v, want id %s", got, user.ID)
	}

	resp = doJSON(t, client, stdhttp.MethodPost, ts.URL+"/api/auth/logout", nil)
	expectStatus(t, resp, stdhttp.StatusOK)
	if got := decodeJSON[MessageResponse](t, resp); got.Message != "Logged out successfully" {
		t.Fatalf("unexpected logout body: %+v", got)
	}

	resp = doJSON(t, client, stdhttp.MethodGet, ts.URL+"/api/auth/check", nil)
	expectStatus(t, resp, stdhttp.StatusUnauthorized)
	if got := decodeJSON[ErrorResponse](t, resp); got.Error != "Unauthorized - No Token Provided" {
		t.Fatalf("unexpected error: %+v", got)
	}

	resp = doJSON(t, client, stdhttp.MethodPost, ts.URL+"/api/auth/login", LoginRequest{
		Email:    "alice@example.com",
		Password: "secret123",
	})
	expectStatus(t, resp, stdhttp.StatusOK)

	resp = doJSON(t, client, stdhttp.MethodGet, ts.URL+"/api/auth/check", nil)
	expectStatus(t, resp, stdhttp.StatusOK)
}

func TestSignupValidation(t *testing.T) {
	ts := startTestServer(t, testConfig())
	client := newClient(t)
	signup(t, ts, client, "Alice", "alice@example.com")

	tests := []struct {
		name string
		req  SignupRequest
		want string
	}{
		{"missing name", SignupRequest{Email: "b@example.com", Password: "secret123"}, "All fields are required"},
		{"short password", SignupRequest{FullName: "Bob", Email: "b@example.com", Password: "12345"}, "Password must be at least 6 characters"},
		{"long password", SignupRequest{FullName: "Bob", Email: "b@example.com", Password: strings.Repeat("a", 80)}, "Password must be at most 72 characters"},
		{"duplicate email", SignupRequest{FullName: "Alice", Email: "ALICE@example.com", Password: "secret123"}, "Email already exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, newClient(t), stdhttp.MethodPost, ts.URL+"/api/auth/signup", tt.req)
			expectStatus(t, resp, stdhttp.StatusBadRequest)
			if got := decodeJSON[ErrorResponse](t, resp); got.Error != tt.want {
				t.Fatalf("error = %q, want %q", got.Error, tt.want)
			}
		})
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	ts := startTestServer(t, testConfig())
	signup(t, ts, newClient(t), "Alice", "alice@example.com")

	for _, req := range []LoginRequest{
		{Email: "alice@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "secret123"},
	} {
		resp := doJSON(t, newClient(t), stdhttp.MethodPost, ts.URL+"/api/auth/login", req)
		expectStatus(t, resp, stdhttp.StatusBadRequest)
		if got := decodeJSON[ErrorResponse](t, resp); got.Error != "Invalid credentials" {
			t.Fatalf("unexpected error: %+v", got)
		}
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	for _, env := range []string{"development", config.EnvProduction} {
		t.Run(env, func(t *testing.T) {
			cfg := testConfig()
			cfg.Env = env
			cfg.StaticDir = t.TempDir()
			ts := startTestServer(t, cfg)

			resp := doJSON(t, newClient(t), stdhttp.MethodPost, ts.URL+"/api/auth/signup", SignupRequest{
				FullName: "Alice",
				Email:    "alice@example.com",
				Password: "secret123",
			})
			expectStatus(t, resp, stdhttp.StatusCreated)

			header := resp.Header.Get("Set-Cookie")
			for _, attr := range []string{"jwt=", "HttpOnly", "SameSite=Strict", "Max-Age=604800"} {
				if !strings.Contains(header, attr) {
					t.Fatalf("Set-Cookie %q missing %q", header, attr)
				}
			}
			if secure := strings.Contains(header, "Secure"); secure != (env == config.EnvProduction) {
				t.Fatalf("Set-Cookie %q: Secure=%v in %s", header, secure, env)
			}
		})
	}
}

func TestAuthGate(t *testing.T) {
	ts := startTestServer(t, testConfig())
	_, token := signup(t, ts, newClient(t), "Alice", "alice@example.com")

	t.Run("bearer header", func(t *testing.T) {
		req, _ := stdhttp.NewRequest(stdhttp.MethodGet, ts.URL+"/api/auth/check", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		expectStatus(t, resp, stdhttp.StatusOK)
	})

	t.Run("invalid token", func(t *testing.T) {
		req, _ := stdhttp.NewRequest(stdhttp.MethodGet, ts.URL+"/api/auth/check", nil)
		req.AddCookie(&stdhttp.Cookie{Name: SessionCookie, Value: "garbage"})
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		expectStatus(t, resp, stdhttp.StatusUnauthorized)
		if got := decodeJSON[ErrorResponse](t, resp); got.Error != "Unauthorized - Invalid Token" {
			t.Fatalf("unexpected error: %+v", got)
		}
	})
}

func TestUpdateProfile(t *testing.T) {
	ts := startTestServer(t, testConfig())
	client := newClient(t)
	signup(t, ts, client, "Alice", "alice@example.com")

	resp := doJSON(t, client, stdhttp.MethodPut, ts.URL+"/api/auth/update-profile", UpdateProfileRequest{})
	expectStatus(t, resp, stdhttp.StatusBadRequest)

	resp = doJSON(t, client, stdhttp.MethodPut, ts.URL+"/api/auth/update-profile", UpdateProfileRequest{
		ProfilePic: "https://cdn.example.com/alice.png",
	})
	expectStatus(t, resp, stdhttp.StatusOK)
	if got := decodeJSON[UserResponse](t, resp); got.ProfilePic != "https://cdn.example.com/alice.png" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestSignupWithoutSecret(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = ""
	ts := startTestServer(t, cfg)

	resp := doJSON(t, newClient(t), stdhttp.MethodPost, ts.URL+"/api/auth/signup", SignupRequest{
		FullName: "Alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	expectStatus(t, resp, stdhttp.StatusInternalServerError)
}
