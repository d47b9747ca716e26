package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/auth"
	"github.com/vovakirdan/relaychat/internal/config"
	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/metrics"
	"github.com/vovakirdan/relaychat/internal/service/messages"
	"github.com/vovakirdan/relaychat/internal/store/sqlite"
)

const testOrigin = "http://localhost:5173"

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a development config suitable for handler tests.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.CORSOrigin = testOrigin
	cfg.JWTSecret = "testsecret"
	return cfg
}

// startTestServer wires the full router over an in-memory SQLite store.
func startTestServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect test store: %v", err)
	}

	logger := zerolog.Nop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	hub := core.NewHub(m, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})

	handler := NewHandler(Deps{
		Hub:      hub,
		Auth:     authService,
		Messages: messages.New(st, hub, m, &logger),
		Gatherer: reg,
	}, cfg, &logger)

	ts := httptest.NewServer(handler)
	// Close the server first so handlers exit before the hub stops.
	t.Cleanup(cancel)
	t.Cleanup(ts.Close)
	return ts
}

// newClient returns an HTTP client with its own cookie jar.
func newClient(t *testing.T) *stdhttp.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &stdhttp.Client{Jar: jar, Timeout: 5 * time.Second}
}

func doJSON(t *testing.T, client *stdhttp.Client, method, url string, body any) *stdhttp.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := stdhttp.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *stdhttp.Response) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *stdhttp.Response, want int) {
	t.Helper()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status %d, want %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want)
	}
}

// signup creates an account and returns the user and its session token.
func signup(t *testing.T, ts *httptest.Server, client *stdhttp.Client, name, email string) (UserResponse, string) {
	t.Helper()

	resp := doJSON(t, client, stdhttp.MethodPost, ts.URL+"/api/auth/signup", SignupRequest{
		FullName: name,
		Email:    email,
		Password: "secret123",
	})
	expectStatus(t, resp, stdhttp.StatusCreated)

	var token string
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatalf("signup did not set the %s cookie", SessionCookie)
	}
	return decodeJSON[UserResponse](t, resp), token
}
