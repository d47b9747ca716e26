package http

import (
	"io"
	stdhttp "net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vovakirdan/relaychat/internal/config"
)

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t, testConfig())

	resp, err := ts.Client().Get(ts.URL + "/check")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != HealthText {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestCORS(t *testing.T) {
	ts := startTestServer(t, testConfig())

	t.Run("allowed origin preflight", func(t *testing.T) {
		req, _ := stdhttp.NewRequest(stdhttp.MethodOptions, ts.URL+"/api/auth/login", nil)
		req.Header.Set("Origin", testOrigin)
		req.Header.Set("Access-Control-Request-Method", stdhttp.MethodPost)
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("preflight: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != stdhttp.StatusNoContent {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != testOrigin {
			t.Fatalf("allow-origin = %q", got)
		}
		if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Fatalf("allow-credentials = %q", got)
		}
	})

	t.Run("other origin served without cors headers", func(t *testing.T) {
		req, _ := stdhttp.NewRequest(stdhttp.MethodGet, ts.URL+"/check", nil)
		req.Header.Set("Origin", "http://other.example.com")
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != stdhttp.StatusOK {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("allow-origin should be empty, got %q", got)
		}
	})

	t.Run("other origin preflight rejected", func(t *testing.T) {
		req, _ := stdhttp.NewRequest(stdhttp.MethodOptions, ts.URL+"/api/auth/login", nil)
		req.Header.Set("Origin", "http://other.example.com")
		req.Header.Set("Access-Control-Request-Method", stdhttp.MethodPost)
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("preflight: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != stdhttp.StatusForbidden {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("allow-origin should be empty, got %q", got)
		}
	})
}

func TestUnknownRouteOutsideProduction(t *testing.T) {
	ts := startTestServer(t, testConfig())

	resp, err := ts.Client().Get(ts.URL + "/some/client/route")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusNotFound {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestProductionServesFrontend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Env = config.EnvProduction
	cfg.StaticDir = dir
	ts := startTestServer(t, cfg)

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := ts.Client().Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	if status, body := get("/assets/app.js"); status != stdhttp.StatusOK || body != "console.log(1)" {
		t.Fatalf("static asset: %d %q", status, body)
	}
	if status, body := get("/chat/42"); status != stdhttp.StatusOK || !strings.Contains(body, "app") {
		t.Fatalf("catch-all: %d %q", status, body)
	}
	if status, body := get("/check"); status != stdhttp.StatusOK || body != HealthText {
		t.Fatalf("api routes must win over the catch-all: %d %q", status, body)
	}

	resp := doJSON(t, newClient(t), stdhttp.MethodPost, ts.URL+"/nope", nil)
	expectStatus(t, resp, stdhttp.StatusNotFound)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := startTestServer(t, testConfig())

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != stdhttp.StatusOK || !strings.Contains(string(body), "relaychat_ws_connections") {
		t.Fatalf("unexpected metrics response: %d %s", resp.StatusCode, body)
	}
}
