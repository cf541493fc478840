package app_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/pageshot/internal/app"
	"github.com/raysh454/pageshot/internal/browser"
	"github.com/raysh454/pageshot/internal/testutil"
)

func TestNewApplication_NilConfig(t *testing.T) {
	t.Parallel()
	if _, err := app.NewApplication(nil, nil, &testutil.DummyDriver{}); err == nil {
		t.Fatal("expected an error for a nil config")
	}
}

func TestNewApplication_UnknownBackend(t *testing.T) {
	t.Parallel()
	cfg := app.DefaultConfig()
	cfg.Browser.Backend = browser.Backend("lynx")
	if _, err := app.NewApplication(cfg, nil, nil); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestApplication_RunServesAndShutsDown(t *testing.T) {
	t.Parallel()
	cfg := app.DefaultConfig()
	cfg.Port = 0
	cfg.Capture.ScrollInterval = time.Millisecond

	logger := &testutil.DummyLogger{}
	a, err := app.NewApplication(cfg, logger, &testutil.DummyDriver{})
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	var port int
	select {
	case bound := <-a.Ready():
		port = bound.(*net.TCPAddr).Port
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Post(base+"/api/capture", "application/json", strings.NewReader(`{"url":"https://example.com"}`))
	if err != nil {
		t.Fatalf("POST /api/capture: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(string(body), "\x89PNG") {
		t.Errorf("expected a PNG, got %d %q", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
