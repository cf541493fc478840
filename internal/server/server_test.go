package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/raysh454/pageshot/internal/capture"
	"github.com/raysh454/pageshot/internal/server"
	"github.com/raysh454/pageshot/internal/testutil"
)

func fastCapture() capture.Config {
	cfg := capture.DefaultConfig()
	cfg.ScrollInterval = time.Millisecond
	cfg.IdleQuiet = time.Millisecond
	return cfg
}

func newTestServer(t *testing.T, d *testutil.DummyDriver) (*server.Server, *testutil.DummyLogger) {
	t.Helper()

	logger := &testutil.DummyLogger{}
	s, err := server.NewServer(server.Config{
		ListenAddr: ":0",
		Driver:     d,
		Capture:    fastCapture(),
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s, logger
}

func doJSON(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON response: %v (body: %s)", err, rec.Body.String())
	}
}

func TestNewServer_RequiresDriver(t *testing.T) {
	t.Parallel()
	if _, err := server.NewServer(server.Config{}); err == nil {
		t.Fatal("expected an error without a driver")
	}
}

// ─── CORS ──────────────────────────────────────────────────────────────

func TestServer_CORS_HeaderPresent(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, &testutil.DummyDriver{})

	rec := doJSON(t, s, "GET", "/healthz", "")

	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected CORS origin *, got %q", origin)
	}
}

func TestServer_OptionsPreflight(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, &testutil.DummyDriver{})

	for _, path := range []string{"/api/capture", "/ws/capture"} {
		rec := doJSON(t, s, "OPTIONS", path, "")
		if rec.Code != http.StatusNoContent {
			t.Errorf("%s: expected 204 for OPTIONS, got %d", path, rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Methods") == "" {
			t.Errorf("%s: expected Allow-Methods header on OPTIONS", path)
		}
	}
}

// ─── Informational endpoints ───────────────────────────────────────────

func TestServer_Index(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, &testutil.DummyDriver{})

	rec := doJSON(t, s, "GET", "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Find("h1").Length() != 1 {
		t.Error("expected a heading")
	}
	if !strings.Contains(doc.Find("body").Text(), "/api/capture") {
		t.Error("index should name the capture endpoint")
	}
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, &testutil.DummyDriver{})

	rec := doJSON(t, s, "GET", "/healthz", "")
	var body server.HealthResponse
	decodeJSON(t, rec, &body)
	if rec.Code != http.StatusOK || body.Status != "ok" {
		t.Errorf("unexpected health response %d %+v", rec.Code, body)
	}
}

func TestServer_NotFound(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, &testutil.DummyDriver{})

	rec := doJSON(t, s, "GET", "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	rec = doJSON(t, s, "GET", "/api/capture", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestServer_Swagger(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, &testutil.DummyDriver{})

	rec := doJSON(t, s, "GET", "/swagger/doc.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc map[string]any
	decodeJSON(t, rec, &doc)
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/api/capture"]; !ok {
		t.Errorf("swagger doc missing /api/capture: %v", paths)
	}
}

// ─── Capture ───────────────────────────────────────────────────────────

func TestServer_Capture_ReturnsPNG(t *testing.T) {
	t.Parallel()
	png := testutil.TinyPNG(8, 8)
	d := &testutil.DummyDriver{Screenshot: png}
	s, _ := newTestServer(t, d)

	rec := doJSON(t, s, "POST", "/api/capture", `{"url":"https://example.com","device":"mobile"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), png) {
		t.Error("body is not the captured image")
	}

	sessions := d.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
	if sessions[0].URL != "https://example.com" {
		t.Errorf("navigated to %q", sessions[0].URL)
	}
	if vp := sessions[0].Viewport; vp == nil || vp.Width != 375 {
		t.Errorf("expected mobile viewport, got %+v", vp)
	}
	if d.OpenSessions() != 0 {
		t.Error("session left open")
	}
}

func TestServer_Capture_UnknownDeviceUsesDesktop(t *testing.T) {
	t.Parallel()
	d := &testutil.DummyDriver{}
	s, _ := newTestServer(t, d)

	rec := doJSON(t, s, "POST", "/api/capture", `{"url":"https://example.com","device":"tablet"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	sessions := d.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
	if vp := sessions[0].Viewport; vp == nil || vp.Width != 1920 {
		t.Errorf("expected desktop viewport, got %+v", vp)
	}
}

func TestServer_Capture_ValidationErrors(t *testing.T) {
	t.Parallel()
	d := &testutil.DummyDriver{}
	s, _ := newTestServer(t, d)

	rec := doJSON(t, s, "POST", "/api/capture", `{"url":"not a url","waitTime":-1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body server.ValidationErrorResponse
	decodeJSON(t, rec, &body)
	if len(body.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %+v", body.Errors)
	}
	paths := map[string]bool{}
	for _, e := range body.Errors {
		paths[e.Path] = true
		if e.Location != "body" || e.Type != "field" {
			t.Errorf("unexpected error shape %+v", e)
		}
	}
	if !paths["url"] || !paths["waitTime"] {
		t.Errorf("expected url and waitTime errors, got %v", paths)
	}
	if len(d.Sessions()) != 0 {
		t.Error("no browser should launch for an invalid request")
	}
}

func TestServer_Capture_MalformedJSON(t *testing.T) {
	t.Parallel()
	d := &testutil.DummyDriver{}
	s, _ := newTestServer(t, d)

	for _, body := range []string{`{invalid}`, ``, `[1,2]`, `"https://example.com"`} {
		rec := doJSON(t, s, "POST", "/api/capture", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %d", body, rec.Code)
			continue
		}
		var resp server.ValidationErrorResponse
		decodeJSON(t, rec, &resp)
		if len(resp.Errors) != 1 || resp.Errors[0].Location != "body" {
			t.Errorf("%q: unexpected errors %+v", body, resp.Errors)
		}
	}
	if len(d.Sessions()) != 0 {
		t.Error("no browser should launch for a malformed request")
	}
}

func TestServer_Capture_BodyTooLarge(t *testing.T) {
	t.Parallel()
	d := &testutil.DummyDriver{}
	s, err := server.NewServer(server.Config{Driver: d, Capture: fastCapture(), MaxBodyBytes: 64, Logger: &testutil.DummyLogger{}})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	body := `{"url":"https://example.com/` + strings.Repeat("a", 200) + `"}`
	rec := doJSON(t, s, "POST", "/api/capture", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "too large") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestServer_Capture_FailureIsGeneric500(t *testing.T) {
	t.Parallel()
	cases := map[string]*testutil.DummyDriver{
		"launch":     {NewSessionErr: testutil.ErrDummy},
		"navigate":   {NavigateErr: testutil.ErrDummy},
		"screenshot": {ScreenshotErr: testutil.ErrDummy},
		"panic":      {PanicOnScroll: true, ScrollHeight: 500, Images: 1},
		"not png":    {Screenshot: []byte("GIF89a")},
	}
	for name, d := range cases {
		s, logger := newTestServer(t, d)

		rec := doJSON(t, s, "POST", "/api/capture", `{"url":"https://example.com"}`)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: expected 500, got %d", name, rec.Code)
			continue
		}
		var body server.ErrorResponse
		decodeJSON(t, rec, &body)
		if body.Error != capture.GenericFailureMessage {
			t.Errorf("%s: unexpected message %q", name, body.Error)
		}
		if strings.Contains(rec.Body.String(), testutil.ErrDummy.Error()) {
			t.Errorf("%s: internal error leaked to client", name)
		}
		if logger.ErrorCount() == 0 {
			t.Errorf("%s: failure not logged", name)
		}
		if d.OpenSessions() != 0 {
			t.Errorf("%s: session left open", name)
		}
	}
}

func TestServer_Capture_Concurrent(t *testing.T) {
	t.Parallel()
	d := &testutil.DummyDriver{ScrollHeight: 300, Images: 1}
	s, _ := newTestServer(t, d)

	const n = 6
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest("POST", "/api/capture", strings.NewReader(`{"url":"https://example.com"}`))
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	for i, c := range codes {
		if c != http.StatusOK {
			t.Errorf("request %d: status %d", i, c)
		}
	}
	if got := len(d.Sessions()); got != n {
		t.Errorf("expected %d isolated sessions, got %d", n, got)
	}
	if d.OpenSessions() != 0 {
		t.Error("sessions left open")
	}
}

// ─── Request IDs ───────────────────────────────────────────────────────

func TestServer_RequestID(t *testing.T) {
	t.Parallel()
	s, logger := newTestServer(t, &testutil.DummyDriver{})

	rec := doJSON(t, s, "GET", "/healthz", "")
	id := rec.Header().Get(server.RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected a uuid request id, got %q", id)
	}
	if !logger.HasField("request_id", id) {
		t.Error("request id not attached to the log")
	}

	given := uuid.NewString()
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set(server.RequestIDHeader, given)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get(server.RequestIDHeader); got != given {
		t.Errorf("expected caller's request id %q, got %q", given, got)
	}

	req = httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set(server.RequestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get(server.RequestIDHeader); got == "<script>" {
		t.Error("malformed request id must be replaced")
	}
}
