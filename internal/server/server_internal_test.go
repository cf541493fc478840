package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raysh454/pageshot/internal/testutil"
)

func TestRecoverMiddleware_Returns500(t *testing.T) {
	t.Parallel()
	logger := &testutil.DummyLogger{}
	s, err := NewServer(Config{Driver: &testutil.DummyDriver{}, Logger: logger})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	s.router.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != internalErrorMsg {
		t.Errorf("unexpected message %q", body.Error)
	}
	if logger.ErrorCount() != 1 {
		t.Errorf("expected the panic to be logged once, got %d", logger.ErrorCount())
	}
	if !logger.HasField("panic", "kaboom") {
		t.Error("panic value not logged")
	}
}
