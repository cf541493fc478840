package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/raysh454/pageshot/internal/capture"
	"github.com/raysh454/pageshot/internal/logging"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const (
	defaultMaxBodyBytes = 1 << 20
	maxLoggedBody       = 2048
	internalErrorMsg    = "internal server error, please try again later"
)

// Server is the HTTP + WebSocket API surface of the screenshot service.
type Server struct {
	cfg          Config
	orchestrator *capture.Orchestrator
	router       chi.Router
	upgrader     websocket.Upgrader
	logger       logging.Logger
}

// NewServer creates a new Server with its own capture orchestrator.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Driver == nil {
		return nil, errors.New("server: browser driver is required")
	}
	if cfg.Capture == (capture.Config{}) {
		cfg.Capture = capture.DefaultConfig()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("server")
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:          cfg,
		orchestrator: capture.NewOrchestrator(cfg.Capture, cfg.Driver, logger),
		router:       r,
		logger:       logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// The REST endpoint is open to any origin as well.
				return true
			},
		},
	}

	s.routes()
	return s, nil
}

// Orchestrator returns the underlying orchestrator for advanced use (tests, etc.).
func (s *Server) Orchestrator() *capture.Orchestrator {
	return s.orchestrator
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.recoverMiddleware)
	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/capture", s.optionsHandler("POST"))
	r.Options("/ws/capture", s.optionsHandler("GET"))

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Post("/api/capture", s.handleCapture)
	r.Get("/ws/capture", s.handleCaptureWS)
	r.Get("/swagger/*", s.swaggerHandler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
		w.WriteHeader(http.StatusNoContent)
	}
}

// recoverMiddleware turns a handler panic into a generic 500.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			requestLogger(r.Context(), s.logger).Error("panic serving request",
				logging.Field{Key: "panic", Value: fmt.Sprint(rec)},
				logging.Field{Key: "stack", Value: string(debug.Stack())})
			writeError(w, http.StatusInternalServerError, internalErrorMsg)
		}()
		next.ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)

	log := s.logger.With(logging.Field{Key: "request_id", Value: id})
	r = r.WithContext(withLogger(r.Context(), log))

	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			logged := bodyBytes
			if len(logged) > maxLoggedBody {
				logged = logged[:maxLoggedBody]
			}
			fields = append(fields, logging.Field{Key: "body", Value: string(logged)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		} else {
			r.Body = io.NopCloser(errReader{err})
		}
	}

	log.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // captures can take minutes
	}
}

// --- request-scoped logger ---

type loggerKey struct{}

func withLogger(ctx context.Context, l logging.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func requestLogger(ctx context.Context, fallback logging.Logger) logging.Logger {
	if l, ok := ctx.Value(loggerKey{}).(logging.Logger); ok {
		return l
	}
	return fallback
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeValidation(w http.ResponseWriter, errs capture.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{Errors: errs})
}
