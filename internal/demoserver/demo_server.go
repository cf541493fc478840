package demoserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/raysh454/pageshot/internal/logging"
)

// DemoServer serves pages that exercise lazy loading, tall documents and
// slow responses.
type DemoServer struct {
	cfg    Config
	pages  []PageDefinition
	logger logging.Logger

	mu     sync.Mutex
	images map[int][]byte
}

// NewDemoServer creates a new demo server instance.
func NewDemoServer(cfg Config, logger logging.Logger) *DemoServer {
	def := DefaultConfig()
	if cfg.Images <= 0 {
		cfg.Images = def.Images
	}
	if cfg.ImageSize <= 0 {
		cfg.ImageSize = def.ImageSize
	}
	if cfg.TallHeight <= 0 {
		cfg.TallHeight = def.TallHeight
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &DemoServer{
		cfg:    cfg,
		pages:  GetAllPages(),
		logger: logger.With(logging.Field{Key: "component", Value: "demoserver"}),
		images: make(map[int][]byte),
	}
}

// Handler returns the routed fixture site.
func (s *DemoServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.pageHandler(0))
	mux.HandleFunc("GET /lazy", s.pageHandler(1))
	mux.HandleFunc("GET /tall", s.pageHandler(2))
	mux.HandleFunc("GET /slow", s.slowHandler)
	mux.HandleFunc("GET /img/{name}", s.imageHandler)
	return mux
}

// Start listens on the configured port until ctx is canceled.
func (s *DemoServer) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	s.logger.Info("demo server listening", logging.Field{Key: "addr", Value: ln.Addr().String()})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *DemoServer) data(title string) pageData {
	images := make([]int, s.cfg.Images)
	for i := range images {
		images[i] = i + 1
	}
	return pageData{
		Title:      title,
		Pages:      s.pages,
		Images:     images,
		ImageSize:  s.cfg.ImageSize,
		TallHeight: s.cfg.TallHeight,
	}
}

func (s *DemoServer) pageHandler(idx int) http.HandlerFunc {
	page := s.pages[idx]
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, page, s.data(page.Description))
	}
}

func (s *DemoServer) render(w http.ResponseWriter, page PageDefinition, data pageData) {
	var buf bytes.Buffer
	if err := page.tmpl.Execute(&buf, data); err != nil {
		s.logger.Error("render page", logging.Field{Key: "path", Value: page.Path}, logging.Err(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// slowHandler delays its response by ?ms=, capped at MaxDelay.
func (s *DemoServer) slowHandler(w http.ResponseWriter, r *http.Request) {
	ms := 0
	if v := r.URL.Query().Get("ms"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid ms", http.StatusBadRequest)
			return
		}
		ms = n
	}
	delay := time.Duration(ms) * time.Millisecond
	if delay > s.cfg.MaxDelay {
		delay = s.cfg.MaxDelay
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-r.Context().Done():
		return
	}

	data := s.data(s.pages[3].Description)
	data.Delay = int(delay / time.Millisecond)
	s.render(w, s.pages[3], data)
}

// imageHandler serves /img/{n}.png as a generated solid block.
func (s *DemoServer) imageHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var n int
	if _, err := fmt.Sscanf(name, "%d.png", &n); err != nil || n < 1 || fmt.Sprintf("%d.png", n) != name {
		http.NotFound(w, r)
		return
	}

	img, err := s.image(n)
	if err != nil {
		s.logger.Error("encode image", logging.Field{Key: "n", Value: n}, logging.Err(err))
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(img)
}

func (s *DemoServer) image(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.images[n]; ok {
		return b, nil
	}

	size := s.cfg.ImageSize
	img := image.NewRGBA(image.Rect(0, 0, size, size/2))
	c := color.RGBA{R: uint8(40 * n), G: uint8(255 - 20*n), B: 0xdd, A: 0xff}
	for y := 0; y < size/2; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	s.images[n] = buf.Bytes()
	return s.images[n], nil
}
