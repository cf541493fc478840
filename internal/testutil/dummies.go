// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without a real browser.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"reflect"
	"sync"
	"time"

	"github.com/raysh454/pageshot/internal/capture"
	"github.com/raysh454/pageshot/internal/logging"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
	Fields []logging.Field
}

func (l *DummyLogger) record(dst *[]string, msg string, fields []logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*dst = append(*dst, msg)
	l.Fields = append(l.Fields, fields...)
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) { l.record(&l.Debugs, msg, fields) }
func (l *DummyLogger) Info(msg string, fields ...logging.Field)  { l.record(&l.Infos, msg, fields) }
func (l *DummyLogger) Warn(msg string, fields ...logging.Field)  { l.record(&l.Warns, msg, fields) }
func (l *DummyLogger) Error(msg string, fields ...logging.Field) { l.record(&l.Errors, msg, fields) }

func (l *DummyLogger) With(fields ...logging.Field) logging.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Fields = append(l.Fields, fields...)
	return l
}

// ErrorCount returns the number of error records so far.
func (l *DummyLogger) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Errors)
}

// HasField reports whether any record or With call carried key=value.
func (l *DummyLogger) HasField(key string, value any) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.Fields {
		if f.Key != key {
			continue
		}
		if t := reflect.TypeOf(f.Value); t != nil && !t.Comparable() {
			continue
		}
		if f.Value == value {
			return true
		}
	}
	return false
}

// ─── PNG ───────────────────────────────────────────────────────────────

// TinyPNG returns a valid w×h PNG filled with a single color.
func TinyPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 0x3d, G: 0x63, B: 0xdd, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// ─── Browser driver ────────────────────────────────────────────────────

// ErrDummy is the error injected by the dummy driver's failure switches.
var ErrDummy = errors.New("dummy driver failure")

// DummyDriver implements capture.Driver. Each session simulates a document
// of ScrollHeight pixels holding Images images, LoadedImages of which are
// loaded up front; once the scroll position reaches LoadImagesAt (when > 0)
// all images report loaded.
type DummyDriver struct {
	NewSessionErr error
	NavigateErr   error
	NavigateDelay time.Duration
	ViewportErr   error
	ScreenshotErr error
	Screenshot    []byte
	PanicOnScroll bool

	ScrollHeight int
	Images       int
	LoadedImages int
	LoadImagesAt int

	mu       sync.Mutex
	sessions []*DummySession
}

func (d *DummyDriver) NewSession(ctx context.Context) (capture.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.NewSessionErr != nil {
		return nil, d.NewSessionErr
	}
	s := &DummySession{driver: d}
	d.mu.Lock()
	d.sessions = append(d.sessions, s)
	d.mu.Unlock()
	return s, nil
}

// Sessions returns every session created so far.
func (d *DummyDriver) Sessions() []*DummySession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*DummySession(nil), d.sessions...)
}

// OpenSessions counts sessions that were never closed.
func (d *DummyDriver) OpenSessions() int {
	n := 0
	for _, s := range d.Sessions() {
		if s.CloseCount() == 0 {
			n++
		}
	}
	return n
}

// DummySession records every call made on it.
type DummySession struct {
	driver *DummyDriver

	mu           sync.Mutex
	Calls        []string
	Viewport     *capture.Viewport
	UserAgent    string
	URL          string
	Idle         capture.IdleOptions
	ScrollY      int
	ScrollSteps  int
	MetricsCalls int
	closed       int
}

func (s *DummySession) call(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, name)
}

func (s *DummySession) SetViewport(_ context.Context, vp capture.Viewport) error {
	s.call("SetViewport")
	if s.driver.ViewportErr != nil {
		return s.driver.ViewportErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Viewport = &vp
	return nil
}

func (s *DummySession) SetUserAgent(_ context.Context, ua string) error {
	s.call("SetUserAgent")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserAgent = ua
	return nil
}

func (s *DummySession) Navigate(ctx context.Context, url string, idle capture.IdleOptions) error {
	s.call("Navigate")
	s.mu.Lock()
	s.URL = url
	s.Idle = idle
	s.mu.Unlock()

	if d := s.driver.NavigateDelay; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.driver.NavigateErr
}

func (s *DummySession) ScrollBy(_ context.Context, dy int) error {
	s.call("ScrollBy")
	if s.driver.PanicOnScroll {
		panic("dummy scroll panic")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ScrollY += dy
	s.ScrollSteps++
	return nil
}

func (s *DummySession) ScrollTo(_ context.Context, _, y int) error {
	s.call("ScrollTo")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ScrollY = y
	return nil
}

func (s *DummySession) Metrics(_ context.Context) (capture.PageMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MetricsCalls++
	loaded := s.driver.LoadedImages
	if s.driver.LoadImagesAt > 0 && s.ScrollY >= s.driver.LoadImagesAt {
		loaded = s.driver.Images
	}
	return capture.PageMetrics{
		ScrollHeight: s.driver.ScrollHeight,
		Images:       s.driver.Images,
		LoadedImages: loaded,
	}, nil
}

func (s *DummySession) FullScreenshot(_ context.Context) ([]byte, error) {
	s.call("FullScreenshot")
	if s.driver.ScreenshotErr != nil {
		return nil, s.driver.ScreenshotErr
	}
	if s.driver.Screenshot != nil {
		return s.driver.Screenshot, nil
	}
	return TinyPNG(4, 4), nil
}

func (s *DummySession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// CloseCount reports how many times Close was called.
func (s *DummySession) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// CallLog returns a copy of the recorded call names.
func (s *DummySession) CallLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Calls...)
}
