package capture

import (
	"context"
	"time"
)

// Driver launches isolated browser sessions. Each call to NewSession must
// start a browser that shares nothing with other sessions.
type Driver interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session is one browser with a single open page. Close must be safe to
// call more than once and must release the browser process.
type Session interface {
	SetViewport(ctx context.Context, vp Viewport) error
	SetUserAgent(ctx context.Context, ua string) error

	// Navigate loads url and returns once the network has been idle for
	// idle.Quiet, or ctx is done.
	Navigate(ctx context.Context, url string, idle IdleOptions) error

	ScrollBy(ctx context.Context, dy int) error
	ScrollTo(ctx context.Context, x, y int) error
	Metrics(ctx context.Context) (PageMetrics, error)

	// FullScreenshot captures the whole scrollable document as PNG.
	FullScreenshot(ctx context.Context) ([]byte, error)

	Close() error
}

// IdleOptions defines when navigation counts as finished: no more than
// MaxInflight requests pending for a continuous Quiet interval.
type IdleOptions struct {
	MaxInflight int
	Quiet       time.Duration
}

// PageMetrics is one observation of the document taken during auto-scroll.
type PageMetrics struct {
	ScrollHeight int `json:"scrollHeight"`
	Images       int `json:"images"`
	LoadedImages int `json:"loadedImages"`
}

// AllImagesLoaded reports whether every image is complete with a non-zero
// natural height. A document without images counts as loaded.
func (m PageMetrics) AllImagesLoaded() bool {
	return m.LoadedImages >= m.Images
}
