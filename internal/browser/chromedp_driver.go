package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/raysh454/pageshot/internal/capture"
	"github.com/raysh454/pageshot/internal/logging"
)

// ErrSessionClosed is returned by session methods after Close.
var ErrSessionClosed = errors.New("browser session closed")

// ChromeDPDriver launches one Chrome per session through chromedp.
type ChromeDPDriver struct {
	cfg    Config
	logger logging.Logger

	allocate func(ctx context.Context) (context.Context, context.CancelFunc)
}

// NewChromeDPDriver returns a driver that starts a local Chrome process for
// every session.
func NewChromeDPDriver(cfg Config, logger logging.Logger) (*ChromeDPDriver, error) {
	if cfg.ExecPath != "" {
		if _, err := os.Stat(cfg.ExecPath); err != nil {
			return nil, fmt.Errorf("chrome executable %s: %w", cfg.ExecPath, err)
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	d := &ChromeDPDriver{
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "backend", Value: string(BackendChromedp)}),
	}
	d.allocate = func(ctx context.Context) (context.Context, context.CancelFunc) {
		return chromedp.NewExecAllocator(ctx, opts...)
	}
	return d, nil
}

// NewRemoteDriver returns a driver that opens a fresh DevTools connection
// and tab on a running browser for every session.
func NewRemoteDriver(cfg Config, logger logging.Logger) (*ChromeDPDriver, error) {
	if cfg.RemoteURL == "" {
		return nil, errors.New("remote backend requires a DevTools URL")
	}
	d := &ChromeDPDriver{
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "backend", Value: string(BackendRemote)}),
	}
	d.allocate = func(ctx context.Context) (context.Context, context.CancelFunc) {
		return chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	}
	return d, nil
}

// NewSession starts a browser and opens its first tab. The browser's
// lifetime is tied to the returned session, not to ctx; ctx only bounds
// the startup.
func (d *ChromeDPDriver) NewSession(ctx context.Context) (capture.Session, error) {
	allocCtx, cancelAlloc := d.allocate(context.WithoutCancel(ctx))
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(d.logf),
		chromedp.WithErrorf(d.logf),
	)

	s := &chromeSession{
		ctx:          tabCtx,
		cancelTab:    cancelTab,
		cancelAlloc:  cancelAlloc,
		closeTimeout: d.cfg.CloseTimeout,
		logger:       d.logger,
	}

	// The first Run allocates the browser and must use the undecorated tab
	// context; a deadline here would kill the browser when it expires.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx, network.Enable()) }()

	select {
	case err := <-started:
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("starting browser: %w", err)
		}
	case <-ctx.Done():
		s.Close()
		return nil, fmt.Errorf("starting browser: %w", ctx.Err())
	}

	d.logger.Debug("browser session started")
	return s, nil
}

func (d *ChromeDPDriver) logf(format string, args ...any) {
	d.logger.Debug("chromedp", logging.Field{Key: "detail", Value: fmt.Sprintf(format, args...)})
}

type chromeSession struct {
	ctx          context.Context
	cancelTab    context.CancelFunc
	cancelAlloc  context.CancelFunc
	closeTimeout time.Duration
	logger       logging.Logger

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
	mu        sync.Mutex
}

// derive returns a context that carries the tab and is canceled when the
// caller's ctx is done.
func (s *chromeSession) derive(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	runCtx, cancel := s.derive(ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
		return err
	}
	return nil
}

func (s *chromeSession) SetViewport(ctx context.Context, vp capture.Viewport) error {
	return s.run(ctx,
		emulation.SetDeviceMetricsOverride(int64(vp.Width), int64(vp.Height), 1, vp.Mobile),
	)
}

func (s *chromeSession) SetUserAgent(ctx context.Context, ua string) error {
	return s.run(ctx, emulation.SetUserAgentOverride(ua))
}

// Navigate loads url and then waits for network idle.
func (s *chromeSession) Navigate(ctx context.Context, url string, idle capture.IdleOptions) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	runCtx, cancel := s.derive(ctx)
	defer cancel()

	w := newIdleWatcher(idle.MaxInflight, idle.Quiet)
	defer w.stop()
	chromedp.ListenTarget(runCtx, w.handle)

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: navigate %s: %w", ctxErr, url, err)
		}
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	w.arm()

	select {
	case <-w.Idle():
		return nil
	case <-runCtx.Done():
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("waiting for network idle (%d requests pending): %w", w.Inflight(), ctxErr)
		}
		return fmt.Errorf("waiting for network idle: %w", runCtx.Err())
	}
}

func (s *chromeSession) ScrollBy(ctx context.Context, dy int) error {
	return s.run(ctx, chromedp.Evaluate(fmt.Sprintf(scrollByScript, dy), nil))
}

func (s *chromeSession) ScrollTo(ctx context.Context, x, y int) error {
	return s.run(ctx, chromedp.Evaluate(fmt.Sprintf(scrollToScript, x, y), nil))
}

func (s *chromeSession) Metrics(ctx context.Context) (capture.PageMetrics, error) {
	var m capture.PageMetrics
	err := s.run(ctx, chromedp.Evaluate(metricsScript, &m))
	return m, err
}

// FullScreenshot captures the entire document; quality 100 selects PNG.
func (s *chromeSession) FullScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *chromeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed != nil
}

// Close shuts the browser down gracefully, then cancels the allocator so
// the process is killed if it did not exit in time.
func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = make(chan struct{})
		s.mu.Unlock()

		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.ctx) }()

		timeout := s.closeTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.closeErr = fmt.Errorf("closing browser: %w", err)
			}
		case <-time.After(timeout):
			s.closeErr = fmt.Errorf("closing browser: timed out after %s", timeout)
		}

		s.cancelTab()
		s.cancelAlloc()
		close(s.closed)
		s.logger.Debug("browser session closed")
	})
	return s.closeErr
}

// FindChrome returns the first Chrome or Chromium binary found through
// CHROME_PATH or PATH, or "" when none is installed.
func FindChrome() string {
	if p := os.Getenv("CHROME_PATH"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, name := range []string{
		"google-chrome",
		"google-chrome-stable",
		"chromium",
		"chromium-browser",
		"headless-shell",
		"chrome",
	} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}
