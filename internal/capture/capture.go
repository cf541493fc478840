// Package capture orchestrates a single full-page screenshot: it launches a
// fresh browser session, emulates the requested device, waits for the page
// to settle, scrolls through it so lazy content loads, and captures a PNG.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raysh454/pageshot/internal/logging"
)

// ContentTypePNG is the content type of every capture.
const ContentTypePNG = "image/png"

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Config holds the timing knobs of the capture lifecycle.
type Config struct {
	// NavigationTimeout bounds navigation plus the network-idle wait.
	NavigationTimeout time.Duration

	// IdleConnections and IdleQuiet define network idle.
	IdleConnections int
	IdleQuiet       time.Duration

	ScrollStep     int
	ScrollInterval time.Duration
	MaxScrollSteps int

	// MaxWaitTime clamps the caller's extra wait.
	MaxWaitTime time.Duration
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		NavigationTimeout: 120 * time.Second,
		IdleConnections:   0,
		IdleQuiet:         500 * time.Millisecond,
		ScrollStep:        DefaultScrollStep,
		ScrollInterval:    DefaultScrollInterval,
		MaxScrollSteps:    0,
		MaxWaitTime:       60 * time.Second,
	}
}

// CaptureResult is a finished screenshot.
type CaptureResult struct {
	Image       []byte
	ContentType string
	Device      Device
	Viewport    Viewport
	Scroll      ScrollResult
	Duration    time.Duration
}

// ProgressFunc observes stage transitions. It is called synchronously from
// the capturing goroutine.
type ProgressFunc func(Stage)

// Orchestrator runs captures. It holds no per-request state, so one value
// serves any number of concurrent captures.
type Orchestrator struct {
	cfg    Config
	driver Driver
	logger logging.Logger
}

// NewOrchestrator ties together config, driver and logger.
func NewOrchestrator(cfg Config, driver Driver, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Orchestrator{
		cfg:    cfg,
		driver: driver,
		logger: logger.With(logging.Field{Key: "component", Value: "capture"}),
	}
}

// Capture runs the full lifecycle for req.
func (o *Orchestrator) Capture(ctx context.Context, req *CaptureRequest) (*CaptureResult, error) {
	return o.CaptureWithProgress(ctx, req, nil)
}

// CaptureWithProgress is Capture with a stage observer. The browser session
// is closed on every return path, panics included.
func (o *Orchestrator) CaptureWithProgress(ctx context.Context, req *CaptureRequest, progress ProgressFunc) (res *CaptureResult, err error) {
	if verrs := req.Validate(); len(verrs) > 0 {
		return nil, verrs
	}

	profile := ProfileFor(req.Device)
	log := o.logger.With(
		logging.Field{Key: "url", Value: req.URL},
		logging.Field{Key: "device", Value: string(profile.Name)},
		logging.Field{Key: "wait_time_ms", Value: req.WaitTime.Milliseconds()},
	)
	log.Info("received screenshot request")

	stage := StageLaunch
	report := func(s Stage) {
		stage = s
		if progress != nil {
			progress(s)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &Error{Stage: stage, URL: req.URL, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			log.Error("error capturing screenshot", logging.Field{Key: "stage", Value: string(stage)}, logging.Err(err))
		}
	}()

	start := time.Now()
	report(StageLaunch)
	sess, err := o.driver.NewSession(ctx)
	if err != nil {
		return nil, &Error{Stage: StageLaunch, URL: req.URL, Err: err}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("closing browser session", logging.Err(cerr))
		}
	}()

	img, scroll, err := o.run(ctx, sess, req, profile, report, log)
	if err != nil {
		return nil, &Error{Stage: stage, URL: req.URL, Err: err}
	}

	report(StageDone)
	res = &CaptureResult{
		Image:       img,
		ContentType: ContentTypePNG,
		Device:      profile.Name,
		Viewport:    profile.Viewport,
		Scroll:      scroll,
		Duration:    time.Since(start),
	}
	log.Info("successfully captured screenshot",
		logging.Field{Key: "bytes", Value: len(img)},
		logging.Field{Key: "duration_ms", Value: res.Duration.Milliseconds()})
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, sess Session, req *CaptureRequest, profile DeviceProfile, report func(Stage), log logging.Logger) ([]byte, ScrollResult, error) {
	var scroll ScrollResult

	report(StageConfigure)
	if err := sess.SetViewport(ctx, profile.Viewport); err != nil {
		return nil, scroll, fmt.Errorf("setting viewport: %w", err)
	}
	if profile.UserAgent != "" {
		if err := sess.SetUserAgent(ctx, profile.UserAgent); err != nil {
			return nil, scroll, fmt.Errorf("setting user agent: %w", err)
		}
	}

	report(StageNavigate)
	if err := o.navigate(ctx, sess, req.URL); err != nil {
		return nil, scroll, err
	}

	report(StageScroll)
	scroll, err := AutoScroll(ctx, sess, ScrollOptions{
		Step:     o.cfg.ScrollStep,
		Interval: o.cfg.ScrollInterval,
		MaxSteps: o.cfg.MaxScrollSteps,
	})
	if err != nil {
		return nil, scroll, fmt.Errorf("auto-scrolling: %w", err)
	}
	log.Debug("auto-scroll finished",
		logging.Field{Key: "steps", Value: scroll.Steps},
		logging.Field{Key: "distance", Value: scroll.Distance},
		logging.Field{Key: "reason", Value: string(scroll.Reason)})

	if wait := o.extraWait(req.WaitTime, log); wait > 0 {
		report(StageWait)
		if err := sleep(ctx, wait); err != nil {
			return nil, scroll, fmt.Errorf("waiting %s: %w", wait, err)
		}
	}

	report(StageCapture)
	if err := sess.ScrollTo(ctx, 0, 0); err != nil {
		return nil, scroll, fmt.Errorf("scrolling to top: %w", err)
	}
	img, err := sess.FullScreenshot(ctx)
	if err != nil {
		return nil, scroll, fmt.Errorf("taking screenshot: %w", err)
	}
	if !bytes.HasPrefix(img, pngSignature) {
		return nil, scroll, ErrNotPNG
	}
	return img, scroll, nil
}

func (o *Orchestrator) navigate(ctx context.Context, sess Session, url string) error {
	timeout := o.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().NavigationTimeout
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := sess.Navigate(navCtx, url, IdleOptions{
		MaxInflight: o.cfg.IdleConnections,
		Quiet:       o.cfg.IdleQuiet,
	})
	if err == nil {
		return nil
	}
	if errors.Is(navCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w after %s: %w", ErrNavigationTimeout, timeout, err)
	}
	return fmt.Errorf("navigating: %w", err)
}

func (o *Orchestrator) extraWait(requested time.Duration, log logging.Logger) time.Duration {
	if requested <= 0 {
		return 0
	}
	if o.cfg.MaxWaitTime > 0 && requested > o.cfg.MaxWaitTime {
		log.Warn("clamping wait time",
			logging.Field{Key: "requested_ms", Value: requested.Milliseconds()},
			logging.Field{Key: "max_ms", Value: o.cfg.MaxWaitTime.Milliseconds()})
		return o.cfg.MaxWaitTime
	}
	return requested
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
