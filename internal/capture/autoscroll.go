package capture

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultScrollStep     = 100
	DefaultScrollInterval = 200 * time.Millisecond
)

// StopReason says which predicate ended an auto-scroll.
type StopReason string

const (
	StopHeightReached StopReason = "height-reached"
	StopImagesLoaded  StopReason = "images-loaded"
	StopStepLimit     StopReason = "step-limit"
)

// Scroller is the part of a Session the auto-scroll loop needs.
type Scroller interface {
	ScrollBy(ctx context.Context, dy int) error
	Metrics(ctx context.Context) (PageMetrics, error)
}

// ScrollOptions tunes AutoScroll. Zero values take the defaults.
type ScrollOptions struct {
	Step     int
	Interval time.Duration

	// MaxSteps stops the loop after this many ticks. Zero means no limit;
	// the height predicate alone bounds the loop for a finite document.
	MaxSteps int
}

// ScrollResult summarizes one auto-scroll run.
type ScrollResult struct {
	Steps    int
	Distance int
	Reason   StopReason
	Last     PageMetrics
}

// heightReached is true once the accumulated distance covers the document.
func heightReached(distance int, m PageMetrics) bool {
	return distance >= m.ScrollHeight
}

// imagesLoaded is true when every image in the document has materialized.
// Intentionally zero-height images never count as loaded.
func imagesLoaded(m PageMetrics) bool {
	return m.AllImagesLoaded()
}

// AutoScroll advances the page by opts.Step pixels on every tick of
// opts.Interval until the accumulated distance reaches the document height
// or all images report loaded. Lazy content gets a chance to load before
// the final capture.
func AutoScroll(ctx context.Context, s Scroller, opts ScrollOptions) (ScrollResult, error) {
	if opts.Step <= 0 {
		opts.Step = DefaultScrollStep
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultScrollInterval
	}

	var res ScrollResult
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-ticker.C:
		}

		if err := s.ScrollBy(ctx, opts.Step); err != nil {
			return res, fmt.Errorf("scroll step %d: %w", res.Steps+1, err)
		}
		res.Steps++
		res.Distance += opts.Step

		m, err := s.Metrics(ctx)
		if err != nil {
			return res, fmt.Errorf("reading page metrics: %w", err)
		}
		res.Last = m

		switch {
		case heightReached(res.Distance, m):
			res.Reason = StopHeightReached
			return res, nil
		case imagesLoaded(m):
			res.Reason = StopImagesLoaded
			return res, nil
		case opts.MaxSteps > 0 && res.Steps >= opts.MaxSteps:
			res.Reason = StopStepLimit
			return res, nil
		}
	}
}
