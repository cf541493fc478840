package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raysh454/pageshot/internal/capture"
	"github.com/raysh454/pageshot/internal/client"
	"github.com/raysh454/pageshot/internal/logging"
)

// DeviceBoth captures every URL on every device.
const DeviceBoth = "both"

// CLIArgs are the command-line arguments of one capture run.
type CLIArgs struct {
	// Server is the base URL of the screenshot service.
	Server string

	Devices  []capture.Device
	WaitTime time.Duration

	// OutDir receives one PNG per URL and device.
	OutDir string

	// Concurrency bounds parallel captures; the server launches one
	// browser per request.
	Concurrency int

	URLs []string

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by passing
// arbitrary slices. The function is deterministic and does not read os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("pageshot-cli", flag.ContinueOnError)
	var (
		server      = fs.String("server", "http://localhost:3001", "Screenshot service base URL")
		device      = fs.String("device", "desktop", "Device: desktop|mobile|both")
		wait        = fs.Int("wait", 0, "Extra wait after scrolling, in milliseconds")
		out         = fs.String("out", ".", "Output directory")
		concurrency = fs.Int("concurrency", 2, "Parallel captures")
	)

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	devices, err := parseDevices(*device)
	if err != nil {
		return nil, err
	}
	if *wait < 0 {
		return nil, fmt.Errorf("-wait must be >= 0, got %d", *wait)
	}
	if *concurrency < 1 {
		return nil, fmt.Errorf("-concurrency must be >= 1, got %d", *concurrency)
	}

	urls := fs.Args()
	if len(urls) == 0 {
		return nil, errors.New("missing URL argument")
	}
	for _, u := range urls {
		if !client.ValidURL(u) {
			return nil, fmt.Errorf("%w: %s", client.ErrInvalidURL, u)
		}
	}

	return &CLIArgs{
		Server:      *server,
		Devices:     devices,
		WaitTime:    time.Duration(*wait) * time.Millisecond,
		OutDir:      *out,
		Concurrency: *concurrency,
		URLs:        urls,
		RawArgs:     args,
	}, nil
}

func parseDevices(s string) ([]capture.Device, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == DeviceBoth {
		return capture.Devices(), nil
	}
	d := capture.Device(s)
	if !d.Valid() {
		return nil, fmt.Errorf("-device must be desktop, mobile or both, got %q", s)
	}
	return []capture.Device{d}, nil
}

// Result is one written screenshot.
type Result struct {
	URL    string
	Device capture.Device
	Path   string
	Bytes  int
}

// Run captures every URL on every requested device and writes the images
// to args.OutDir. It keeps going after a failed capture and returns the
// joined errors at the end.
func Run(ctx context.Context, args *CLIArgs, c *client.Client, logger logging.Logger) ([]Result, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	if err := os.MkdirAll(args.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	type job struct {
		url    string
		device capture.Device
	}
	var jobs []job
	for _, u := range args.URLs {
		for _, d := range args.Devices {
			jobs = append(jobs, job{url: u, device: d})
		}
	}

	results := make([]Result, len(jobs))
	errs := make([]error, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(args.Concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			img, err := c.Capture(gctx, j.url, j.device)
			if err != nil {
				logger.Error("capture failed",
					logging.Field{Key: "url", Value: j.url},
					logging.Field{Key: "device", Value: string(j.device)},
					logging.Err(err))
				errs[i] = fmt.Errorf("%s (%s): %w", j.url, j.device, err)
				return nil
			}
			path := filepath.Join(args.OutDir, FileName(j.url, j.device))
			if err := os.WriteFile(path, img, 0o644); err != nil {
				// Disk errors affect every job; stop early.
				return fmt.Errorf("write %s: %w", path, err)
			}
			logger.Info("wrote screenshot",
				logging.Field{Key: "url", Value: j.url},
				logging.Field{Key: "path", Value: path},
				logging.Field{Key: "bytes", Value: len(img)})
			results[i] = Result{URL: j.url, Device: j.device, Path: path, Bytes: len(img)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := results[:0]
	for _, r := range results {
		if r.Path != "" {
			out = append(out, r)
		}
	}
	return out, errors.Join(errs...)
}

// FileName derives a stable, filesystem-safe name for a capture.
func FileName(url string, device capture.Device) string {
	s := url
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), "._-")
	if len(name) > 120 {
		name = name[:120]
	}
	if name == "" {
		name = "screenshot"
	}
	return name + "-" + string(device) + ".png"
}
