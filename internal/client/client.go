// Package client talks to the screenshot service over HTTP and keeps a
// volatile in-memory cache of captured images keyed by URL and device.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/raysh454/pageshot/internal/capture"
	"github.com/raysh454/pageshot/internal/logging"
)

// CapturePath is the service endpoint used by Capture.
const CapturePath = "/api/capture"

// ErrInvalidURL is returned before any request is made.
var ErrInvalidURL = errors.New("please enter a valid URL")

var urlPattern = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)

// StatusError carries the body of a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("capture failed (%d): %s", e.StatusCode, body)
}

// Options configures a Client.
type Options struct {
	// BaseURL of the service, e.g. http://localhost:3001.
	BaseURL string

	// HTTPClient defaults to a client with a 3 minute timeout, which covers
	// the server's navigation timeout plus scrolling.
	HTTPClient *http.Client

	// WaitTime is sent as the extra settle delay with every request.
	WaitTime time.Duration

	Logger logging.Logger
}

// Client captures screenshots through the service.
type Client struct {
	base     string
	http     *http.Client
	waitTime time.Duration
	logger   logging.Logger

	group singleflight.Group

	mu    sync.Mutex
	cache map[string][]byte
}

// New returns a Client for opts.BaseURL.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if !urlPattern.MatchString(base) {
		return nil, fmt.Errorf("invalid service URL %q", opts.BaseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 3 * time.Minute}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Client{
		base:     base,
		http:     hc,
		waitTime: opts.WaitTime,
		logger:   logger.With(logging.Field{Key: "component", Value: "client"}),
		cache:    make(map[string][]byte),
	}, nil
}

// CacheKey identifies a cached capture.
func CacheKey(url string, device capture.Device) string {
	return url + "-" + string(device)
}

// ValidURL applies the client-side URL check.
func ValidURL(url string) bool {
	return urlPattern.MatchString(url)
}

// Capture returns the PNG for url on device, from the cache when this
// client has captured it before. Concurrent calls for the same key share
// one request, which outlives any single caller's ctx. The returned slice
// is the caller's own copy.
func (c *Client) Capture(ctx context.Context, url string, device capture.Device) ([]byte, error) {
	if !ValidURL(url) {
		return nil, ErrInvalidURL
	}
	if device == "" {
		device = capture.DeviceDesktop
	}
	key := CacheKey(url, device)

	if img, ok := c.cached(key); ok {
		c.logger.Debug("cache hit", logging.Field{Key: "key", Value: key})
		return bytes.Clone(img), nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if img, ok := c.cached(key); ok {
			return img, nil
		}
		img, err := c.fetch(shared, url, device)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[key] = img
		c.mu.Unlock()
		return img, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return bytes.Clone(res.Val.([]byte)), nil
	}
}

func (c *Client) cached(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.cache[key]
	return img, ok
}

type captureBody struct {
	URL      string `json:"url"`
	Device   string `json:"device"`
	WaitTime int64  `json:"waitTime,omitempty"`
}

func (c *Client) fetch(ctx context.Context, url string, device capture.Device) ([]byte, error) {
	payload, err := json.Marshal(captureBody{
		URL:      url,
		Device:   string(device),
		WaitTime: c.waitTime.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+CapturePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("requesting screenshot",
		logging.Field{Key: "url", Value: url},
		logging.Field{Key: "device", Value: string(device)})

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("screenshot request failed", logging.Field{Key: "url", Value: url}, logging.Err(err))
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// Len returns the number of cached captures.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Clear empties the cache.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.cache)
}

// DownloadName is the file name offered for a capture taken at t.
func DownloadName(t time.Time) string {
	return "screenshot-" + t.UTC().Format("2006-01-02T15:04:05.000Z07:00") + ".png"
}
