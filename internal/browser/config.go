package browser

import "time"

type Backend string

const (
	BackendChromedp Backend = "chromedp"
	BackendRemote   Backend = "remote"
)

// Config selects and tunes the browser backend.
type Config struct {
	// Backend names a registered backend. Empty picks remote when
	// RemoteURL is set and chromedp otherwise.
	Backend Backend

	// ExecPath overrides Chrome discovery for the chromedp backend.
	ExecPath string

	// RemoteURL is a DevTools endpoint (http://host:9222 or ws://...) for
	// the remote backend.
	RemoteURL string

	// Headless is true for production; false opens a visible window.
	Headless bool

	// CloseTimeout bounds the graceful browser shutdown in Session.Close.
	CloseTimeout time.Duration
}

// DefaultConfig returns a headless local chromedp configuration.
func DefaultConfig() Config {
	return Config{
		Backend:      BackendChromedp,
		Headless:     true,
		CloseTimeout: 10 * time.Second,
	}
}
