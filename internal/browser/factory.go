package browser

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/raysh454/pageshot/internal/capture"
	"github.com/raysh454/pageshot/internal/logging"
)

// ErrUnknownBackend is returned by NewDriver for unregistered backends.
var ErrUnknownBackend = errors.New("unknown browser backend")

// BackendConstructor builds a capture.Driver from the browser config.
type BackendConstructor func(cfg Config, logger logging.Logger) (capture.Driver, error)

var (
	mu       sync.RWMutex
	backends = map[Backend]BackendConstructor{}
)

func init() {
	RegisterDefaultBackends()
}

// RegisterBackend registers a named backend constructor. Registering the
// same name twice replaces the earlier constructor.
func RegisterBackend(name Backend, ctor BackendConstructor) {
	name = Backend(strings.ToLower(strings.TrimSpace(string(name))))
	if name == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	backends[name] = ctor
}

// RegisterDefaultBackends registers the chromedp and remote backends.
func RegisterDefaultBackends() {
	RegisterBackend(BackendChromedp, func(cfg Config, logger logging.Logger) (capture.Driver, error) {
		if cfg.ExecPath == "" {
			cfg.ExecPath = FindChrome()
		}
		return NewChromeDPDriver(cfg, logger)
	})
	RegisterBackend(BackendRemote, func(cfg Config, logger logging.Logger) (capture.Driver, error) {
		return NewRemoteDriver(cfg, logger)
	})
}

// NewDriver constructs the configured backend.
func NewDriver(cfg Config, logger logging.Logger) (capture.Driver, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	name := Backend(strings.ToLower(strings.TrimSpace(string(cfg.Backend))))
	if name == "" {
		name = BackendChromedp
		if cfg.RemoteURL != "" {
			name = BackendRemote
		}
	}

	mu.RLock()
	ctor, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q: available backends=%v", ErrUnknownBackend, name, ListBackends())
	}

	d, err := ctor(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("construct browser backend %q: %w", name, err)
	}
	if d == nil {
		return nil, errors.New("browser backend constructor returned nil")
	}
	logger.Info("browser backend ready", logging.Field{Key: "backend", Value: string(name)})
	return d, nil
}

// ListBackends returns the registered backend names in sorted order.
func ListBackends() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(backends))
	for k := range backends {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}
