package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/raysh454/pageshot/internal/browser"
	"github.com/raysh454/pageshot/internal/capture"
	"github.com/raysh454/pageshot/internal/logging"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// ServiceName tags every log record.
	ServiceName = "screenshot-service"
)

// Config contains the runtime configuration of the screenshot service.
type Config struct {
	// Port is the HTTP listen port.
	Port int

	// Env is "development" or "production". Production disables console
	// logging.
	Env string

	LogLevel string

	// LogDir holds combined.log and error.log. Empty disables file logs.
	LogDir string

	Browser browser.Config
	Capture capture.Config
}

// LoadOptions tweak LoadConfig for tests and alternate deployments.
type LoadOptions struct {
	// EnvFile is read instead of the discovered .env file.
	EnvFile string
}

// DefaultConfig returns a Config populated with development defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:     3001,
		Env:      EnvDevelopment,
		LogLevel: "info",
		LogDir:   ".",
		Browser:  browser.DefaultConfig(),
		Capture:  capture.DefaultConfig(),
	}
}

// LoadConfig reads the process environment, after loading a .env file from
// the working directory or next to the executable.
func LoadConfig() (*Config, error) {
	return LoadConfigWithOptions(LoadOptions{})
}

// LoadConfigWithOptions is LoadConfig with overrides. Variables already set
// in the environment win over the .env file.
func LoadConfigWithOptions(opts LoadOptions) (*Config, error) {
	envPath := opts.EnvFile
	if envPath == "" {
		envPath = resolveEnvPath()
	}
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envPath, err)
		}
	}

	cfg := DefaultConfig()

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 0 || port > 65535 {
			return nil, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = port
	}

	cfg.Env = strings.ToLower(getEnvWithDefault("APP_ENV", cfg.Env))
	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return nil, fmt.Errorf("invalid APP_ENV %q: want %s or %s", cfg.Env, EnvDevelopment, EnvProduction)
	}
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", cfg.LogLevel)
	if v, ok := os.LookupEnv("LOG_DIR"); ok {
		cfg.LogDir = strings.TrimSpace(v)
	}

	cfg.Browser.Backend = browser.Backend(strings.ToLower(os.Getenv("BROWSER_BACKEND")))
	cfg.Browser.ExecPath = strings.TrimSpace(os.Getenv("CHROME_PATH"))
	if v := strings.TrimSpace(os.Getenv("CDP_URL")); v != "" {
		cfg.Browser.RemoteURL = v
		cfg.Browser.Backend = browser.BackendRemote
	}
	if v := os.Getenv("MAX_SCROLL_STEPS"); v != "" {
		steps, err := strconv.Atoi(v)
		if err != nil || steps < 0 {
			return nil, fmt.Errorf("invalid MAX_SCROLL_STEPS %q", v)
		}
		cfg.Capture.MaxScrollSteps = steps
	}
	if v := os.Getenv("HEADLESS"); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid HEADLESS %q: %w", v, err)
		}
		cfg.Browser.Headless = headless
	}

	return cfg, nil
}

// ListenAddr returns the address for http.Server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// LoggingOptions derives logger settings from the config.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Service: ServiceName,
		Level:   c.LogLevel,
		Console: !c.IsProduction(),
		Dir:     c.LogDir,
	}
}

func resolveEnvPath() string {
	if wd, err := os.Getwd(); err == nil {
		p := filepath.Join(wd, ".env")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	p := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

func getEnvWithDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
