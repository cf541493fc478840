package demoserver

import "time"

// Config holds configuration for the fixture site.
type Config struct {
	// Port is the port on which the demo server listens.
	Port int

	// Images is the number of lazy images on /lazy.
	Images int

	// ImageSize is the edge length of each generated image in pixels.
	ImageSize int

	// TallHeight is the document height of /tall in pixels.
	TallHeight int

	// MaxDelay caps the ?ms= parameter of /slow.
	MaxDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:       9999,
		Images:     12,
		ImageSize:  400,
		TallHeight: 6000,
		MaxDelay:   30 * time.Second,
	}
}
