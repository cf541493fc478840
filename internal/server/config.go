package server

import (
	"github.com/raysh454/pageshot/internal/capture"
	"github.com/raysh454/pageshot/internal/logging"
)

type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":3001".
	ListenAddr string

	// Driver launches the browser sessions used by captures. Required.
	Driver capture.Driver

	// Capture tunes the capture lifecycle. Zero value means
	// capture.DefaultConfig().
	Capture capture.Config

	// MaxBodyBytes caps request bodies. Zero means 1 MiB.
	MaxBodyBytes int64

	Logger logging.Logger
}
