package server

import (
	"io/fs"
	"log/slog"
	"time"

	"github.com/vango-dev/staticrouter/pkg/buildwatch"
	"github.com/vango-dev/staticrouter/pkg/metrics"
)

// Config configures the server.
type Config struct {
	// Address is the address to listen on (e.g., ":8080").
	// Default: ":8080".
	Address string

	// Output is the prerendered output tree. Required.
	Output fs.FS

	// BuildID is the build the output belongs to. State file requests
	// carrying it are served as immutable.
	BuildID string

	// Metrics enables the metrics route and request metrics.
	Metrics *metrics.Metrics

	// MetricsPath is the route of the Prometheus handler.
	// Default: "/metrics".
	MetricsPath string

	// Hub enables the build-change WebSocket at WatchPath.
	Hub *buildwatch.Hub

	// WatchPath is the route of the buildwatch hub.
	// Default: "/_build".
	WatchPath string

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 10 seconds.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	if c.WatchPath == "" {
		c.WatchPath = "/_build"
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
