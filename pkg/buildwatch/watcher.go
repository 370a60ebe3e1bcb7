package buildwatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Target receives build changes.
type Target interface {
	SetBuildID(id string)
}

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// URL is the hub's ws:// or wss:// address. Required.
	URL string

	// Target receives changed build ids. Required.
	Target Target

	// BuildID is the build the target runs; announcing it again is a no-op.
	BuildID string

	// MinBackoff and MaxBackoff bound the reconnect delay.
	// Defaults: 500ms and 30s.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// Dialer defaults to a dialer with a 10s handshake timeout.
	Dialer *websocket.Dialer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Watcher follows a hub and reconnects when the connection drops.
type Watcher struct {
	cfg    WatcherConfig
	logger *slog.Logger
	last   string
}

// NewWatcher validates cfg and returns a Watcher.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.URL == "" {
		return nil, errors.New("buildwatch: URL is required")
	}
	if cfg.Target == nil {
		return nil, errors.New("buildwatch: Target is required")
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Watcher{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "buildwatch"),
		last:   cfg.BuildID,
	}, nil
}

// Run follows the hub until ctx ends and returns ctx.Err(). Run must not
// be called concurrently.
func (w *Watcher) Run(ctx context.Context) error {
	backoff := w.cfg.MinBackoff
	for {
		connected, err := w.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = w.cfg.MinBackoff
		}
		w.logger.Debug("connection lost, reconnecting", "error", err, "delay", backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, w.cfg.MaxBackoff)
	}
}

// session runs one connection. connected reports whether the dial succeeded.
func (w *Watcher) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := w.cfg.Dialer.DialContext(ctx, w.cfg.URL, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	w.logger.Debug("connected", "url", w.cfg.URL)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			w.logger.Warn("invalid build message", "error", err)
			continue
		}
		if msg.Type != MessageTypeBuild || msg.BuildID == "" || msg.BuildID == w.last {
			continue
		}
		w.last = msg.BuildID
		w.cfg.Target.SetBuildID(msg.BuildID)
	}
}
