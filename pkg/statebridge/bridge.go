package statebridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"github.com/vango-dev/staticrouter/pkg/document"
	"github.com/vango-dev/staticrouter/pkg/metrics"
	"github.com/vango-dev/staticrouter/pkg/routepath"
	"github.com/vango-dev/staticrouter/pkg/router"
	"github.com/vango-dev/staticrouter/pkg/statecache"
)

// ErrStateUnavailable is returned when page state cannot be fetched: the
// request failed, the server answered non-2xx, or the body did not decode.
var ErrStateUnavailable = errors.New("statebridge: page state unavailable")

const defaultTracerName = "staticrouter/statebridge"

// Config configures a Bridge.
type Config struct {
	// Document holds the boot payload and the build id.
	Document *document.Document

	// Cache stores state for the session. Default: a new cache.
	Cache *statecache.Cache

	// Client fetches state files. Default: a client with a 10s timeout.
	Client *http.Client

	// Dev enables diagnostics for missing boot payloads.
	Dev bool

	// Logger receives diagnostics. Default: slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics

	// TracerName names the OpenTelemetry tracer (default:
	// "staticrouter/statebridge").
	TracerName string
}

// Bridge serves page state on the client.
type Bridge struct {
	doc     *document.Document
	cache   *statecache.Cache
	client  *http.Client
	dev     bool
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	// mu orders build switches against cache writes of finished fetches.
	mu      sync.Mutex
	buildID atomic.String
	group   singleflight.Group
}

// New creates a Bridge. The build id is read from the document.
func New(cfg Config) *Bridge {
	if cfg.Document == nil {
		cfg.Document = document.New()
	}
	if cfg.Cache == nil {
		cfg.Cache = statecache.New()
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TracerName == "" {
		cfg.TracerName = defaultTracerName
	}
	b := &Bridge{
		doc:     cfg.Document,
		cache:   cfg.Cache,
		client:  cfg.Client,
		dev:     cfg.Dev,
		logger:  cfg.Logger.With("component", "statebridge"),
		metrics: cfg.Metrics,
		tracer:  otel.Tracer(cfg.TracerName),
	}
	b.buildID.Store(cfg.Document.BuildID())
	return b
}

// Cache returns the session cache.
func (b *Bridge) Cache() *statecache.Cache { return b.cache }

// BuildID returns the build id used for state file requests.
func (b *Bridge) BuildID() string { return b.buildID.Load() }

// SetBuildID switches to a new build. Cached state belongs to the old build
// and is dropped.
func (b *Bridge) SetBuildID(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.buildID.Load()
	b.buildID.Store(id)
	if old != id {
		b.cache.Clear()
	}
}

// Has reports whether state for u is cached.
func (b *Bridge) Has(u *url.URL) bool { return b.cache.Has(u) }

// Lookup returns cached state for u.
func (b *Bridge) Lookup(u *url.URL) (any, bool) {
	state, ok := b.cache.Get(u)
	b.metrics.CacheLookup(ok)
	return state, ok
}

// StatePath returns the state file path for u under the current build.
func (b *Bridge) StatePath(u *url.URL) string {
	return StatePath(u, b.BuildID())
}

// Current returns the state for the page the document was loaded with.
// The boot payload is consumed on first use; later calls are served from
// the cache, and calls for other URLs find no payload.
func (b *Bridge) Current(u *url.URL) (any, bool) {
	if state, ok := b.Lookup(u); ok {
		return state, true
	}

	state, found, err := Extract(b.doc)
	switch {
	case err != nil:
		b.logger.Error("boot payload is not valid JSON", "url", u.String(), "error", err)
		return nil, false
	case !found:
		if b.dev {
			b.logger.Error("document was not prerendered: no static state payload", "url", u.String())
		}
		return nil, false
	}

	b.cache.Set(u, state)
	return state, true
}

// PageState returns the state for a match resolved from the current
// document location.
func (b *Bridge) PageState(_ context.Context, m *router.Match) (any, error) {
	if m == nil {
		return nil, nil
	}
	state, _ := b.Current(m.URL)
	return state, nil
}

// Ensure makes state for u available in the cache, fetching the state file
// on a miss. It returns the custom element tags the page declares when a
// fetch happened. Concurrent calls for the same URL and build share one
// request; a caller whose ctx ends stops waiting without cancelling it.
// State fetched for a build that was replaced meanwhile is not cached and
// yields ErrStateUnavailable.
func (b *Bridge) Ensure(ctx context.Context, u *url.URL) ([]string, error) {
	if _, ok := b.Lookup(u); ok {
		return nil, nil
	}

	buildID := b.BuildID()
	key := buildID + " " + routepath.CacheKey(u)
	ch := b.group.DoChan(key, func() (any, error) {
		if b.cache.Has(u) {
			return []string(nil), nil
		}
		file, err := b.fetch(context.WithoutCancel(ctx), u, buildID)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.buildID.Load() != buildID {
			return nil, fmt.Errorf("%w: build changed from %s during fetch", ErrStateUnavailable, buildID)
		}
		b.cache.Set(u, file.PageState)
		return file.Components, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]string), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetch downloads and decodes the state file for u.
func (b *Bridge) fetch(ctx context.Context, u *url.URL, buildID string) (file StateFile, err error) {
	target, err := u.Parse(StatePath(u, buildID))
	if err != nil {
		return file, fmt.Errorf("%w: %w", ErrStateUnavailable, err)
	}

	ctx, span := b.tracer.Start(ctx, "statebridge.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("url.path", u.Path),
			attribute.String("staticrouter.build_id", buildID),
		),
	)
	start := time.Now()
	defer func() {
		b.metrics.StateFetch(time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return file, fmt.Errorf("%w: %w", ErrStateUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "max-stale")

	resp, err := b.client.Do(req)
	if err != nil {
		return file, fmt.Errorf("%w: GET %s: %w", ErrStateUnavailable, target.Path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return file, fmt.Errorf("%w: GET %s: status %d", ErrStateUnavailable, target.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return file, fmt.Errorf("%w: decode %s: %w", ErrStateUnavailable, target.Path, err)
	}
	return file, nil
}
