package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/vango-dev/staticrouter/pkg/document"
	"github.com/vango-dev/staticrouter/pkg/metrics"
	"github.com/vango-dev/staticrouter/pkg/render"
	"github.com/vango-dev/staticrouter/pkg/routepath"
	"github.com/vango-dev/staticrouter/pkg/router"
	"github.com/vango-dev/staticrouter/pkg/statebridge"
	"github.com/vango-dev/staticrouter/pkg/transition"
	"github.com/vango-dev/staticrouter/pkg/vdom"
)

// ErrDisposed is returned by operations on a disposed Router.
var ErrDisposed = errors.New("navigation: router disposed")

// ChangeFunc observes committed URL changes.
type ChangeFunc func(newURL, oldURL *url.URL)

// Config configures a Router.
type Config struct {
	// History is required.
	History History

	// Document is required. Its build id decides static mode.
	Document *document.Document

	// Routes is required.
	Routes *router.Table

	// Bridge serves page state. Default: a Bridge over Document.
	Bridge *statebridge.Bridge

	// Elements reports custom element readiness. Default: an empty
	// transition.Registry.
	Elements transition.Elements

	// ComponentURL maps a custom element tag to its module URL. When set,
	// components listed in fetched state files are preloaded.
	ComponentURL func(tag string) string

	// BeforePush runs before every Push. Errors are logged and ignored.
	BeforePush func(ctx context.Context, u *url.URL) error

	// ReloadOnPopState decides whether a history traversal to u needs a full
	// reload. Default: reload unless state for u is available.
	ReloadOnPopState func(u *url.URL) bool

	// SerializeURL renders URLs pushed to history and used in links.
	// Default: routepath.SerializeURL.
	SerializeURL func(u *url.URL) string

	// Dispatch runs click-initiated navigations. Default: a new goroutine.
	Dispatch func(fn func())

	// Dev enables link-misuse diagnostics.
	Dev bool

	// Logger receives diagnostics. Default: slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Router is the client-side navigation controller.
type Router struct {
	config   Config
	history  History
	doc      *document.Document
	routes   *router.Table
	bridge   *statebridge.Bridge
	machine  *transition.Machine
	renderer *render.Renderer
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu        sync.Mutex
	url       *url.URL
	static    bool
	disposed  bool
	listeners map[int]ChangeFunc
	nextID    int
}

// New creates a Router. Call Start to render the initial page.
func New(cfg Config) (*Router, error) {
	switch {
	case cfg.History == nil:
		return nil, fmt.Errorf("navigation: History is required")
	case cfg.Document == nil:
		return nil, fmt.Errorf("navigation: Document is required")
	case cfg.Routes == nil:
		return nil, fmt.Errorf("navigation: Routes is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Bridge == nil {
		cfg.Bridge = statebridge.New(statebridge.Config{
			Document: cfg.Document,
			Dev:      cfg.Dev,
			Logger:   cfg.Logger,
			Metrics:  cfg.Metrics,
		})
	}
	if cfg.SerializeURL == nil {
		cfg.SerializeURL = routepath.SerializeURL
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(fn func()) { go fn() }
	}

	r := &Router{
		config:    cfg,
		history:   cfg.History,
		doc:       cfg.Document,
		routes:    cfg.Routes,
		bridge:    cfg.Bridge,
		renderer:  render.NewRenderer(render.RendererConfig{}),
		logger:    cfg.Logger.With("component", "navigation"),
		metrics:   cfg.Metrics,
		url:       cfg.History.Location(),
		listeners: make(map[int]ChangeFunc),
	}
	if r.config.ReloadOnPopState == nil {
		r.config.ReloadOnPopState = func(u *url.URL) bool {
			_, ok := r.bridge.Current(u)
			return !ok
		}
	}
	r.machine = transition.NewMachine(transition.Config{
		Elements: cfg.Elements,
		OnRender: r.renderViews,
		Logger:   cfg.Logger,
	})

	r.static = cfg.Document.BuildID() != ""
	if !r.static {
		r.logger.Warn("document has not been prerendered, falling back to non-static router")
	}
	return r, nil
}

// =============================================================================
// State accessors
// =============================================================================

// URL returns the current URL.
func (r *Router) URL() *url.URL {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := *r.url
	return &u
}

// ActivePath returns the lowercased pathname of the current URL.
func (r *Router) ActivePath() string {
	return routepath.NormalizePathname(r.URL())
}

// Static reports whether the router fetches prerendered state.
func (r *Router) Static() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.static
}

// Views returns the transition machine's views.
func (r *Router) Views() []transition.View {
	return r.machine.Views()
}

// Bridge returns the static-state bridge.
func (r *Router) Bridge() *statebridge.Bridge { return r.bridge }

// OnChange registers fn for committed URL changes and returns a function
// that removes it.
func (r *Router) OnChange(fn ChangeFunc) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// SetBuildID switches the router to a new build. Cached state is dropped and
// later fetches use the new id. An empty id turns static mode off.
func (r *Router) SetBuildID(id string) {
	r.doc.SetBuildID(id)
	r.bridge.SetBuildID(id)
	r.mu.Lock()
	r.static = id != ""
	r.mu.Unlock()
	r.logger.Info("build changed", "build_id", id)
}

// Dispose detaches every listener. Later navigations fail with ErrDisposed.
func (r *Router) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = true
	r.listeners = make(map[int]ChangeFunc)
}

func (r *Router) isDisposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}

// =============================================================================
// Navigation
// =============================================================================

// Start renders the page the document was loaded with, using the boot
// payload. In static mode the payload is always consumed, keyed by the
// start URL. It does not push history unless the initial URL redirects.
func (r *Router) Start(ctx context.Context) error {
	if r.isDisposed() {
		return ErrDisposed
	}
	loc := r.history.Location()
	match, err := r.routes.Resolve(loc)
	if err != nil {
		return err
	}

	target := loc
	if match != nil {
		target = match.URL
		if match.Redirected {
			r.history.PushState(r.config.SerializeURL(target))
		}
	}

	var state any
	if r.Static() {
		state, _ = r.bridge.Current(target)
	}

	r.mu.Lock()
	r.url = target
	r.mu.Unlock()

	r.machine.Mount(r.config.SerializeURL(target), r.view(match, target, state))
	return nil
}

// Push navigates to href. It returns once the new view has committed, the
// navigation fell back to a full document load, or a newer navigation took
// over. Targets on another origin are always loaded as full documents.
func (r *Router) Push(ctx context.Context, href string) error {
	if r.isDisposed() {
		return ErrDisposed
	}
	target, err := routepath.ResolveHref(r.URL(), href)
	if err != nil {
		return fmt.Errorf("navigation: parse %q: %w", href, err)
	}

	if r.config.BeforePush != nil {
		if err := r.config.BeforePush(ctx, target); err != nil {
			r.logger.Error("before push hook failed", "url", target.String(), "error", err)
		}
	}

	if !routepath.SameOrigin(target, r.URL()) {
		r.metrics.Navigation(metrics.OutcomeFallback)
		r.history.Assign(target.String())
		return nil
	}

	gen := r.machine.Begin()

	match, err := r.routes.Resolve(target)
	if err != nil {
		r.logger.Error("route resolution failed", "url", target.String(), "error", err)
		return err
	}
	if match != nil {
		target = match.URL
	}

	samePage := routepath.NormalizePathname(target) == r.ActivePath()
	if r.Static() && !samePage {
		components, err := r.bridge.Ensure(ctx, target)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if !r.machine.Current(gen) {
				r.metrics.Navigation(metrics.OutcomeSuperseded)
				return nil
			}
			r.logger.Warn("page state unavailable, loading document", "url", target.String(), "error", err)
			r.metrics.Navigation(metrics.OutcomeFallback)
			r.history.Assign(target.EscapedPath())
			return nil
		}
		r.preloadComponents(components)
	}
	if !r.machine.Current(gen) {
		r.metrics.Navigation(metrics.OutcomeSuperseded)
		return nil
	}

	state, ok := r.bridge.Lookup(target)
	if !ok && samePage {
		state, _ = r.bridge.Lookup(r.URL())
	}
	return r.show(ctx, gen, match, target, state, true)
}

// PopState handles a history traversal. The new location is read from
// History. Without state for it, the document is reloaded when
// ReloadOnPopState says so.
func (r *Router) PopState(ctx context.Context) error {
	if r.isDisposed() {
		return ErrDisposed
	}
	loc := r.history.Location()
	if r.Static() && r.config.ReloadOnPopState(loc) {
		r.metrics.Navigation(metrics.OutcomeReload)
		r.history.Reload()
		return nil
	}

	gen := r.machine.Begin()
	match, err := r.routes.Resolve(loc)
	if err != nil {
		return err
	}
	state, _ := r.bridge.Lookup(loc)
	return r.show(ctx, gen, match, loc, state, false)
}

// show renders match and hands it to the transition machine. When push is
// set, the commit records scroll and pushes target onto history.
func (r *Router) show(ctx context.Context, gen uint64, match *router.Match, target *url.URL, state any, push bool) error {
	href := r.config.SerializeURL(target)
	content := r.view(match, target, state)

	var oldURL *url.URL
	res, err := r.machine.Show(ctx, gen, href, content, func() {
		if push {
			r.history.SaveScroll()
			r.history.PushState(href)
		}
		r.mu.Lock()
		oldURL = r.url
		r.url = target
		r.mu.Unlock()
	})
	switch {
	case errors.Is(err, transition.ErrSuperseded):
		r.metrics.Navigation(metrics.OutcomeSuperseded)
		return nil
	case err != nil:
		return err
	case res == transition.Unchanged:
		r.metrics.Navigation(metrics.OutcomeUnchanged)
		return nil
	}

	if routepath.NormalizePathname(target) == routepath.NormalizePathname(oldURL) {
		r.metrics.Navigation(metrics.OutcomeSamePage)
	} else {
		r.metrics.Navigation(metrics.OutcomeCommitted)
	}
	r.notify(target, oldURL)
	return nil
}

func (r *Router) notify(newURL, oldURL *url.URL) {
	if oldURL != nil && newURL.String() == oldURL.String() {
		return
	}
	r.mu.Lock()
	listeners := make([]ChangeFunc, 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(newURL, oldURL)
	}
}

// view renders the route for target. Unmatched URLs render the table's
// not-found entry, or nothing.
func (r *Router) view(match *router.Match, target *url.URL, state any) *vdom.VNode {
	page := router.Page{State: state, URL: target, Links: r}
	if match == nil {
		if nf := r.routes.NotFound(); nf != nil {
			return nf.View(page)
		}
		return vdom.Fragment()
	}
	page.Params = match.Params
	return match.Entry.View(page)
}

func (r *Router) preloadComponents(tags []string) {
	if r.config.ComponentURL == nil {
		return
	}
	for _, tag := range tags {
		if href := r.config.ComponentURL(tag); href != "" {
			r.Preload(href, "module")
		}
	}
}
