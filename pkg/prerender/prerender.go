package prerender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/staticrouter/pkg/document"
	"github.com/vango-dev/staticrouter/pkg/metrics"
	"github.com/vango-dev/staticrouter/pkg/render"
	"github.com/vango-dev/staticrouter/pkg/routepath"
	"github.com/vango-dev/staticrouter/pkg/router"
	"github.com/vango-dev/staticrouter/pkg/statebridge"
	"github.com/vango-dev/staticrouter/pkg/vdom"
)

// ErrNoRoute is returned for a URL that matches no route while the table
// has no not-found entry.
var ErrNoRoute = errors.New("prerender: no route matches")

// DefaultShell is the document pages are rendered into when Config.Shell is
// empty.
const DefaultShell = `<!DOCTYPE html><html><head><meta charset="utf-8"></head><body></body></html>`

const (
	documentFile = "index.html"
	htmlType     = "text/html; charset=utf-8"
	jsonType     = "application/json"
)

// Config configures a Prerenderer.
type Config struct {
	// Routes is the route table. Required.
	Routes *router.Table

	// Sink receives the output. Required.
	Sink Sink

	// BuildID is stamped on every document and state file link. Required.
	BuildID string

	// BaseURL is the origin pages are resolved against.
	// Default: "http://localhost".
	BaseURL string

	// Shell is the HTML document each page is rendered into.
	// Default: DefaultShell.
	Shell string

	// ComponentURL maps a custom element tag to its module script. When
	// set, each page gets a modulepreload hint per element it uses.
	ComponentURL func(tag string) string

	// Concurrency bounds the pages rendered at once. Default: 4.
	Concurrency int

	// Logger receives progress records. Default: slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Prerenderer renders pages to static files.
type Prerenderer struct {
	config   Config
	base     *url.URL
	source   statebridge.Source
	renderer *render.Renderer
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New validates cfg and returns a Prerenderer.
func New(cfg Config) (*Prerenderer, error) {
	if cfg.Routes == nil {
		return nil, errors.New("prerender: Routes is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("prerender: Sink is required")
	}
	if cfg.BuildID == "" {
		return nil, errors.New("prerender: BuildID is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost"
	}
	if cfg.Shell == "" {
		cfg.Shell = DefaultShell
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("prerender: invalid base URL %q", cfg.BaseURL)
	}
	if _, err := document.ParseString(cfg.Shell); err != nil {
		return nil, fmt.Errorf("prerender: parse shell: %w", err)
	}

	logger := cfg.Logger.With("component", "prerender")
	producer := statebridge.NewProducer(cfg.Logger, cfg.Metrics)
	return &Prerenderer{
		config:   cfg,
		base:     base,
		source:   statebridge.Env{Prerendering: true}.Select(producer, nil),
		renderer: render.NewRenderer(render.RendererConfig{}),
		logger:   logger,
		tracer:   otel.Tracer("staticrouter/prerender"),
	}, nil
}

// Output is one rendered page.
type Output struct {
	// Path is the URL path the page was rendered for.
	Path string

	// Document is the serialized index.html.
	Document string

	// State is the page.state.json body.
	State statebridge.StateFile
}

// Render produces the output for one URL path without writing it.
func (p *Prerenderer) Render(ctx context.Context, rawPath string) (out *Output, err error) {
	ctx, span := p.tracer.Start(ctx, "prerender.page",
		trace.WithAttributes(attribute.String("page.path", rawPath)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	u, err := p.base.Parse(rawPath)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", rawPath, err)
	}
	u.Fragment = ""

	match, err := p.config.Routes.Resolve(u)
	if err != nil {
		return nil, err
	}
	entry := p.config.Routes.NotFound()
	var params routepath.Params
	if match != nil {
		entry, params = match.Entry, match.Params
		span.SetAttributes(attribute.String("page.route", entry.Name()))
	} else if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, u.Path)
	}

	var state any
	if match != nil {
		if state, err = p.source.PageState(ctx, match); err != nil {
			return nil, err
		}
	}

	doc, err := document.ParseString(p.config.Shell)
	if err != nil {
		return nil, err
	}
	doc.SetBuildID(p.config.BuildID)

	page := router.Page{
		Params: params,
		State:  state,
		URL:    u,
		Links:  &linker{doc: doc, current: u, buildID: p.config.BuildID},
	}
	content := entry.View(page)
	nodes, err := p.renderer.Nodes(content)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", u.Path, err)
	}
	doc.SetOutlet(nodes...)

	components := vdom.CustomTags(content)
	if p.config.ComponentURL != nil {
		for _, tag := range components {
			doc.AddLink("modulepreload", p.config.ComponentURL(tag), "")
		}
	}
	if err := statebridge.Embed(doc, state); err != nil {
		return nil, err
	}

	if components == nil {
		components = []string{}
	}
	return &Output{
		Path:     u.Path,
		Document: doc.String(),
		State:    statebridge.StateFile{PageState: statebridge.Snapshot(state), Components: components},
	}, nil
}

// Page renders rawPath and writes both files to the sink.
func (p *Prerenderer) Page(ctx context.Context, rawPath string) (*Output, error) {
	start := time.Now()
	out, err := p.render(ctx, rawPath)
	p.config.Metrics.PrerenderPage(time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("prerender %s: %w", rawPath, err)
	}
	p.logger.Debug("page written", "path", out.Path, "components", len(out.State.Components))
	return out, nil
}

func (p *Prerenderer) render(ctx context.Context, rawPath string) (*Output, error) {
	out, err := p.Render(ctx, rawPath)
	if err != nil {
		return nil, err
	}
	state, err := json.Marshal(out.State)
	if err != nil {
		return nil, fmt.Errorf("encode state file: %w", err)
	}
	dir := OutputDir(out.Path)
	if err := p.config.Sink.Put(ctx, path.Join(dir, documentFile), htmlType, []byte(out.Document)); err != nil {
		return nil, err
	}
	if err := p.config.Sink.Put(ctx, path.Join(dir, statebridge.StateFileName), jsonType, state); err != nil {
		return nil, err
	}
	return out, nil
}

// Result summarizes a Run.
type Result struct {
	// Pages lists the written URL paths, sorted.
	Pages    []string
	Duration time.Duration
}

// Run renders every path with bounded concurrency. Paths are canonicalized
// first, so "/blogs/" and "/blogs" render once. Run stops at the first
// failure and returns that error.
func (p *Prerenderer) Run(ctx context.Context, paths []string) (*Result, error) {
	start := time.Now()
	paths, err := canonicalPaths(paths)
	if err != nil {
		return nil, err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)

	var (
		mu    sync.Mutex
		pages []string
	)
	for _, raw := range paths {
		g.Go(func() error {
			out, err := p.Page(ctx, raw)
			if err != nil {
				return err
			}
			mu.Lock()
			pages = append(pages, out.Path)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(pages)
	res := &Result{Pages: pages, Duration: time.Since(start)}
	p.logger.Info("prerender complete", "pages", len(pages), "duration", res.Duration)
	return res, nil
}

// OutputDir maps a URL path to its slash-separated output directory; the
// root maps to ".".
func OutputDir(urlPath string) string {
	dir := strings.Trim(path.Clean("/"+urlPath), "/")
	if dir == "" {
		return "."
	}
	return dir
}

// canonicalPaths canonicalizes paths and drops duplicates, keeping the
// first occurrence.
func canonicalPaths(paths []string) ([]string, error) {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, raw := range paths {
		p, err := routepath.CanonicalizePath(raw)
		if err != nil {
			return nil, fmt.Errorf("prerender %q: %w", raw, err)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}
