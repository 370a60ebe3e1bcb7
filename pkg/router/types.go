package router

import (
	"context"
	"net/url"

	"github.com/vango-dev/staticrouter/pkg/routepath"
	"github.com/vango-dev/staticrouter/pkg/vdom"
)

// Mapper computes the page state for a matched route. It only runs while
// prerendering; the client receives its result through the static-state
// bridge.
type Mapper func(ctx context.Context, params routepath.Params, u *url.URL) (any, error)

// RenderFunc renders the view for a matched route.
type RenderFunc func(p Page) *vdom.VNode

// Page is what a RenderFunc receives.
type Page struct {
	// Params are the parameters extracted by the route's path spec.
	Params routepath.Params

	// State is the JSON-plain page state, or nil when none was produced.
	State any

	// URL is the resolved URL, after redirects.
	URL *url.URL

	// Links builds navigation links. Nil yields plain links.
	Links Linker
}

// Href returns a navigation link to `to` using the page's Linker.
func (p Page) Href(to string) Link {
	if p.Links == nil {
		return Link{Href: to}
	}
	return p.Links.Href(to)
}

// Linker builds links. The client router intercepts clicks; the prerenderer
// records prefetch hints.
type Linker interface {
	Href(to string) Link
}

// Link is the contract between the router and anchor elements.
type Link struct {
	Href    string
	OnClick func(ev *ClickEvent)
}

// Attrs returns the link as vdom attributes, ready to splat into vdom.A.
func (l Link) Attrs() []vdom.Attr {
	attrs := []vdom.Attr{vdom.Href(l.Href)}
	if l.OnClick != nil {
		attrs = append(attrs, vdom.OnClick(l.OnClick))
	}
	return attrs
}

// ClickEvent is the subset of a DOM mouse event the link handler inspects.
type ClickEvent struct {
	Button  int
	Which   int
	MetaKey bool
	CtrlKey bool

	prevented bool
}

// PreventDefault stops the browser's default navigation.
func (e *ClickEvent) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *ClickEvent) DefaultPrevented() bool { return e.prevented }

// Intercept reports whether the router should handle the click itself: a
// primary-button click with no meta or ctrl modifier.
func (e *ClickEvent) Intercept() bool {
	return !e.MetaKey && !e.CtrlKey && e.Which != 2 && e.Button != 1
}
