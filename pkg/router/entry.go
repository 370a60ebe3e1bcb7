package router

import (
	"errors"
	"fmt"

	"github.com/vango-dev/staticrouter/pkg/routepath"
	"github.com/vango-dev/staticrouter/pkg/vdom"
)

// ErrInvalidEntry is returned for entries that are neither a page nor a
// redirect, or that are both.
var ErrInvalidEntry = errors.New("router: invalid route entry")

// Entry is one route declaration.
type Entry struct {
	// Path decides which pathnames the entry accepts.
	Path routepath.Spec

	// ID optionally names the route for logs and metrics.
	ID string

	// Render builds the view. Mutually exclusive with Children.
	Render RenderFunc

	// Children is static view content. Mutually exclusive with Render.
	Children []*vdom.VNode

	// State computes page state while prerendering.
	State Mapper

	// RedirectTo makes the entry a redirect to another href.
	RedirectTo string
}

// Option configures an Entry built by Route.
type Option func(*Entry)

// WithID names the route.
func WithID(id string) Option {
	return func(e *Entry) { e.ID = id }
}

// WithRender sets the render function.
func WithRender(fn RenderFunc) Option {
	return func(e *Entry) { e.Render = fn }
}

// WithChildren sets static view content.
func WithChildren(children ...*vdom.VNode) Option {
	return func(e *Entry) { e.Children = append(e.Children, children...) }
}

// WithState sets the state mapper.
func WithState(fn Mapper) Option {
	return func(e *Entry) { e.State = fn }
}

// Route declares a page route.
func Route(path routepath.Spec, opts ...Option) Entry {
	e := Entry{Path: path}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Redirect declares a redirect from path to `to`.
func Redirect(path routepath.Spec, to string) Entry {
	return Entry{Path: path, RedirectTo: to}
}

// IsRedirect reports whether the entry redirects.
func (e *Entry) IsRedirect() bool { return e.RedirectTo != "" }

// Name returns the ID, or the path spec when no ID was given.
func (e *Entry) Name() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Path.String()
}

// View renders the entry for p.
func (e *Entry) View(p Page) *vdom.VNode {
	if e.Render != nil {
		return e.Render(p)
	}
	return vdom.Fragment(e.Children...)
}

// validate checks that the entry is exactly one of page or redirect.
func (e *Entry) validate() error {
	hasContent := e.Render != nil || len(e.Children) > 0
	switch {
	case e.Render != nil && len(e.Children) > 0:
		return fmt.Errorf("%w: %s sets both render and children", ErrInvalidEntry, e.Name())
	case e.IsRedirect() && (hasContent || e.State != nil):
		return fmt.Errorf("%w: redirect %s carries page content", ErrInvalidEntry, e.Name())
	case !e.IsRedirect() && !hasContent:
		return fmt.Errorf("%w: %s has neither content nor redirect", ErrInvalidEntry, e.Name())
	}
	return nil
}
