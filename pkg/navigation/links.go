package navigation

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/vango-dev/staticrouter/pkg/routepath"
	"github.com/vango-dev/staticrouter/pkg/router"
)

// Href builds a link to `to`. Plain primary clicks on the link are handled
// by Push; modified or middle clicks keep the browser default.
//
// In static mode Href also adds a prefetch hint for the target's state file
// unless the target is the current page, is cached, or is already hinted.
// Links to other origins are returned without a click handler or hint. In
// dev mode they are reported, as are links to assets.
func (r *Router) Href(to string) router.Link {
	current := r.URL()
	target, err := routepath.ResolveHref(current, to)
	if err != nil {
		r.logger.Error("invalid link target", "href", to, "error", err)
		return router.Link{Href: to}
	}

	if r.config.Dev && strings.Contains(path.Base(target.Path), ".") {
		r.logger.Error("href should only be used for page links, not assets", "href", to)
		return router.Link{Href: to}
	}
	if !routepath.SameOrigin(target, current) {
		if r.config.Dev {
			r.logger.Error("href should not be used for external URLs", "href", to)
		}
		return router.Link{Href: to}
	}

	if r.Static() {
		r.prefetchState(target, current)
	}

	return router.Link{
		Href: r.config.SerializeURL(target),
		OnClick: func(ev *router.ClickEvent) {
			if !ev.Intercept() {
				return
			}
			ev.PreventDefault()
			r.config.Dispatch(func() {
				if err := r.Push(context.Background(), to); err != nil {
					r.logger.Error("navigation failed", "href", to, "error", err)
				}
			})
		},
	}
}

func (r *Router) prefetchState(target, current *url.URL) {
	if routepath.NormalizePathname(target) == routepath.NormalizePathname(current) || r.bridge.Has(target) {
		return
	}
	r.doc.AddLink("prefetch", r.bridge.StatePath(target), "fetch")
}

// Preload adds a resource hint to the document head unless one with the
// same href exists. as "module" yields rel=modulepreload, anything else
// rel=prefetch with that destination.
func (r *Router) Preload(href, as string) {
	if as == "module" {
		r.doc.AddLink("modulepreload", href, "")
		return
	}
	r.doc.AddLink("prefetch", href, as)
}
