package prerender

import (
	"net/url"

	"github.com/vango-dev/staticrouter/pkg/document"
	"github.com/vango-dev/staticrouter/pkg/routepath"
	"github.com/vango-dev/staticrouter/pkg/router"
	"github.com/vango-dev/staticrouter/pkg/statebridge"
)

// linker is the build-time Linker. Links carry no click handler; each
// same-origin target other than the page itself gets a prefetch hint for
// its state file.
type linker struct {
	doc     *document.Document
	current *url.URL
	buildID string
}

func (l *linker) Href(to string) router.Link {
	target, err := routepath.ResolveHref(l.current, to)
	if err != nil || !routepath.SameOrigin(target, l.current) {
		return router.Link{Href: to}
	}
	if routepath.NormalizePathname(target) != routepath.NormalizePathname(l.current) {
		l.doc.AddLink("prefetch", statebridge.StatePath(target, l.buildID), "fetch")
	}
	return router.Link{Href: routepath.SerializeURL(target)}
}
