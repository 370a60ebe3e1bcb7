package navigation

import (
	"golang.org/x/net/html"

	"github.com/vango-dev/staticrouter/pkg/document"
	"github.com/vango-dev/staticrouter/pkg/transition"
)

// renderViews writes the machine's views into the document outlet. Visible
// views are rendered in place; a hidden queued view is wrapped so its
// elements load without being shown.
func (r *Router) renderViews(views []transition.View) {
	var nodes []*html.Node
	for _, v := range views {
		rendered, err := r.renderer.Nodes(v.Content)
		if err != nil {
			r.logger.Error("render view failed", "href", v.Href, "error", err)
			continue
		}
		if !v.Hidden {
			nodes = append(nodes, rendered...)
			continue
		}
		wrapper := document.Element("div",
			html.Attribute{Key: "class", Val: transition.QueuedClass},
			html.Attribute{Key: "hidden"},
		)
		for _, n := range rendered {
			wrapper.AppendChild(n)
		}
		nodes = append(nodes, wrapper)
	}
	r.doc.SetOutlet(nodes...)
}
