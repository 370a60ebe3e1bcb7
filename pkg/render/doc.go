// Package render converts VNode trees into HTML.
//
// Rendering goes through golang.org/x/net/html node trees, so the output of
// a route can either be serialized on its own or grafted directly into a
// parsed document (see package document) during prerendering:
//
//   - Text and attribute escaping is delegated to html.Render
//   - Void element handling (input, br, img, etc.)
//   - Boolean attribute handling (disabled, checked, etc.)
//   - Event handler props are dropped; they only exist on the client
//
// # Basic Usage
//
//	renderer := render.NewRenderer(render.RendererConfig{})
//	html, err := renderer.RenderToString(node)
//
// To graft into a document:
//
//	nodes, err := renderer.Nodes(node)
//	for _, n := range nodes {
//	    mount.AppendChild(n)
//	}
package render
