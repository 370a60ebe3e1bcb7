// Package document wraps a parsed HTML page.
//
// A Document is the shared surface between prerendering and the client
// runtime: the prerenderer mounts route output and embeds the boot payload
// into it, and the navigation router later reads that payload back, adds
// resource hints and swaps views inside the router outlet. All methods are
// safe for concurrent use.
package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// BuildAttr is the <html> attribute carrying the build identifier.
	BuildAttr = "data-build"

	// OutletAttr marks the element the router renders views into.
	OutletAttr = "data-router-outlet"
)

const blank = "<!DOCTYPE html><html><head></head><body></body></html>"

// Document is a mutable HTML document.
type Document struct {
	mu   sync.Mutex
	root *html.Node
}

// New returns an empty document with <html>, <head> and <body>.
func New() *Document {
	doc, err := ParseString(blank)
	if err != nil {
		panic(fmt.Sprintf("document: parse blank document: %v", err))
	}
	return doc
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// =============================================================================
// Serialization
// =============================================================================

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String renders the document to a string. Rendering errors yield "".
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// =============================================================================
// Build identifier
// =============================================================================

// BuildID returns the build identifier recorded on <html>, or "".
func (d *Document) BuildID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, _ := Attr(d.element(atom.Html), BuildAttr)
	return v
}

// SetBuildID records the build identifier on <html>.
func (d *Document) SetBuildID(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	SetAttr(d.element(atom.Html), BuildAttr, id)
}

// =============================================================================
// Scripts
// =============================================================================

// TakeScript finds the first <script> carrying attr=value, removes it from
// the document and returns its text. Later calls observe it absent.
func (d *Document) TakeScript(attr, value string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := find(d.root, func(n *html.Node) bool {
		return n.DataAtom == atom.Script && hasAttrValue(n, attr, value)
	})
	if n == nil {
		return "", false
	}
	text := TextContent(n)
	Remove(n)
	return text, true
}

// HasScript reports whether a <script> with attr=value is present.
func (d *Document) HasScript(attr, value string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return find(d.root, func(n *html.Node) bool {
		return n.DataAtom == atom.Script && hasAttrValue(n, attr, value)
	}) != nil
}

// UpsertScript writes text into the <script> carrying attr=value, creating
// it at the end of <body> when missing.
func (d *Document) UpsertScript(attr, value, typ, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := find(d.root, func(n *html.Node) bool {
		return n.DataAtom == atom.Script && hasAttrValue(n, attr, value)
	})
	if n == nil {
		n = Element("script",
			html.Attribute{Key: "type", Val: typ},
			html.Attribute{Key: attr, Val: value},
		)
		d.element(atom.Body).AppendChild(n)
	}
	SetText(n, text)
}

// =============================================================================
// Head links
// =============================================================================

// HasLink reports whether <head> holds a <link> with the given rel and href.
func (d *Document) HasLink(rel, href string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.link(rel, href) != nil
}

// AddLink appends <link rel href [as]> to <head> unless an identical hint
// exists. It reports whether a link was added.
func (d *Document) AddLink(rel, href, as string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.link(rel, href) != nil {
		return false
	}
	attrs := []html.Attribute{{Key: "rel", Val: rel}, {Key: "href", Val: href}}
	if as != "" {
		attrs = append(attrs, html.Attribute{Key: "as", Val: as})
	}
	d.element(atom.Head).AppendChild(Element("link", attrs...))
	return true
}

// Links returns the hrefs of every <link> with the given rel, in order.
func (d *Document) Links(rel string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	walk(d.element(atom.Head), func(n *html.Node) {
		if n.DataAtom == atom.Link && hasAttrValue(n, "rel", rel) {
			href, _ := Attr(n, "href")
			out = append(out, href)
		}
	})
	return out
}

func (d *Document) link(rel, href string) *html.Node {
	return find(d.element(atom.Head), func(n *html.Node) bool {
		return n.DataAtom == atom.Link && hasAttrValue(n, "rel", rel) && hasAttrValue(n, "href", href)
	})
}

// =============================================================================
// Outlet
// =============================================================================

// SetOutlet replaces the children of the router outlet with nodes. The
// outlet is created as the first child of <body> when missing.
func (d *Document) SetOutlet(nodes ...*html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	outlet := d.outlet()
	for c := outlet.FirstChild; c != nil; {
		next := c.NextSibling
		outlet.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		outlet.AppendChild(n)
	}
}

// OutletHTML renders the current outlet children.
func (d *Document) OutletHTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	for c := d.outlet().FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

func (d *Document) outlet() *html.Node {
	if n := find(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && hasAttr(n, OutletAttr)
	}); n != nil {
		return n
	}
	body := d.element(atom.Body)
	n := Element("div", html.Attribute{Key: OutletAttr})
	body.InsertBefore(n, body.FirstChild)
	return n
}

// =============================================================================
// Queries
// =============================================================================

// Find returns the first element for which match returns true. The returned
// node must not be mutated while other goroutines use the document.
func (d *Document) Find(match func(*html.Node) bool) *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return find(d.root, match)
}

// element returns the first element with the given atom. html.Parse always
// synthesizes <html>, <head> and <body>.
func (d *Document) element(a atom.Atom) *html.Node {
	return find(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	})
}
