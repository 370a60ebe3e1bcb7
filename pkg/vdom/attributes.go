package vdom

import "strings"

// attr creates an Attr with the given key and value.
func attr(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// ID sets the id attribute.
func ID(id string) Attr { return attr("id", id) }

// Class sets the class attribute, joining multiple classes with spaces.
func Class(classes ...string) Attr { return attr("class", strings.Join(classes, " ")) }

// Href sets the href attribute.
func Href(href string) Attr { return attr("href", href) }

// Rel sets the rel attribute.
func Rel(rel string) Attr { return attr("rel", rel) }

// As sets the as attribute used by resource hints.
func As(as string) Attr { return attr("as", as) }

// Type sets the type attribute.
func Type(t string) Attr { return attr("type", t) }

// Key sets the reconciliation key.
func Key(k string) Attr { return attr("key", k) }

// Data creates a data-* attribute.
// Example: Data("id", "123") → data-id="123"
func Data(key, value string) Attr { return attr("data-"+key, value) }

// AttrOf creates an arbitrary attribute.
func AttrOf(key string, value any) Attr { return attr(key, value) }

// OnClick attaches a click handler. Handlers are never rendered to HTML.
func OnClick(handler any) Attr { return attr("onclick", handler) }

// AddClass appends class names to the node's class attribute.
func (v *VNode) AddClass(names ...string) {
	if v == nil || v.Kind != KindElement {
		return
	}
	if v.Props == nil {
		v.Props = make(Props)
	}
	existing := strings.Fields(v.Attr("class"))
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c] = true
	}
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			existing = append(existing, n)
		}
	}
	v.Props["class"] = strings.Join(existing, " ")
}

// RemoveClass drops class names from the node's class attribute.
func (v *VNode) RemoveClass(names ...string) {
	if v == nil || v.Props == nil {
		return
	}
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var kept []string
	for _, c := range strings.Fields(v.Attr("class")) {
		if !drop[c] {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(v.Props, "class")
		return
	}
	v.Props["class"] = strings.Join(kept, " ")
}
