package vdom

import "strings"

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement  VKind = iota // <div>, <blog-post>, etc.
	KindText                  // Plain text node
	KindFragment              // Grouping without wrapper
	KindRaw                   // Raw HTML (dangerous)
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// VNode is the virtual DOM node.
type VNode struct {
	Kind     VKind    // Node type
	Tag      string   // Element tag name (e.g., "div")
	Props    Props    // Attributes and event handlers
	Children []*VNode // Child nodes
	Key      string   // Reconciliation key
	Text     string   // For KindText and KindRaw
}

// Props holds attributes and event handlers.
type Props map[string]any

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// IsCustomElement reports whether the node is an element whose tag names a
// custom element (any tag containing a hyphen).
func (v *VNode) IsCustomElement() bool {
	if v == nil || v.Kind != KindElement {
		return false
	}
	return IsCustomTag(v.Tag)
}

// IsCustomTag reports whether tag is a valid custom element name.
func IsCustomTag(tag string) bool {
	if tag == "" || !strings.Contains(tag, "-") {
		return false
	}
	c := tag[0]
	return c >= 'a' && c <= 'z'
}

// Attr returns the string form of an attribute, or "" when unset.
func (v *VNode) Attr(key string) string {
	if v == nil || v.Props == nil {
		return ""
	}
	switch val := v.Props[key].(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		return attrString(val)
	}
}

// HasClass reports whether the element's class attribute contains name.
func (v *VNode) HasClass(name string) bool {
	for _, c := range strings.Fields(v.Attr("class")) {
		if c == name {
			return true
		}
	}
	return false
}

// Clone returns a shallow copy of the node with its own Props map and
// children slice. Child nodes themselves are shared.
func (v *VNode) Clone() *VNode {
	if v == nil {
		return nil
	}
	clone := *v
	if v.Props != nil {
		clone.Props = make(Props, len(v.Props))
		for k, val := range v.Props {
			clone.Props[k] = val
		}
	}
	if v.Children != nil {
		clone.Children = append([]*VNode(nil), v.Children...)
	}
	return &clone
}
