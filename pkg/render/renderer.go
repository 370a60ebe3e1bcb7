package render

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/staticrouter/pkg/vdom"
)

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// RawContext is the element raw HTML fragments are parsed in.
	// Defaults to a <div>.
	RawContext *html.Node
}

// Renderer handles rendering of VNode trees to HTML.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.RawContext == nil {
		config.RawContext = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	}
	return &Renderer{config: config}
}

// RenderToString renders a VNode tree to an HTML string.
func (r *Renderer) RenderToString(node *vdom.VNode) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams a VNode tree to the given writer.
func (r *Renderer) RenderToWriter(w io.Writer, node *vdom.VNode) error {
	nodes, err := r.Nodes(node)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if err := html.Render(w, n); err != nil {
			return err
		}
	}
	return nil
}

// Nodes converts a VNode tree into detached html nodes. Fragments flatten
// into several top-level nodes.
func (r *Renderer) Nodes(node *vdom.VNode) ([]*html.Node, error) {
	if node == nil {
		return nil, nil
	}

	switch node.Kind {
	case vdom.KindElement:
		el, err := r.element(node)
		if err != nil {
			return nil, err
		}
		return []*html.Node{el}, nil
	case vdom.KindText:
		return []*html.Node{{Type: html.TextNode, Data: node.Text}}, nil
	case vdom.KindFragment:
		var out []*html.Node
		for _, child := range node.Children {
			nodes, err := r.Nodes(child)
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
		}
		return out, nil
	case vdom.KindRaw:
		nodes, err := html.ParseFragment(strings.NewReader(node.Text), r.config.RawContext)
		if err != nil {
			return nil, fmt.Errorf("parse raw html: %w", err)
		}
		return nodes, nil
	default:
		return nil, fmt.Errorf("unknown node kind: %d", node.Kind)
	}
}

// element renders an HTML element with its attributes and children.
func (r *Renderer) element(node *vdom.VNode) (*html.Node, error) {
	if node.Tag == "" {
		return nil, fmt.Errorf("element without tag")
	}
	el := &html.Node{
		Type:     html.ElementNode,
		Data:     node.Tag,
		DataAtom: atom.Lookup([]byte(node.Tag)),
		Attr:     attributes(node),
	}

	if vdom.IsVoidElement(node.Tag) {
		return el, nil
	}

	for _, child := range node.Children {
		nodes, err := r.Nodes(child)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			el.AppendChild(n)
		}
	}
	return el, nil
}

// attributes converts props into html attributes in a deterministic order.
func attributes(node *vdom.VNode) []html.Attribute {
	if len(node.Props) == 0 {
		return nil
	}

	keys := make([]string, 0, len(node.Props))
	for key := range node.Props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	attrs := make([]html.Attribute, 0, len(keys))
	for _, key := range keys {
		value := node.Props[key]

		// Skip internal props
		if strings.HasPrefix(key, "_") {
			continue
		}

		// Event handlers only exist on the client
		if strings.HasPrefix(key, "on") && isEventHandler(value) {
			continue
		}

		if isBooleanAttr(key) {
			if b, ok := value.(bool); ok {
				if b {
					attrs = append(attrs, html.Attribute{Key: key})
				}
				continue
			}
		}

		if s, ok := attrToString(value); ok {
			attrs = append(attrs, html.Attribute{Key: key, Val: s})
		}
	}
	return attrs
}

// isEventHandler returns true if the value is a function.
func isEventHandler(value any) bool {
	if value == nil {
		return false
	}
	return reflect.TypeOf(value).Kind() == reflect.Func
}

// attrToString converts an attribute value to a string.
// A nil value means the attribute is absent.
func attrToString(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}
