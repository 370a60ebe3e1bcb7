package transition

import (
	"sort"
	"sync"

	"github.com/vango-dev/staticrouter/pkg/vdom"
)

// Elements reports the readiness of custom elements. The component runtime
// provides it; Registry is the stock implementation.
type Elements interface {
	// Defined reports whether tag's definition has loaded.
	Defined(tag string) bool

	// Ready returns a channel closed once the instance can render.
	Ready(node *vdom.VNode) <-chan struct{}
}

// Registry tracks custom element definitions. It is safe for concurrent use.
type Registry struct {
	mu   sync.Mutex
	tags map[string]*definition
}

type definition struct {
	defined bool
	ready   chan struct{}
}

// NewRegistry returns an empty registry. Unknown tags are undefined until
// Define is called for them.
func NewRegistry() *Registry {
	return &Registry{tags: make(map[string]*definition)}
}

func (r *Registry) lookup(tag string) *definition {
	d, ok := r.tags[tag]
	if !ok {
		d = &definition{ready: make(chan struct{})}
		r.tags[tag] = d
	}
	return d
}

// Define marks tag as loaded and releases every waiter. Defining a tag twice
// is a no-op.
func (r *Registry) Define(tags ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tag := range tags {
		d := r.lookup(tag)
		if !d.defined {
			d.defined = true
			close(d.ready)
		}
	}
}

// Loading registers tag as pending and returns the function that defines it.
func (r *Registry) Loading(tag string) (done func()) {
	r.mu.Lock()
	r.lookup(tag)
	r.mu.Unlock()
	return func() { r.Define(tag) }
}

// Defined reports whether tag has been defined.
func (r *Registry) Defined(tag string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.tags[tag]
	return ok && d.defined
}

// Ready returns a channel that closes once the node's tag is defined.
func (r *Registry) Ready(node *vdom.VNode) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(node.Tag).ready
}

// Pending returns, sorted, the tags that were registered or awaited but
// are still undefined.
func (r *Registry) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for tag, d := range r.tags {
		if !d.defined {
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}
