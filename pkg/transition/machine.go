package transition

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.uber.org/atomic"

	"github.com/vango-dev/staticrouter/pkg/vdom"
)

// ErrSuperseded is returned by Show when a newer navigation began before
// the view could commit.
var ErrSuperseded = errors.New("transition: superseded by a newer navigation")

// QueuedClass is the reserved class carried by hidden queued views.
const QueuedClass = "router-queued"

// State is the lifecycle state of a View.
type State uint8

const (
	StateQueued State = iota
	StateActive
	StateLeaving
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateQueued:
		return "QUEUED"
	case StateActive:
		return "ACTIVE"
	case StateLeaving:
		return "LEAVING"
	default:
		return "UNKNOWN"
	}
}

// Result describes how Show finished.
type Result uint8

const (
	// Committed means the view became active and commit ran.
	Committed Result = iota + 1

	// Unchanged means href was already active; content was swapped in place
	// and commit did not run.
	Unchanged
)

// View is a snapshot of one view.
type View struct {
	ID      uint64
	State   State
	Href    string
	Content *vdom.VNode
	Hidden  bool
}

// view is the mutable record behind a View.
type view struct {
	View
	abandon chan struct{}
}

// Config configures a Machine.
type Config struct {
	// Elements reports custom element readiness. Default: a new Registry,
	// in which nothing is defined.
	Elements Elements

	// OnRender is called with the current views whenever they change. It
	// runs with the machine locked and must not call back into it.
	OnRender func(views []View)

	// Logger receives debug records. Default: slog.Default().
	Logger *slog.Logger
}

// Machine owns the set of views. It is safe for concurrent use.
type Machine struct {
	mu       sync.Mutex
	views    []*view
	active   *view
	queued   *view
	nextID   uint64
	elements Elements
	onRender func([]View)
	logger   *slog.Logger

	generation atomic.Uint64
}

// NewMachine creates a Machine with no views.
func NewMachine(cfg Config) *Machine {
	if cfg.Elements == nil {
		cfg.Elements = NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Machine{
		elements: cfg.Elements,
		onRender: cfg.OnRender,
		logger:   cfg.Logger.With("component", "transition"),
	}
}

// Begin starts a navigation and returns its generation. Any navigation
// begun earlier is superseded.
func (m *Machine) Begin() uint64 {
	return m.generation.Inc()
}

// Current reports whether gen is the newest generation.
func (m *Machine) Current(gen uint64) bool {
	return m.generation.Load() == gen
}

// Views returns a snapshot of the views in creation order.
func (m *Machine) Views() []View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// Active returns the active view.
func (m *Machine) Active() (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return View{}, false
	}
	return m.active.View, true
}

// Mount installs content as the only, active view without waiting on any
// element. It is used for the first render, whose markup was prerendered.
// Mount supersedes every navigation in flight.
func (m *Machine) Mount(href string, content *vdom.VNode) {
	m.generation.Inc()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queued != nil {
		m.remove(m.queued)
	}
	q := m.enqueue(href, content)
	m.promote(q)
}

// Show transitions to content for href.
//
// commit runs with the machine locked, exactly once, after the new view is
// active and before Show returns; it must not call back into the Machine.
// Show returns ErrSuperseded when a newer Begin happened first, and the
// context error when ctx ends while waiting for elements.
func (m *Machine) Show(ctx context.Context, gen uint64, href string, content *vdom.VNode, commit func()) (Result, error) {
	m.mu.Lock()
	if !m.Current(gen) {
		m.mu.Unlock()
		return 0, ErrSuperseded
	}

	if m.active != nil && m.active.Href == href {
		if m.queued != nil {
			m.discard(m.queued)
		}
		m.active.Content = content
		m.render()
		m.mu.Unlock()
		return Unchanged, nil
	}

	q := m.enqueue(href, content)
	pending := m.pending(content)
	if len(pending) == 0 {
		m.promote(q)
		if commit != nil {
			commit()
		}
		m.mu.Unlock()
		return Committed, nil
	}

	q.Hidden = true
	m.render()
	m.mu.Unlock()

	m.logger.Debug("waiting for elements", "href", href, "count", len(pending))
	for _, ready := range pending {
		select {
		case <-ready:
		case <-q.abandon:
			return 0, ErrSuperseded
		case <-ctx.Done():
			m.mu.Lock()
			if m.queued == q {
				m.discard(q)
			}
			m.mu.Unlock()
			return 0, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queued != q {
		return 0, ErrSuperseded
	}
	if !m.Current(gen) {
		m.discard(q)
		return 0, ErrSuperseded
	}
	m.promote(q)
	if commit != nil {
		commit()
	}
	return Committed, nil
}

// enqueue adds a QUEUED view, replacing any older queued view and marking
// the active view LEAVING. Must hold m.mu.
func (m *Machine) enqueue(href string, content *vdom.VNode) *view {
	if m.queued != nil {
		m.remove(m.queued)
	}
	for _, v := range m.views {
		if v.State == StateActive {
			v.State = StateLeaving
		}
	}
	m.nextID++
	q := &view{
		View:    View{ID: m.nextID, State: StateQueued, Href: href, Content: content},
		abandon: make(chan struct{}),
	}
	m.views = append(m.views, q)
	m.queued = q
	return q
}

// promote makes q the only view. Must hold m.mu.
func (m *Machine) promote(q *view) {
	q.State = StateActive
	q.Hidden = false
	m.views = []*view{q}
	m.active = q
	m.queued = nil
	m.render()
}

// remove drops a queued view and releases its waiter. Must hold m.mu.
func (m *Machine) remove(q *view) {
	kept := m.views[:0]
	for _, v := range m.views {
		if v != q {
			kept = append(kept, v)
		}
	}
	m.views = kept
	if m.queued == q {
		m.queued = nil
		close(q.abandon)
	}
}

// discard removes the queued view q and brings the leaving active view
// back. Must hold m.mu.
func (m *Machine) discard(q *view) {
	m.remove(q)
	if m.active != nil && m.active.State == StateLeaving {
		m.active.State = StateActive
	}
	m.render()
}

// pending returns the readiness channels of undefined custom elements in
// content.
func (m *Machine) pending(content *vdom.VNode) []<-chan struct{} {
	var out []<-chan struct{}
	for _, el := range vdom.CustomElements(content) {
		if !m.elements.Defined(el.Tag) {
			out = append(out, m.elements.Ready(el))
		}
	}
	return out
}

// render reports the current views. Must hold m.mu.
func (m *Machine) render() {
	if m.onRender != nil {
		m.onRender(m.snapshot())
	}
}

func (m *Machine) snapshot() []View {
	out := make([]View, len(m.views))
	for i, v := range m.views {
		out[i] = v.View
	}
	return out
}
