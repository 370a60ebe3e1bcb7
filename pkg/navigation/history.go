package navigation

import (
	"net/url"
	"sync"
)

// History is the browser session history as seen by the router.
type History interface {
	// Location returns the current absolute URL.
	Location() *url.URL

	// PushState adds a same-origin entry without loading a document.
	PushState(href string)

	// SaveScroll records the scroll position of the current entry.
	SaveScroll()

	// Assign performs a full document navigation to href.
	Assign(href string)

	// Reload reloads the current document.
	Reload()
}

// MemoryHistory is an in-memory History for headless use and tests.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []historyEntry
	index   int

	// ScrollY is the live scroll position SaveScroll records.
	ScrollY int

	assigned []string
	reloads  int
}

type historyEntry struct {
	url     *url.URL
	scrollY int
	saved   bool
}

// NewMemoryHistory starts a history at rawURL, which must be absolute.
func NewMemoryHistory(rawURL string) (*MemoryHistory, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &MemoryHistory{entries: []historyEntry{{url: u}}}, nil
}

// Location implements History.
func (h *MemoryHistory) Location() *url.URL {
	h.mu.Lock()
	defer h.mu.Unlock()
	u := *h.entries[h.index].url
	return &u
}

// PushState implements History. Forward entries are discarded.
func (h *MemoryHistory) PushState(href string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	next, err := h.entries[h.index].url.Parse(href)
	if err != nil {
		return
	}
	h.entries = append(h.entries[:h.index+1], historyEntry{url: next})
	h.index++
}

// SaveScroll implements History.
func (h *MemoryHistory) SaveScroll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.index].scrollY = h.ScrollY
	h.entries[h.index].saved = true
}

// Assign implements History. The navigation is recorded and becomes the
// current entry.
func (h *MemoryHistory) Assign(href string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assigned = append(h.assigned, href)
	if next, err := h.entries[h.index].url.Parse(href); err == nil {
		h.entries = append(h.entries[:h.index+1], historyEntry{url: next})
		h.index++
	}
}

// Reload implements History.
func (h *MemoryHistory) Reload() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloads++
}

// Back moves one entry back and reports whether it moved. Call
// Router.PopState afterwards, as a browser would fire popstate.
func (h *MemoryHistory) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return false
	}
	h.index--
	return true
}

// Forward moves one entry forward and reports whether it moved.
func (h *MemoryHistory) Forward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == len(h.entries)-1 {
		return false
	}
	h.index++
	return true
}

// Len returns the number of entries.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// SavedScroll returns the scroll position recorded for entry i.
func (h *MemoryHistory) SavedScroll(i int) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < 0 || i >= len(h.entries) {
		return 0, false
	}
	return h.entries[i].scrollY, h.entries[i].saved
}

// Assigned returns the hrefs passed to Assign.
func (h *MemoryHistory) Assigned() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.assigned...)
}

// Reloads returns how many times Reload was called.
func (h *MemoryHistory) Reloads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reloads
}
