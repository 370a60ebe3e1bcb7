package router

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/vango-dev/staticrouter/pkg/routepath"
)

// DefaultMaxRedirects bounds redirect chains when Table.MaxRedirects is 0.
const DefaultMaxRedirects = 8

// ErrRedirectLoop is returned when a redirect chain revisits a URL or
// exceeds the table's redirect bound.
var ErrRedirectLoop = errors.New("router: redirect loop")

// Table is an ordered, immutable set of route entries.
type Table struct {
	entries  []Entry
	notFound *Entry

	// MaxRedirects bounds redirect chains. Zero means DefaultMaxRedirects.
	MaxRedirects int
}

// Match is the result of resolving a URL.
type Match struct {
	// Entry is the final, non-redirect entry.
	Entry *Entry

	// Index is the entry's position in the table; it identifies the route.
	Index int

	// Params were extracted by the entry's path spec.
	Params routepath.Params

	// URL is the URL the entry matched, after following redirects.
	URL *url.URL

	// Redirected reports whether at least one redirect was followed.
	Redirected bool
}

// NewTable validates entries and builds a table.
func NewTable(entries ...Entry) (*Table, error) {
	for i := range entries {
		if err := entries[i].validate(); err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
	}
	return &Table{entries: append([]Entry(nil), entries...)}, nil
}

// MustTable is like NewTable but panics on invalid entries.
func MustTable(entries ...Entry) *Table {
	t, err := NewTable(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// WithNotFound sets the entry rendered when nothing matches.
func (t *Table) WithNotFound(e Entry) (*Table, error) {
	if e.IsRedirect() {
		return nil, fmt.Errorf("%w: not-found entry cannot redirect", ErrInvalidEntry)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	t.notFound = &e
	return t, nil
}

// NotFound returns the not-found entry, or nil.
func (t *Table) NotFound() *Entry { return t.notFound }

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Entry returns the entry at index i.
func (t *Table) Entry(i int) *Entry { return &t.entries[i] }

// Resolve finds the first entry matching u's normalized pathname (see
// routepath.NormalizePathname), following redirects. It returns (nil, nil)
// when no entry matches.
func (t *Table) Resolve(u *url.URL) (*Match, error) {
	limit := t.MaxRedirects
	if limit <= 0 {
		limit = DefaultMaxRedirects
	}

	current := u
	seen := map[string]bool{routepath.NormalizePathname(current): true}
	for hops := 0; ; hops++ {
		index, params := t.first(routepath.NormalizePathname(current))
		if index < 0 {
			return nil, nil
		}
		entry := &t.entries[index]
		if !entry.IsRedirect() {
			return &Match{
				Entry:      entry,
				Index:      index,
				Params:     params,
				URL:        current,
				Redirected: hops > 0,
			}, nil
		}

		if hops >= limit {
			return nil, fmt.Errorf("%w: more than %d redirects from %s", ErrRedirectLoop, limit, u.Path)
		}
		next, err := current.Parse(entry.RedirectTo)
		if err != nil {
			return nil, fmt.Errorf("router: redirect %s: %w", entry.Name(), err)
		}
		path := routepath.NormalizePathname(next)
		if seen[path] {
			return nil, fmt.Errorf("%w: %s revisits %s", ErrRedirectLoop, u.Path, next.Path)
		}
		seen[path] = true
		current = next
	}
}

// first returns the index and params of the first entry matching pathname,
// or -1.
func (t *Table) first(pathname string) (int, routepath.Params) {
	for i := range t.entries {
		if params, ok := routepath.Match(pathname, t.entries[i].Path); ok {
			return i, params
		}
	}
	return -1, nil
}
