package statebridge

import (
	"context"

	"github.com/vango-dev/staticrouter/pkg/router"
)

// Source supplies page state for a resolved match.
type Source interface {
	PageState(ctx context.Context, m *router.Match) (any, error)
}

// Env describes where the code is running.
type Env struct {
	// Prerendering is true while pages are generated at build time.
	Prerendering bool
}

// Select returns the producing side while prerendering and the consuming
// side otherwise.
func (e Env) Select(p *Producer, b *Bridge) Source {
	if e.Prerendering {
		return p
	}
	return b
}
