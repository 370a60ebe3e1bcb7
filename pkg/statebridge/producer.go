package statebridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vango-dev/staticrouter/pkg/metrics"
	"github.com/vango-dev/staticrouter/pkg/router"
)

// Producer computes page state while prerendering.
type Producer struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProducer returns a Producer. Both arguments may be nil.
func NewProducer(logger *slog.Logger, m *metrics.Metrics) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{
		logger:  logger.With("component", "statebridge"),
		metrics: m,
	}
}

// PageState runs the matched entry's mapper and returns the snapshot of its
// result. A failing or panicking mapper is logged and yields an empty
// object; routes without a mapper yield nil.
func (p *Producer) PageState(ctx context.Context, m *router.Match) (any, error) {
	if m == nil || m.Entry.State == nil {
		return nil, nil
	}
	state, err := runMapper(ctx, m)
	if err != nil {
		p.logger.Error("state mapper failed",
			"route", m.Entry.Name(),
			"url", m.URL.String(),
			"error", err)
		p.metrics.StateProduceError(m.Entry.Name())
		return emptyObject(), nil
	}
	return Snapshot(state), nil
}

func runMapper(ctx context.Context, m *router.Match) (state any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return m.Entry.State(ctx, m.Params, m.URL)
}
