package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/staticrouter/pkg/metrics"
)

type recordingTracer struct {
	noop.Tracer
	mu    sync.Mutex
	spans []string
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.mu.Lock()
	t.spans = append(t.spans, name)
	t.mu.Unlock()
	return t.Tracer.Start(ctx, name, opts...)
}

func (t *recordingTracer) Spans() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.spans...)
}

type recordingProvider struct {
	noop.TracerProvider
	tracer *recordingTracer
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return p.tracer
}

func newTestRouter(mw ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(mw...)
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/files/*", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	r.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func counterValue(t *testing.T, m *metrics.Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	next:
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetricsLabelsByRoutePattern(t *testing.T) {
	m := metrics.New()
	h := newTestRouter(Metrics(m))

	serve(h, "/ok")
	serve(h, "/files/a/b")
	serve(h, "/files/c")

	const name = "staticrouter_http_requests_total"
	if got := counterValue(t, m, name, map[string]string{"route": "/ok", "status": "2xx"}); got != 1 {
		t.Errorf("/ok 2xx = %v, want 1", got)
	}
	if got := counterValue(t, m, name, map[string]string{"route": "/files/*", "status": "4xx"}); got != 2 {
		t.Errorf("/files/* 4xx = %v, want 2", got)
	}
}

func TestMetricsNilCollector(t *testing.T) {
	h := newTestRouter(Metrics(nil))
	if rec := serve(h, "/ok"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestOpenTelemetryStartsSpans(t *testing.T) {
	tracer := &recordingTracer{}
	var extracted bool
	h := newTestRouter(OpenTelemetry(
		WithTracerProvider(&recordingProvider{tracer: tracer}),
		WithRequestFilter(func(r *http.Request) bool { return r.URL.Path != "/healthz" }),
		WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
			extracted = true
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	))

	serve(h, "/ok")
	serve(h, "/healthz")

	spans := tracer.Spans()
	if len(spans) != 1 || spans[0] != "GET /ok" {
		t.Errorf("spans = %v, want [GET /ok]", spans)
	}
	if !extracted {
		t.Error("attribute extractor not called")
	}
}

func TestOpenTelemetryPropagatesContext(t *testing.T) {
	tracer := &recordingTracer{}
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
	})

	var got trace.SpanContext
	h := OpenTelemetry(WithTracerProvider(&recordingProvider{tracer: tracer}))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = trace.SpanContextFromContext(r.Context())
		}),
	)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(trace.ContextWithSpanContext(req.Context(), parent))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got.TraceID() != parent.TraceID() {
		t.Errorf("trace id = %s, want %s", got.TraceID(), parent.TraceID())
	}
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := newTestRouter(Recover(logger))

	rec := serve(h, "/panic")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(buf.String(), "handler panic") {
		t.Errorf("log = %q", buf.String())
	}
}

func TestRecoverReraisesAbort(t *testing.T) {
	h := Recover(slog.Default())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want ErrAbortHandler", rec)
		}
	}()
	serve(h, "/")
}

func TestRequestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := newTestRouter(RequestLog(logger))

	serve(h, "/healthz")

	out := buf.String()
	for _, want := range []string{"path=/healthz", "status=204"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}
