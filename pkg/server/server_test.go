package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/staticrouter/pkg/buildwatch"
	"github.com/vango-dev/staticrouter/pkg/metrics"
)

func testOutput() fstest.MapFS {
	return fstest.MapFS{
		"index.html":               {Data: []byte("<html><body>home</body></html>")},
		"page.state.json":          {Data: []byte(`{"page.state":null,"components":[]}`)},
		"blogs/index.html":         {Data: []byte("<html><body>blogs</body></html>")},
		"blogs/page.state.json":    {Data: []byte(`{"page.state":{"titles":["a"]},"components":[]}`)},
		"build/app.1a2b3c4d5e.js":  {Data: []byte("console.log(1)")},
		"build/blog-post.js":       {Data: []byte("customElements.define()")},
		"empty/nested/placeholder": {Data: []byte("x")},
	}
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.Output == nil {
		cfg.Output = testOutput()
	}
	if cfg.BuildID == "" {
		cfg.BuildID = "b1"
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func get(s *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestServeOutput(t *testing.T) {
	s := newTestServer(t, Config{})

	tests := []struct {
		target      string
		status      int
		body        string
		contentType string
		cache       string
	}{
		{"/", 200, "home", "text/html", "no-cache"},
		{"/blogs", 200, "blogs", "text/html", "no-cache"},
		{"/blogs/", 200, "blogs", "text/html", "no-cache"},
		{"/blogs/page.state.json?s=b1", 200, `"titles"`, "application/json", "public, max-age=31536000, immutable"},
		{"/blogs/page.state.json?s=old", 200, `"titles"`, "application/json", "no-cache"},
		{"/page.state.json?s=b1", 200, `"page.state":null`, "application/json", "public, max-age=31536000, immutable"},
		{"/build/app.1a2b3c4d5e.js", 200, "console.log", "", "public, max-age=31536000, immutable"},
		{"/build/blog-post.js", 200, "customElements", "", "public, max-age=3600, must-revalidate"},
		{"/missing", 404, "", "", ""},
		{"/empty/nested", 404, "", "", ""},
		{"/blogs/../index.html", 404, "", "", ""},
		{"/a//b", 404, "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(s, http.MethodGet, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.body)
			}
			if tt.contentType != "" && !strings.HasPrefix(rec.Header().Get("Content-Type"), tt.contentType) {
				t.Errorf("Content-Type = %q, want %q", rec.Header().Get("Content-Type"), tt.contentType)
			}
			if tt.cache != "" && rec.Header().Get("Cache-Control") != tt.cache {
				t.Errorf("Cache-Control = %q, want %q", rec.Header().Get("Cache-Control"), tt.cache)
			}
		})
	}
}

func TestHeadAndMethods(t *testing.T) {
	s := newTestServer(t, Config{})
	if rec := get(s, http.MethodHead, "/blogs"); rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("HEAD = %d with %d body bytes", rec.Code, rec.Body.Len())
	}
	if rec := get(s, http.MethodPost, "/blogs"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST = %d, want 405", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, Config{})
	if rec := get(s, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	s := newTestServer(t, Config{Metrics: m})

	get(s, http.MethodGet, "/blogs")
	rec := get(s, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `staticrouter_http_requests_total{route="/*",status="2xx"} 1`) {
		t.Errorf("metrics body missing request counter:\n%s", rec.Body.String())
	}

	if rec := get(newTestServer(t, Config{}), http.MethodGet, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("metrics without collector = %d, want 404", rec.Code)
	}
}

func TestWatchRoute(t *testing.T) {
	hub := buildwatch.NewHub(buildwatch.HubConfig{BuildID: "b1"})
	s := newTestServer(t, Config{Hub: hub})
	srv := httptest.NewServer(s)
	defer srv.Close()
	defer hub.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/_build", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var msg buildwatch.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.BuildID != "b1" {
		t.Errorf("build id = %q", msg.BuildID)
	}
}

func TestCacheFollowsHubBuild(t *testing.T) {
	hub := buildwatch.NewHub(buildwatch.HubConfig{BuildID: "b1"})
	defer hub.Close()
	s := newTestServer(t, Config{Hub: hub})

	hub.Publish("b2")
	tests := map[string]string{
		"/blogs/page.state.json?s=b1": "no-cache",
		"/blogs/page.state.json?s=b2": "public, max-age=31536000, immutable",
	}
	for target, want := range tests {
		if got := get(s, http.MethodGet, target).Header().Get("Cache-Control"); got != want {
			t.Errorf("%s: Cache-Control = %q, want %q", target, got, want)
		}
	}
}

func TestServeAndShutdown(t *testing.T) {
	s := newTestServer(t, Config{ShutdownTimeout: time.Second})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/blogs")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "blogs") {
		t.Errorf("body = %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestNewRequiresOutput(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without output")
	}
}

func TestOutputRelPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/", ".", true},
		{"/blogs", "blogs", true},
		{"/blogs/", "blogs", true},
		{"/blog/1/page.state.json", "blog/1/page.state.json", true},
		{"/../etc/passwd", "", false},
		{"/a/./b", "", false},
		{"//etc/passwd", "", false},
		{"/a\\b", "", false},
		{"/a\x00b", "", false},
	}
	for _, tt := range tests {
		got, ok := outputRelPath(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("outputRelPath(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
