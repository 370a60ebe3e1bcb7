package prerender

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/staticrouter/pkg/document"
	"github.com/vango-dev/staticrouter/pkg/routepath"
	"github.com/vango-dev/staticrouter/pkg/router"
	"github.com/vango-dev/staticrouter/pkg/statebridge"
	"github.com/vango-dev/staticrouter/pkg/vdom"
)

type blogList struct {
	Titles []string `json:"titles"`
}

func testRoutes() *router.Table {
	return router.MustTable(
		router.Redirect(routepath.Literal("/log-in"), "/account"),
		router.Route(routepath.Literal("/account"), router.WithChildren(vdom.H1("Account"))),
		router.Route(routepath.Literal("/broken"),
			router.WithState(func(context.Context, routepath.Params, *url.URL) (any, error) {
				return nil, errors.New("database down")
			}),
			router.WithChildren(vdom.H1("Broken")),
		),
		router.Route(routepath.Literal("/blogs"),
			router.WithState(func(context.Context, routepath.Params, *url.URL) (any, error) {
				return blogList{Titles: []string{"First", "Second"}}, nil
			}),
			router.WithRender(func(p router.Page) *vdom.VNode {
				var data blogList
				_ = statebridge.Decode(p.State, &data)
				list := vdom.Ul()
				for i, title := range data.Titles {
					href := "/blog/" + string(rune('1'+i))
					list.Children = append(list.Children, vdom.Li(vdom.A(p.Href(href).Attrs(), title)))
				}
				return vdom.Div(vdom.H1("Blogs!"), list, vdom.A(p.Href("/blogs?page=2").Attrs(), "More"))
			}),
		),
		router.Route(routepath.Segments("/blog/:id"), router.WithRender(func(p router.Page) *vdom.VNode {
			return vdom.El("blog-post", vdom.Data("id", p.Params["id"]))
		})),
		router.Route(routepath.Literal("/"), router.WithChildren(vdom.H1("Homepage"))),
	)
}

// memorySink keeps files in memory.
type memorySink struct {
	mu    sync.Mutex
	files map[string]string
	types map[string]string
}

func newMemorySink() *memorySink {
	return &memorySink{files: map[string]string{}, types: map[string]string{}}
}

func (s *memorySink) Put(_ context.Context, key, contentType string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = string(body)
	s.types[key] = contentType
	return nil
}

func newPrerenderer(t *testing.T, sink Sink, opts ...func(*Config)) *Prerenderer {
	t.Helper()
	cfg := Config{
		Routes:  testRoutes(),
		Sink:    sink,
		BuildID: "b1",
		BaseURL: "https://example.com",
		Shell:   `<!DOCTYPE html><html><head><title>Blog</title></head><body><script src="/build/app.js"></script></body></html>`,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestRenderPage(t *testing.T) {
	p := newPrerenderer(t, newMemorySink())

	out, err := p.Render(context.Background(), "/blogs")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	doc, err := document.ParseString(out.Document)
	if err != nil {
		t.Fatal(err)
	}
	if doc.BuildID() != "b1" {
		t.Errorf("build id = %q", doc.BuildID())
	}
	outlet := doc.OutletHTML()
	want := `<div><h1>Blogs!</h1><ul><li><a href="/blog/1">First</a></li><li><a href="/blog/2">Second</a></li></ul><a href="/blogs?page=2">More</a></div>`
	if outlet != want {
		t.Errorf("outlet = %q\nwant %q", outlet, want)
	}

	wantHints := []string{"/blog/1/page.state.json?s=b1", "/blog/2/page.state.json?s=b1"}
	if got := doc.Links("prefetch"); !reflect.DeepEqual(got, wantHints) {
		t.Errorf("prefetch = %v, want %v", got, wantHints)
	}

	state, ok, err := statebridge.Extract(doc)
	if err != nil || !ok {
		t.Fatalf("Extract = %v, %v", ok, err)
	}
	var data blogList
	if err := statebridge.Decode(state, &data); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(data.Titles, []string{"First", "Second"}) {
		t.Errorf("boot titles = %v", data.Titles)
	}
	if !reflect.DeepEqual(out.State.PageState, state) {
		t.Errorf("state file %v differs from boot payload %v", out.State.PageState, state)
	}
	if len(out.State.Components) != 0 {
		t.Errorf("components = %v", out.State.Components)
	}
}

func TestRenderCollectsComponents(t *testing.T) {
	p := newPrerenderer(t, newMemorySink(), func(c *Config) {
		c.ComponentURL = func(tag string) string { return "/build/" + tag + ".js" }
	})

	out, err := p.Render(context.Background(), "/blog/7")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !reflect.DeepEqual(out.State.Components, []string{"blog-post"}) {
		t.Errorf("components = %v", out.State.Components)
	}
	if out.State.PageState != nil {
		t.Errorf("state = %v, want nil for a route without mapper", out.State.PageState)
	}
	doc, _ := document.ParseString(out.Document)
	if !doc.HasLink("modulepreload", "/build/blog-post.js") {
		t.Error("modulepreload hint missing")
	}
	if !strings.Contains(doc.OutletHTML(), `<blog-post data-id="7"></blog-post>`) {
		t.Errorf("outlet = %q", doc.OutletHTML())
	}
}

func TestRenderRedirectedPage(t *testing.T) {
	p := newPrerenderer(t, newMemorySink())
	out, err := p.Render(context.Background(), "/log-in")
	if err != nil {
		t.Fatal(err)
	}
	if out.Path != "/log-in" {
		t.Errorf("Path = %q", out.Path)
	}
	doc, _ := document.ParseString(out.Document)
	if doc.OutletHTML() != "<h1>Account</h1>" {
		t.Errorf("outlet = %q", doc.OutletHTML())
	}
}

func TestRenderMapperFailureYieldsEmptyState(t *testing.T) {
	p := newPrerenderer(t, newMemorySink())
	out, err := p.Render(context.Background(), "/broken")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !reflect.DeepEqual(out.State.PageState, map[string]any{}) {
		t.Errorf("state = %#v, want empty object", out.State.PageState)
	}
}

func TestRenderNoRoute(t *testing.T) {
	p := newPrerenderer(t, newMemorySink(), func(c *Config) {
		c.Routes = router.MustTable(router.Route(routepath.Literal("/"), router.WithChildren(vdom.P("home"))))
	})
	if _, err := p.Render(context.Background(), "/missing"); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("err = %v, want ErrNoRoute", err)
	}

	table, err := router.MustTable().WithNotFound(router.Route(routepath.Literal("*"), router.WithChildren(vdom.H1("Not found"))))
	if err != nil {
		t.Fatal(err)
	}
	p = newPrerenderer(t, newMemorySink(), func(c *Config) { c.Routes = table })
	out, err := p.Render(context.Background(), "/missing")
	if err != nil {
		t.Fatalf("Render with not-found entry: %v", err)
	}
	if !strings.Contains(out.Document, "<h1>Not found</h1>") {
		t.Errorf("document = %q", out.Document)
	}
}

func TestRunWritesDirectory(t *testing.T) {
	root := t.TempDir()
	sink, err := NewDirSink(root)
	if err != nil {
		t.Fatal(err)
	}
	p := newPrerenderer(t, sink, func(c *Config) { c.Concurrency = 2 })

	res, err := p.Run(context.Background(), []string{"/", "/blogs", "/blog/1", "/blogs/", "/blog//1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := []string{"/", "/blog/1", "/blogs"}; !reflect.DeepEqual(res.Pages, want) {
		t.Errorf("pages = %v, want %v", res.Pages, want)
	}

	for _, name := range []string{
		"index.html", "page.state.json",
		"blogs/index.html", "blogs/page.state.json",
		"blog/1/index.html", "blog/1/page.state.json",
	} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(name))); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(root, "blog", "1", "page.state.json"))
	if err != nil {
		t.Fatal(err)
	}
	var file statebridge.StateFile
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(file.Components, []string{"blog-post"}) {
		t.Errorf("components = %v", file.Components)
	}
}

func TestRunRejectsBadPaths(t *testing.T) {
	p := newPrerenderer(t, newMemorySink())
	for _, raw := range []string{"/../etc", `/a\b`, "/a%zz"} {
		if _, err := p.Run(context.Background(), []string{raw}); err == nil {
			t.Errorf("Run(%q): expected error", raw)
		}
	}
}

func TestRunStopsOnError(t *testing.T) {
	p := newPrerenderer(t, newMemorySink(), func(c *Config) {
		c.Routes = router.MustTable(router.Route(routepath.Literal("/"), router.WithChildren(vdom.P("home"))))
	})
	_, err := p.Run(context.Background(), []string{"/", "/missing"})
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("err = %v, want ErrNoRoute", err)
	}
}

func TestPageContentTypes(t *testing.T) {
	sink := newMemorySink()
	p := newPrerenderer(t, sink)
	if _, err := p.Page(context.Background(), "/account"); err != nil {
		t.Fatal(err)
	}
	if sink.types["account/index.html"] != "text/html; charset=utf-8" {
		t.Errorf("html type = %q", sink.types["account/index.html"])
	}
	if sink.types["account/page.state.json"] != "application/json" {
		t.Errorf("json type = %q", sink.types["account/page.state.json"])
	}
	if !strings.Contains(sink.files["account/page.state.json"], `"page.state":null`) {
		t.Errorf("state file = %s", sink.files["account/page.state.json"])
	}
}

func TestNewValidation(t *testing.T) {
	sink := newMemorySink()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no routes", Config{Sink: sink, BuildID: "b"}},
		{"no sink", Config{Routes: testRoutes(), BuildID: "b"}},
		{"no build", Config{Routes: testRoutes(), Sink: sink}},
		{"relative base", Config{Routes: testRoutes(), Sink: sink, BuildID: "b", BaseURL: "/x"}},
	}
	for _, tt := range tests {
		if _, err := New(tt.cfg); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestOutputDir(t *testing.T) {
	tests := map[string]string{
		"/":          ".",
		"":           ".",
		"/blogs":     "blogs",
		"/blogs/":    "blogs",
		"/blog/1":    "blog/1",
		"/../etc":    "etc",
		"/a//b/./c/": "a/b/c",
	}
	for in, want := range tests {
		if got := OutputDir(in); got != want {
			t.Errorf("OutputDir(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDirSinkRejectsEscapingKeys(t *testing.T) {
	sink, err := NewDirSink(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"../x", "/abs", "a/../../b", ""} {
		if err := sink.Put(context.Background(), key, "", nil); err == nil {
			t.Errorf("Put(%q) succeeded", key)
		}
	}
}

type fakeS3 struct {
	mu     sync.Mutex
	inputs []*s3.PutObjectInput
	bodies []string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink(t *testing.T) {
	client := &fakeS3{}
	sink := NewS3Sink(client, "site", "releases/b1")

	if err := sink.Put(context.Background(), "blogs/index.html", "text/html", []byte("<p>x</p>")); err != nil {
		t.Fatal(err)
	}
	if len(client.inputs) != 1 {
		t.Fatalf("uploads = %d", len(client.inputs))
	}
	in := client.inputs[0]
	if *in.Bucket != "site" || *in.Key != "releases/b1/blogs/index.html" || *in.ContentType != "text/html" {
		t.Errorf("input = bucket %q key %q type %q", *in.Bucket, *in.Key, *in.ContentType)
	}
	if client.bodies[0] != "<p>x</p>" {
		t.Errorf("body = %q", client.bodies[0])
	}
}

func TestNewS3Client(t *testing.T) {
	client := NewS3Client(S3Options{Region: "eu-west-1", Endpoint: "http://localhost:9000", AccessKeyID: "k", SecretAccessKey: "s"})
	o := client.Options()
	if o.Region != "eu-west-1" || !o.UsePathStyle || o.BaseEndpoint == nil || *o.BaseEndpoint != "http://localhost:9000" {
		t.Errorf("options = region %q path style %v", o.Region, o.UsePathStyle)
	}
	creds, err := o.Credentials.Retrieve(context.Background())
	if err != nil || creds.AccessKeyID != "k" {
		t.Errorf("credentials = %+v, %v", creds, err)
	}
}
