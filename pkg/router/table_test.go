package router

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/vango-dev/staticrouter/pkg/routepath"
	"github.com/vango-dev/staticrouter/pkg/vdom"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func page(text string) Option {
	return WithChildren(vdom.P(text))
}

func TestResolveFirstMatchWins(t *testing.T) {
	table := MustTable(
		Route(routepath.Segments("/blog/:id"), WithID("detail"), page("detail")),
		Route(routepath.MustPattern(`^/blog/.*`), WithID("catch"), page("catch")),
	)

	m, err := table.Resolve(mustURL(t, "https://example.com/blog/1"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Index != 0 || m.Entry.ID != "detail" || m.Params["id"] != "1" {
		t.Errorf("match = %+v", m)
	}

	// Swapping declaration order changes the winner.
	swapped := MustTable(table.entries[1], table.entries[0])
	m, err = swapped.Resolve(mustURL(t, "https://example.com/blog/1"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Entry.ID != "catch" {
		t.Errorf("swapped winner = %s, want catch", m.Entry.ID)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	table := MustTable(
		Route(routepath.Literal("/a"), page("a")),
		Route(routepath.MustPattern(`^/(\w)$`), page("any")),
	)
	u := mustURL(t, "/b")
	first, _ := table.Resolve(u)
	for i := 0; i < 5; i++ {
		m, _ := table.Resolve(u)
		if m.Index != first.Index || m.Params["1"] != "b" {
			t.Fatalf("resolution %d differs: %+v", i, m)
		}
	}
}

func TestResolveNoMatch(t *testing.T) {
	table := MustTable(Route(routepath.Literal("/"), page("home")))
	m, err := table.Resolve(mustURL(t, "/missing"))
	if m != nil || err != nil {
		t.Errorf("Resolve = %v, %v; want nil, nil", m, err)
	}
}

func TestResolveRedirectIsTransparent(t *testing.T) {
	table := MustTable(
		Redirect(routepath.Literal("/log-in"), "/account"),
		Route(routepath.Literal("/account"), WithID("account"), page("account")),
	)

	direct, err := table.Resolve(mustURL(t, "https://example.com/account"))
	if err != nil {
		t.Fatal(err)
	}
	via, err := table.Resolve(mustURL(t, "https://example.com/log-in"))
	if err != nil {
		t.Fatal(err)
	}
	if via.Index != direct.Index || via.Entry != direct.Entry {
		t.Errorf("redirect resolved to %d, direct to %d", via.Index, direct.Index)
	}
	if via.URL.String() != "https://example.com/account" {
		t.Errorf("redirect URL = %s", via.URL)
	}
	if !via.Redirected || direct.Redirected {
		t.Error("Redirected flag wrong")
	}
}

func TestResolveRedirectLoop(t *testing.T) {
	table := MustTable(
		Redirect(routepath.Literal("/a"), "/b"),
		Redirect(routepath.Literal("/b"), "/a"),
	)
	_, err := table.Resolve(mustURL(t, "/a"))
	if !errors.Is(err, ErrRedirectLoop) {
		t.Fatalf("err = %v, want ErrRedirectLoop", err)
	}
}

func TestResolveRedirectBound(t *testing.T) {
	// Each hop goes to a new URL; only the bound stops it.
	table := MustTable(
		Redirect(routepath.Func(func(p string) routepath.PredicateResult {
			if strings.HasPrefix(p, "/hop") {
				return routepath.Matched()
			}
			return routepath.NoMatch()
		}), "x/"),
	)
	table.MaxRedirects = 3
	_, err := table.Resolve(mustURL(t, "/hop/"))
	if !errors.Is(err, ErrRedirectLoop) {
		t.Fatalf("err = %v, want ErrRedirectLoop", err)
	}
}

func TestNewTableValidation(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{"empty", Route(routepath.Literal("/"))},
		{"render and children", Route(routepath.Literal("/"),
			WithRender(func(Page) *vdom.VNode { return nil }), page("x"))},
		{"redirect with content", Entry{Path: routepath.Literal("/"), RedirectTo: "/x", Children: []*vdom.VNode{vdom.P()}}},
	}
	for _, tt := range tests {
		if _, err := NewTable(tt.entry); !errors.Is(err, ErrInvalidEntry) {
			t.Errorf("%s: err = %v, want ErrInvalidEntry", tt.name, err)
		}
	}
}

func TestNotFound(t *testing.T) {
	table := MustTable(Route(routepath.Literal("/"), page("home")))
	if table.NotFound() != nil {
		t.Fatal("NotFound should default to nil")
	}
	if _, err := table.WithNotFound(Redirect(routepath.Literal(""), "/")); err == nil {
		t.Error("redirect not-found entry should be rejected")
	}
	if _, err := table.WithNotFound(Route(routepath.Literal(""), page("404"))); err != nil {
		t.Fatal(err)
	}
	if table.NotFound() == nil {
		t.Error("NotFound not set")
	}
}

func TestEntryView(t *testing.T) {
	e := Route(routepath.Literal("/"), WithRender(func(p Page) *vdom.VNode {
		return vdom.P(p.Params["id"])
	}))
	v := e.View(Page{Params: routepath.Params{"id": "7"}})
	if v.Tag != "p" || v.Children[0].Text != "7" {
		t.Errorf("View = %+v", v)
	}

	static := Route(routepath.Literal("/"), page("a"), page("b"))
	if v := static.View(Page{}); v.Kind != vdom.KindFragment || len(v.Children) != 2 {
		t.Errorf("static view = %+v", v)
	}
}

func TestClickEventIntercept(t *testing.T) {
	tests := []struct {
		name string
		ev   ClickEvent
		want bool
	}{
		{"plain", ClickEvent{Which: 1}, true},
		{"meta", ClickEvent{MetaKey: true}, false},
		{"ctrl", ClickEvent{CtrlKey: true}, false},
		{"middle which", ClickEvent{Which: 2}, false},
		{"middle button", ClickEvent{Button: 1}, false},
	}
	for _, tt := range tests {
		if got := tt.ev.Intercept(); got != tt.want {
			t.Errorf("%s: Intercept = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLinkAttrs(t *testing.T) {
	a := vdom.A(Link{Href: "/blogs"}.Attrs(), "Blogs")
	if a.Attr("href") != "/blogs" {
		t.Errorf("href = %q", a.Attr("href"))
	}
	if _, ok := a.Props["onclick"]; ok {
		t.Error("plain link should have no click handler")
	}

	clicked := false
	b := vdom.A(Link{Href: "/x", OnClick: func(*ClickEvent) { clicked = true }}.Attrs())
	b.Props["onclick"].(func(*ClickEvent))(&ClickEvent{})
	if !clicked {
		t.Error("click handler not attached")
	}

	if got := (Page{}).Href("/y"); got.Href != "/y" || got.OnClick != nil {
		t.Errorf("Page.Href without linker = %+v", got)
	}
}

func TestResolveMatchesLowercasedPath(t *testing.T) {
	table := MustTable(Route(routepath.Literal("/blogs"), page("blogs")))
	m, err := table.Resolve(mustURL(t, "https://example.com/Blogs"))
	if err != nil || m == nil {
		t.Fatalf("Resolve = %v, %v", m, err)
	}
	if m.URL.Path != "/Blogs" {
		t.Errorf("URL must keep its original case, got %s", m.URL.Path)
	}
}
