// Package site is the demo blog shipped with the CLI. Its content comes
// from a YAML file; a built-in copy is used when no data directory is
// configured.
package site

import (
	"context"
	"embed"
	"fmt"
	"html"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/staticrouter/pkg/assets"
	"github.com/vango-dev/staticrouter/pkg/routepath"
	"github.com/vango-dev/staticrouter/pkg/router"
	"github.com/vango-dev/staticrouter/pkg/statebridge"
	"github.com/vango-dev/staticrouter/pkg/transition"
	"github.com/vango-dev/staticrouter/pkg/vdom"
)

// DataFile is the content file looked up in the data directory.
const DataFile = "blog.yaml"

// BlogPostTag is the custom element rendering a post body.
const BlogPostTag = "blog-post"

//go:embed data/blog.yaml
var embedded embed.FS

// Post is one blog post.
type Post struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Date  string `yaml:"date" json:"date,omitempty"`
	Body  string `yaml:"body" json:"body,omitempty"`
}

// Site is the blog content.
type Site struct {
	Title string `yaml:"title"`
	Posts []Post `yaml:"posts"`
}

// Load reads dir/blog.yaml, or the built-in content when dir is empty.
func Load(dir string) (*Site, error) {
	var (
		data []byte
		err  error
	)
	if dir == "" {
		data, err = embedded.ReadFile("data/" + DataFile)
	} else {
		data, err = os.ReadFile(filepath.Join(dir, DataFile))
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML content. Post ids must be present and unique.
func Parse(data []byte) (*Site, error) {
	var s Site
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse site data: %w", err)
	}
	seen := make(map[string]bool, len(s.Posts))
	for i, p := range s.Posts {
		if p.ID == "" {
			return nil, fmt.Errorf("post %d has no id", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate post id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return &s, nil
}

// Post returns the post with the given id.
func (s *Site) Post(id string) (Post, bool) {
	for _, p := range s.Posts {
		if p.ID == id {
			return p, true
		}
	}
	return Post{}, false
}

// URLs lists every page of the site.
func (s *Site) URLs() []string {
	urls := []string{"/", "/blogs", "/account", "/log-in"}
	for _, p := range s.Posts {
		urls = append(urls, "/blog/"+url.PathEscape(p.ID))
	}
	return urls
}

// ModulePrefix is the URL directory holding component modules.
const ModulePrefix = "/build/"

// ComponentURL is the unfingerprinted module script defining a custom
// element.
func ComponentURL(tag string) string {
	return modules.ComponentURL(tag)
}

var modules = assets.NewPassthroughResolver(ModulePrefix)

// Elements returns a registry with the site's custom elements defined.
func Elements() *transition.Registry {
	reg := transition.NewRegistry()
	reg.Define(BlogPostTag)
	return reg
}

// Shell is the HTML document pages are rendered into.
func (s *Site) Shell() string {
	return `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>` +
		html.EscapeString(s.Title) + `</title></head><body></body></html>`
}

type postList struct {
	Posts []Post `json:"posts"`
}

// Routes returns the route table of the site.
func (s *Site) Routes() *router.Table {
	table := router.MustTable(
		router.Redirect(routepath.Literal("/log-in"), "/account"),
		router.Route(routepath.Literal("/account"), router.WithID("account"), router.WithChildren(
			vdom.H1("Account"),
			vdom.P("You are signed in."),
		)),
		router.Route(routepath.Literal("/blogs"), router.WithID("blogs"),
			router.WithState(s.listState),
			router.WithRender(renderList),
		),
		router.Route(routepath.Segments("/blog/:id"), router.WithID("blog-post"),
			router.WithState(s.postState),
			router.WithRender(renderPost),
		),
		router.Route(routepath.Literal("/"), router.WithID("home"), router.WithRender(func(p router.Page) *vdom.VNode {
			return vdom.Fragment(
				vdom.H1(s.Title),
				vdom.Nav(
					vdom.A(p.Href("/blogs").Attrs(), "Blog"),
					vdom.A(p.Href("/log-in").Attrs(), "Log in"),
				),
			)
		})),
	)
	table, err := table.WithNotFound(router.Route(routepath.Literal("*"), router.WithID("not-found"),
		router.WithChildren(vdom.H1("Page not found"))))
	if err != nil {
		panic(err)
	}
	return table
}

func (s *Site) listState(context.Context, routepath.Params, *url.URL) (any, error) {
	list := postList{Posts: make([]Post, len(s.Posts))}
	for i, p := range s.Posts {
		list.Posts[i] = Post{ID: p.ID, Title: p.Title, Date: p.Date}
	}
	return list, nil
}

func (s *Site) postState(_ context.Context, params routepath.Params, _ *url.URL) (any, error) {
	post, ok := s.Post(params["id"])
	if !ok {
		return nil, fmt.Errorf("unknown post %q", params["id"])
	}
	return post, nil
}

func renderList(p router.Page) *vdom.VNode {
	var list postList
	_ = statebridge.Decode(p.State, &list)
	items := vdom.Ul()
	for _, post := range list.Posts {
		items.Children = append(items.Children, vdom.Li(
			vdom.A(p.Href("/blog/"+url.PathEscape(post.ID)).Attrs(), post.Title),
		))
	}
	return vdom.Div(vdom.H1("Blogs!"), items)
}

func renderPost(p router.Page) *vdom.VNode {
	var post Post
	_ = statebridge.Decode(p.State, &post)
	if post.ID == "" {
		return vdom.H1("Post not found")
	}
	return vdom.Article(
		vdom.H1(post.Title),
		vdom.El(BlogPostTag, vdom.Data("id", post.ID), vdom.P(post.Body)),
		vdom.A(p.Href("/blogs").Attrs(), "All posts"),
	)
}
