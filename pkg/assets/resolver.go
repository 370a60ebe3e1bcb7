package assets

// Resolver maps custom element tags to module URLs.
type Resolver interface {
	// ComponentURL returns the module script defining tag.
	ComponentURL(tag string) string
}

type manifestResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver creates a Resolver that looks modules up in m and prepends
// prefix, e.g. "/build/".
func NewResolver(m *Manifest, prefix string) Resolver {
	return &manifestResolver{
		manifest: m,
		prefix:   prefix,
	}
}

func (r *manifestResolver) ComponentURL(tag string) string {
	return r.prefix + r.manifest.Resolve(tag+ModuleExt)
}

type passthrough struct {
	prefix string
}

// NewPassthroughResolver creates a resolver for unfingerprinted modules.
// The prefix is still applied, so both resolvers produce the same layout:
//
//	assets.NewPassthroughResolver("/build/").ComponentURL("blog-post") // "/build/blog-post.js"
func NewPassthroughResolver(prefix string) Resolver {
	return &passthrough{prefix: prefix}
}

func (p *passthrough) ComponentURL(tag string) string {
	return p.prefix + tag + ModuleExt
}
