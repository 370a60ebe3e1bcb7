package routepath

import (
	"net/url"
	"strings"
)

// NormalizePathname returns the lowercased pathname of u. The navigation
// router reports this as the active path.
func NormalizePathname(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.ToLower(u.EscapedPath())
}

// StripFragment removes everything from the first '#'.
func StripFragment(href string) string {
	href, _, _ = strings.Cut(href, "#")
	return href
}

// ResolveHref resolves href against base with the fragment removed.
func ResolveHref(base *url.URL, href string) (*url.URL, error) {
	ref, err := url.Parse(StripFragment(href))
	if err != nil {
		return nil, err
	}
	if base == nil {
		return ref, nil
	}
	return base.ResolveReference(ref), nil
}

// SerializeURL renders u as a same-origin href: path, query and fragment.
func SerializeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	s := u.EscapedPath()
	if s == "" {
		s = "/"
	}
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		s += "#" + u.EscapedFragment()
	}
	return s
}

// CacheKey is the state cache key for u: the absolute URL without fragment.
func CacheKey(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}

// SameOrigin reports whether a and b share scheme and host.
func SameOrigin(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}
