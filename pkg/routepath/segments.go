package routepath

import (
	"fmt"
	"regexp"
	"strings"
)

// Segments compiles a segment pattern into a Pattern spec.
//
//	"/blog/:id"      matches "/blog/hello" with params{"id": "hello"}
//	"/docs/*rest"    matches "/docs/a/b"   with params{"rest": "a/b"}
//
// ":name" captures exactly one non-empty segment. "*name" must be the last
// segment and captures the remainder, possibly empty. Matching ignores case
// and tolerates one trailing slash.
func Segments(path string) Spec {
	re, err := compileSegments(path)
	if err != nil {
		panic(fmt.Sprintf("routepath: %v", err))
	}
	return Pattern(re)
}

func compileSegments(path string) (*regexp.Regexp, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("segment pattern %q must start with /", path)
	}

	var b strings.Builder
	b.WriteString(`(?i)^`)

	parts := strings.Split(strings.Trim(path, "/"), "/")
	seen := make(map[string]bool)
	for i, part := range parts {
		if part == "" {
			continue
		}
		switch part[0] {
		case ':', '*':
			name := part[1:]
			if !isParamName(name) {
				return nil, fmt.Errorf("invalid param name %q in %q", name, path)
			}
			if seen[name] {
				return nil, fmt.Errorf("duplicate param %q in %q", name, path)
			}
			seen[name] = true
			if part[0] == '*' {
				if i != len(parts)-1 {
					return nil, fmt.Errorf("catch-all %q must be the last segment in %q", part, path)
				}
				b.WriteString(`(?:/(?P<` + name + `>.*))?`)
				continue
			}
			b.WriteString(`/(?P<` + name + `>[^/]+)`)
		default:
			b.WriteString("/" + regexp.QuoteMeta(part))
		}
	}
	b.WriteString(`/?$`)

	return regexp.Compile(b.String())
}

func isParamName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
