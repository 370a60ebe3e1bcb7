// Package routepath matches URL pathnames against route path specs.
//
// A Spec is one of three kinds:
//
//	routepath.Literal("/blogs")                 // exact string equality
//	routepath.MustPattern(`^/blog/(\d+)$`)      // regexp, capture groups become params
//	routepath.Func(func(p string) routepath.PredicateResult { ... })
//
// Segments compiles the familiar "/blog/:id" form into a Pattern spec.
// Matching is deterministic and has no side effects: compiled patterns carry
// no cursor state, so one Spec value is safe to share across goroutines and
// resolutions.
package routepath

import (
	"fmt"
	"regexp"
	"strconv"
)

// Params holds the parameters extracted from a matched path.
type Params map[string]string

// Kind discriminates the Spec variants.
type Kind uint8

const (
	KindLiteral Kind = iota
	KindPattern
	KindPredicate
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindPattern:
		return "pattern"
	case KindPredicate:
		return "predicate"
	default:
		return "unknown"
	}
}

// PredicateFunc decides whether a pathname matches.
type PredicateFunc func(pathname string) PredicateResult

// PredicateResult is the outcome of a PredicateFunc.
type PredicateResult struct {
	matched bool
	params  Params
}

// Matched reports a match with no params.
func Matched() PredicateResult { return PredicateResult{matched: true} }

// MatchedWith reports a match carrying params.
func MatchedWith(params Params) PredicateResult {
	return PredicateResult{matched: true, params: params}
}

// NoMatch reports that the pathname does not match.
func NoMatch() PredicateResult { return PredicateResult{} }

// Spec describes which pathnames a route accepts.
type Spec struct {
	kind      Kind
	literal   string
	pattern   *regexp.Regexp
	predicate PredicateFunc
}

// Literal matches a pathname by exact string equality. No trailing-slash or
// case normalization is applied.
func Literal(path string) Spec {
	return Spec{kind: KindLiteral, literal: path}
}

// Pattern matches pathnames accepted by re.
func Pattern(re *regexp.Regexp) Spec {
	if re == nil {
		panic("routepath: nil pattern")
	}
	return Spec{kind: KindPattern, pattern: re}
}

// MustPattern compiles expr and returns a Pattern spec. It panics if the
// expression does not compile.
func MustPattern(expr string) Spec {
	return Pattern(regexp.MustCompile(expr))
}

// Func matches pathnames with a custom predicate.
func Func(fn PredicateFunc) Spec {
	if fn == nil {
		panic("routepath: nil predicate")
	}
	return Spec{kind: KindPredicate, predicate: fn}
}

// Kind returns the spec variant.
func (s Spec) Kind() Kind { return s.kind }

// String describes the spec for logs.
func (s Spec) String() string {
	switch s.kind {
	case KindLiteral:
		return strconv.Quote(s.literal)
	case KindPattern:
		return "/" + s.pattern.String() + "/"
	case KindPredicate:
		return fmt.Sprintf("func(%p)", s.predicate)
	default:
		return "?"
	}
}

// Match tests pathname against spec.
//
// Literal specs match by equality with empty params. Pattern specs expose
// every capture group positionally ("0" is the whole match, then "1", "2",
// ...) and named groups additionally under their name; groups that did not
// participate are omitted. Predicate specs return whatever the predicate
// reports. A panicking predicate is not recovered.
func Match(pathname string, spec Spec) (Params, bool) {
	switch spec.kind {
	case KindLiteral:
		if pathname == spec.literal {
			return Params{}, true
		}
		return nil, false

	case KindPattern:
		loc := spec.pattern.FindStringSubmatchIndex(pathname)
		if loc == nil {
			return nil, false
		}
		names := spec.pattern.SubexpNames()
		params := make(Params, len(names))
		for i := range names {
			start, end := loc[2*i], loc[2*i+1]
			if start < 0 {
				continue
			}
			value := pathname[start:end]
			params[strconv.Itoa(i)] = value
			if names[i] != "" {
				params[names[i]] = value
			}
		}
		return params, true

	case KindPredicate:
		res := spec.predicate(pathname)
		if !res.matched {
			return nil, false
		}
		if res.params == nil {
			return Params{}, true
		}
		return res.params, true
	}
	return nil, false
}
