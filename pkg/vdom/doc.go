// Package vdom provides the view output model used by the router.
//
// A route's render function returns a VNode tree. The tree is rendered to
// HTML during prerendering (see package render) and inspected by the
// transition machine on the client to find custom elements whose
// implementation may still be loading.
//
// # Core Types
//
// VNode is the fundamental building block representing elements, text,
// fragments and raw HTML. Props holds attributes and event handlers.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), ID("main"),
//	    H1("Title"),
//	    P("Content"),
//	    El("blog-post", Data("id", id)),
//	)
//
// # Custom Elements
//
// Any element whose tag contains a hyphen is a custom element. Walk and
// CustomElements let callers visit those instances in document order.
package vdom
