// Package router declares routes and resolves URLs against them.
//
// A Table is an ordered list of entries. Resolution walks the table in
// declaration order and the first entry whose path spec matches wins, so
// more specific routes must be declared before general ones:
//
//	table := router.MustTable(
//	    router.Redirect(routepath.Literal("/log-in"), "/account"),
//	    router.Route(routepath.Literal("/blogs"),
//	        router.WithState(site.Blogs),
//	        router.WithRender(site.BlogList),
//	    ),
//	    router.Route(routepath.Segments("/blog/:id"),
//	        router.WithState(site.Blog),
//	        router.WithRender(site.BlogPost),
//	    ),
//	    router.Route(routepath.Literal("/"), router.WithChildren(home...)),
//	)
//
// Redirect entries are followed transparently: the caller only ever sees the
// final non-redirect entry and the URL it was resolved with. Redirect chains
// are bounded, and a chain that revisits a URL fails with ErrRedirectLoop.
//
// Render functions receive a Page whose State is JSON-plain data (see
// package statebridge), identical on the server and on the client.
package router
