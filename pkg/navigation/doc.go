// Package navigation is the client-side router runtime.
//
// A Router ties together session history, the document, the route table,
// the static-state bridge and the transition machine:
//
//	r, err := navigation.New(navigation.Config{
//	    History:  history,
//	    Document: doc,
//	    Routes:   site.Routes(),
//	    Elements: registry,
//	})
//	err = r.Start(ctx)
//
// Links built with Router.Href intercept plain clicks and call Push, which
// makes sure page state is cached (fetching the prerendered state file when
// needed), renders the new route and hands it to the transition machine.
// History is only updated once the new view is ready. When state cannot be
// fetched the router falls back to a full document navigation.
//
// A document without a build id was not prerendered; the router then works
// as a plain router that never fetches state.
package navigation
