// Package prerender generates the static output of a site at build time.
//
// For every URL it resolves the route, produces page state, renders the
// view into the outlet of an HTML shell and writes two files under the
// URL's directory:
//
//	<path>/index.html       document with build id and boot payload
//	<path>/page.state.json  {"page.state": ..., "components": [...]}
//
// Output goes to a Sink: a local directory (DirSink) or an S3 bucket
// (S3Sink).
package prerender
