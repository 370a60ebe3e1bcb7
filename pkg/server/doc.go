// Package server serves prerendered output over HTTP.
//
// Every URL path maps to a directory of the output tree: the document at
// <path>/index.html and the state file at <path>/page.state.json. Other
// files (scripts, styles) are served as they are. The server also exposes
// Prometheus metrics, a health check and, when a buildwatch hub is
// configured, the build-change WebSocket.
//
// Caching follows the build id: a state file requested with the current
// build id (?s=<id>) is immutable, documents always revalidate.
package server
