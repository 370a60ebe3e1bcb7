// Package statebridge carries page state from prerendering to the client.
//
// While prerendering, a Producer runs the matched route's state mapper and
// takes a JSON-plain Snapshot of the result. Embed writes that snapshot into
// the page as a boot payload:
//
//	<script type="application/json" data-static-state="page.state">{...}</script>
//
// Next to every prerendered page the prerenderer also writes a state file,
// page.state.json, holding the same snapshot plus the custom element tags
// the page uses.
//
// On the client, a Bridge serves state from three places, in order:
//
//  1. the per-session cache (statecache)
//  2. the boot payload, consumed once for the first URL and then removed
//  3. the state file, fetched over HTTP during in-app navigation
//
// Render functions always receive the snapshot form, on the server and on
// the client, so the first paint and later hydration see identical values.
// Use Decode to turn plain state into typed Go values.
package statebridge
