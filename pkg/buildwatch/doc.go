// Package buildwatch announces new builds to running routers.
//
// The Hub is an HTTP handler that upgrades requests to WebSocket
// connections, sends the current build id on connect and broadcasts every
// published id. A Watcher dials a hub and forwards changed ids to a Target,
// typically a navigation.Router, so state files of the new build are
// fetched from then on.
//
//	{"type":"build","build_id":"2f1c..."}
package buildwatch
