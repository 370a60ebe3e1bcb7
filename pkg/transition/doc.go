// Package transition decides when a newly matched view replaces the visible
// one.
//
// Every navigation stamps a generation with Machine.Begin and then calls
// Machine.Show. The new content is queued as a hidden view while the old one
// keeps showing. When every custom element in the new content that is not
// yet defined reports ready, the queued view becomes active, all other views
// are dropped and the caller's commit function runs. A navigation that was
// overtaken by a newer Begin never commits.
//
//	QUEUED ──ready──▶ ACTIVE ──newer view ready──▶ (removed)
//	   │                 │
//	   └──replaced──▶ (removed)
//	                     └──newer view queued──▶ LEAVING
package transition
