// Package layer implements the live binding reconciliation engine behind
// Ridgeline's dashboard layers.
//
// A layer is a canvas of positioned items rendered by a wall panel or
// browser. The engine keeps that item collection consistent under three
// independently-changing inputs: a user-editable item list, a set of
// declarative bindings (live device/metric/command/text/icon content),
// and a continuously-replaced device telemetry snapshot that only a
// subset of bindings actually read. It avoids feedback loops, skips
// recomputation when unrelated state changes, supports drag-based
// repositioning in normalized coordinates, and reports changes upstream
// without update storms.
//
// # Architecture
//
//	       device snapshot                  pointer events / clicks
//	             │                                    │
//	             ▼                                    ▼
//	┌─────────────────────────┐          ┌─────────────────────────┐
//	│ Identity gate           │          │ Drag session            │
//	│ (snapshot.go)           │          │ (drag.go)               │
//	│ • ordered-id fingerprint│          │ • grab offset           │
//	│ • live-binding check    │          │ • clamped previews      │
//	└───────────┬─────────────┘          └───────────┬─────────────┘
//	            │ changed, or live bindings          │ commit on release
//	            ▼                                    ▼
//	┌─────────────────────────┐          ┌─────────────────────────┐
//	│ Projector               │          │ Shared commit path      │
//	│ (projector.go)          │          │ (engine.go)             │
//	│ • pure binding → item   │          │ • clamp [0, 95]         │
//	│ • placeholder degrades  │          │ • owned item + binding  │
//	└───────────┬─────────────┘          │   mirror                │
//	            │                        └───────────┬─────────────┘
//	            ▼                                    │
//	┌─────────────────────────────────────────────────────────────┐
//	│ Dual-mode item store (store.go)                              │
//	│ • binding-driven: projected cache authoritative              │
//	│ • item-owned: user-edited list authoritative                 │
//	└───────────┬─────────────────────────────────────────────────┘
//	            │ item-owned mutations
//	            ▼
//	┌─────────────────────────┐
//	│ Debounced notifier      │──▶ owner callback (latest list)
//	│ (notifier.go)           │
//	└─────────────────────────┘
//
// # Key Types
//
//   - Engine: serialized façade over the whole pipeline
//   - Binding: declarative link from a canvas position to a data source
//   - Item: the renderable, positioned entity actually drawn
//   - DeviceState: read-only view of one device in the snapshot
//   - Editor: thin authoring surface (binding CRUD, click-to-place)
//
// # Usage
//
//	eng := layer.New(layer.Options{Logger: log})
//	eng.SetCommander(commander)
//	eng.SetOnBindingsChange(func(bs []layer.Binding) {
//	    // persist the layer's bindings
//	})
//
//	eng.SetBindings(dashboardLayer.Bindings)
//	eng.SetDevices(registry.Snapshot())   // on every telemetry tick
//	items := eng.Items()                  // render these
//
//	// Drag an item on a 800×480 panel:
//	eng.SetEditMode(true)
//	eng.PointerDown(id, 120, 96, 800, 480)
//	eng.PointerMove(400, 240)
//	eng.PointerUp()                       // commits, mirrors, notifies
//
// # Concurrency
//
// Every entry point serializes on one mutex, reproducing the ordering of
// a single event queue: snapshot processing completes before the item
// list can be read, and commits never interleave. Callbacks run outside
// the lock so owners can call back in. Close cancels the pending
// notification timer and detaches all callbacks; later calls no-op.
//
// # Failure Policy
//
// There are no fatal errors inside the engine. Unresolvable device or
// metric references degrade to placeholders, command dispatch failures
// are logged and swallowed, and mutations against unknown ids do
// nothing. The canvas keeps rendering with partially stale
// configuration rather than going blank.
package layer
