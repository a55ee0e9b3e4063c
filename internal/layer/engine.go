package layer

import (
	"context"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Engine.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Commander dispatches a command-kind item's action to the device it
// references. Implemented by the device package's MQTT command
// publisher; swapped for a mock in tests.
type Commander interface {
	ExecuteCommand(ctx context.Context, deviceID, command string) error
}

// DefaultDebounceWindow is the quiescence interval after the last
// item-owned mutation before the owner is notified.
const DefaultDebounceWindow = 400 * time.Millisecond

// Options configures a new Engine.
type Options struct {
	// DebounceWindow overrides DefaultDebounceWindow. Zero keeps the
	// default; tests shrink it to keep runs fast.
	DebounceWindow time.Duration

	// Logger receives dispatch failures and reconciliation diagnostics.
	// Nil means silent.
	Logger Logger
}

// Stats is a point-in-time view of the engine's reconciliation counters,
// exposed for the system API and for verifying that snapshot gating
// actually suppresses recomputation.
type Stats struct {
	Mode             Mode `json:"mode"`
	Bindings         int  `json:"bindings"`
	Devices          int  `json:"devices"`
	Items            int  `json:"items"`
	Projections      int  `json:"projections"`
	SnapshotsSkipped int  `json:"snapshots_skipped"`
	EditMode         bool `json:"edit_mode"`
}

// Engine keeps a renderable collection of positioned items consistent
// under three independently-changing inputs: a user-editable item list,
// a declarative binding set, and a continuously-replaced device
// snapshot.
//
// All entry points serialize on one mutex, giving the same ordering
// guarantees a single event queue would: snapshot processing always
// completes before the item list can be read for rendering, and drag
// commits never interleave. Callbacks are invoked outside the lock so
// owners may call back into the engine.
//
// Close cancels the pending notification timer and detaches every
// callback; all later calls are no-ops.
type Engine struct {
	mu sync.Mutex

	bindings  []Binding
	devices   []DeviceState
	deviceIDs []string

	store    *store
	drag     dragSession
	notifier *notifier

	editMode   bool
	selectedID string
	closed     bool

	projections      int
	snapshotsSkipped int

	onItemsChange    func([]Item)
	onBindingsChange func([]Binding)
	onLayerClick     func(x, y float64)
	commander        Commander

	logger Logger
}

// New creates an engine with empty inputs in item-owned mode.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	e := &Engine{
		store:  newStore(),
		logger: logger,
	}
	e.notifier = newNotifier(opts.DebounceWindow, e.deliverItems)
	return e
}

// SetOnItemsChange registers the debounced owner notification for
// item-owned mutations. Pass nil to detach.
func (e *Engine) SetOnItemsChange(fn func(items []Item)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onItemsChange = fn
}

// SetOnBindingsChange registers the synchronous callback fired whenever
// a commit rewrites a binding position. Pass nil to detach.
func (e *Engine) SetOnBindingsChange(fn func(bindings []Binding)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onBindingsChange = fn
}

// SetOnLayerClick registers the raw canvas-click callback used by the
// editor's click-to-place flow. Pass nil to detach.
func (e *Engine) SetOnLayerClick(fn func(x, y float64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onLayerClick = fn
}

// SetCommander wires the command dispatcher for command-kind items.
func (e *Engine) SetCommander(c Commander) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commander = c
}

// SetBindings replaces the binding set and runs one update cycle: the
// mode transition is evaluated, and in binding-driven mode the full set
// is re-projected against the current snapshot.
//
// The incoming list is deep-copied; the caller keeps ownership of its
// slice.
func (e *Engine) SetBindings(bindings []Binding) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.bindings = CopyBindings(bindings)
	prev := e.store.mode
	mode := e.store.applyMode(len(e.bindings) > 0)
	if mode != prev {
		e.logger.Debug("layer mode transition", "from", prev, "to", mode)
	}
	if mode == ModeBindingDriven {
		e.projectLocked()
	}
}

// SetItems replaces the user-editable item list. Used by the owner to
// seed or restore item-owned content; the supplied list becomes the
// notifier baseline and any pending notification is cancelled, so the
// owner never hears an echo of its own write.
func (e *Engine) SetItems(items []Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.store.setOwned(CopyItems(items))
	e.notifier.rebase(e.store.owned)
}

// SetDevices replaces the device snapshot and decides whether
// re-projection is necessary. Projection runs only in binding-driven
// mode, and only when the snapshot identity changed or a live
// (metric/device) binding needs fresh values. Everything else is
// skipped — the backpressure mechanism against high-frequency telemetry
// ticks.
//
// The snapshot is treated as read-only and is not copied.
func (e *Engine) SetDevices(devices []DeviceState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	ids := SnapshotIDs(devices)
	identityChanged := IdentityChanged(e.deviceIDs, ids)
	e.devices = devices
	e.deviceIDs = ids

	if e.store.mode == ModeBindingDriven && (identityChanged || HasLiveBindings(e.bindings)) {
		e.projectLocked()
		return
	}
	e.snapshotsSkipped++
}

// SetEditMode toggles drag/placement interactions. Leaving edit mode
// abandons any in-flight drag without committing.
func (e *Engine) SetEditMode(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.editMode = on
	if !on {
		e.drag.reset()
	}
}

// EditMode reports whether edit interactions are enabled.
func (e *Engine) EditMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editMode
}

// Mode reports which item provenance is currently authoritative.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.mode
}

// Items returns a deep copy of the authoritative item list.
func (e *Engine) Items() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CopyItems(e.store.items())
}

// Bindings returns a deep copy of the current binding set.
func (e *Engine) Bindings() []Binding {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CopyBindings(e.bindings)
}

// SelectedID returns the id of the currently selected item, or empty.
func (e *Engine) SelectedID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedID
}

// Select marks an item in the authoritative list as selected.
// An empty id clears the selection. Unknown ids are a no-op.
func (e *Engine) Select(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	if id == "" {
		e.selectedID = ""
		return true
	}
	if _, ok := e.itemByID(id); !ok {
		return false
	}
	e.selectedID = id
	return true
}

// AddItem appends a new user-authored item and selects it. Only content
// fields of defaults are honoured; id, position, visibility, lock state,
// and draggability are engine-assigned. Valid in item-owned mode only.
func (e *Engine) AddItem(defaults Item) (Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.store.mode != ModeItemOwned {
		return Item{}, false
	}

	it := e.store.addItem(defaults)
	e.selectedID = it.ID
	e.noteOwnedMutation()
	return it.DeepCopy(), true
}

// ToggleVisibility flips an item between hidden and default-visible.
// Valid in item-owned mode only; unknown ids are a no-op.
func (e *Engine) ToggleVisibility(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.store.mode != ModeItemOwned {
		return false
	}
	if !e.store.toggleVisibility(id) {
		return false
	}
	e.noteOwnedMutation()
	return true
}

// ToggleLock flips an item's locked flag. Valid in item-owned mode
// only; unknown ids are a no-op.
func (e *Engine) ToggleLock(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.store.mode != ModeItemOwned {
		return false
	}
	if !e.store.toggleLock(id) {
		return false
	}
	e.noteOwnedMutation()
	return true
}

// SetPosition commits a clamped position for the given id through the
// shared commit path: the owned item is updated when it exists, and a
// matching binding's position is rewritten so the two representations
// never diverge. Rewriting a binding re-projects and fires the
// bindings-changed callback synchronously.
func (e *Engine) SetPosition(id string, pos Position) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}

	res := e.commitPosition(id, pos)
	cb := e.onBindingsChange
	e.mu.Unlock()

	if res.bindingChanged && cb != nil {
		cb(res.bindings)
	}
	return res.ownedChanged || res.bindingChanged
}

// PointerDown starts a drag session for an item. It succeeds only in
// edit mode, on a draggable, unlocked item present in the authoritative
// list, inside a non-degenerate container.
func (e *Engine) PointerDown(itemID string, pointerX, pointerY, containerWidth, containerHeight float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || !e.editMode {
		return false
	}

	it, ok := e.itemByID(itemID)
	if !ok || !it.Draggable || it.Locked {
		return false
	}

	return e.drag.begin(itemID, pointerX, pointerY, it.Position, containerWidth, containerHeight)
}

// PointerMove advances an active drag session and returns the clamped
// preview position. The preview is not committed; the render surface
// moves the item visually while the stores stay untouched.
func (e *Engine) PointerMove(pointerX, pointerY float64) (Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return Position{}, false
	}
	return e.drag.move(pointerX, pointerY)
}

// PointerUp ends the drag session and commits the last preview position
// through the shared commit path. Releasing without having moved ends
// the session without committing. There is no cancel: release always
// commits the last computed preview.
func (e *Engine) PointerUp() (Position, bool) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Position{}, false
	}

	id, pos, ok := e.drag.end()
	if !ok {
		e.mu.Unlock()
		return Position{}, false
	}

	res := e.commitPosition(id, pos)
	cb := e.onBindingsChange
	e.mu.Unlock()

	if res.bindingChanged && cb != nil {
		cb(res.bindings)
	}
	return pos, true
}

// Click converts a canvas click into raw normalized coordinates and
// hands them to the layer-click callback. The coordinates are
// deliberately not clamped; placement decisions belong to the editor's
// commit path.
func (e *Engine) Click(pointerX, pointerY, containerWidth, containerHeight float64) (Position, bool) {
	if containerWidth <= 0 || containerHeight <= 0 {
		return Position{}, false
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Position{}, false
	}
	cb := e.onLayerClick
	e.mu.Unlock()

	pos := FromPixels(pointerX, pointerY, containerWidth, containerHeight)
	if cb != nil {
		cb(pos.X, pos.Y)
	}
	return pos, true
}

// ExecuteCommand dispatches a command-kind item's action. The result is
// awaited; failures are logged and never surfaced to the item — the
// canvas keeps rendering regardless of dispatch outcome. Unknown ids
// and non-command items are a no-op.
func (e *Engine) ExecuteCommand(ctx context.Context, itemID string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	it, ok := e.itemByID(itemID)
	commander := e.commander
	e.mu.Unlock()

	if !ok {
		e.logger.Debug("command item not found", "item_id", itemID)
		return
	}
	if it.Kind != KindCommand || it.DeviceRef == "" || it.Command == "" {
		e.logger.Debug("item is not dispatchable", "item_id", itemID, "kind", it.Kind)
		return
	}
	if commander == nil {
		e.logger.Warn("no commander configured", "item_id", itemID)
		return
	}

	if err := commander.ExecuteCommand(ctx, it.DeviceRef, it.Command); err != nil {
		e.logger.Error("command dispatch failed",
			"item_id", itemID,
			"device_id", it.DeviceRef,
			"command", it.Command,
			"error", err,
		)
	}
}

// Closed reports whether the engine has been shut down.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Stats returns the engine's reconciliation counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Mode:             e.store.mode,
		Bindings:         len(e.bindings),
		Devices:          len(e.devices),
		Items:            len(e.store.items()),
		Projections:      e.projections,
		SnapshotsSkipped: e.snapshotsSkipped,
		EditMode:         e.editMode,
	}
}

// Close cancels any pending notification timer, abandons an in-flight
// drag, and detaches every callback. All subsequent calls are no-ops,
// so a late timer fire or a straggling pointer event can never write
// into a torn-down owner.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.notifier.cancel()
	e.drag.reset()
	e.onItemsChange = nil
	e.onBindingsChange = nil
	e.onLayerClick = nil
	e.commander = nil
}

// commitResult reports what one position commit touched.
type commitResult struct {
	ownedChanged   bool
	bindingChanged bool
	bindings       []Binding // deep copy for the callback when bindingChanged
}

// commitPosition is the single commit path shared by SetPosition, drag
// release, and editor placement. The position is clamped once, written
// to the owned item when present, and mirrored into the matching
// binding when present. Either side missing the id is a no-op for that
// side.
func (e *Engine) commitPosition(id string, pos Position) commitResult {
	clamped := pos.Clamp()
	var res commitResult

	if e.store.setPosition(id, clamped) {
		res.ownedChanged = true
		e.noteOwnedMutation()
	}

	if e.rewriteBindingPosition(id, clamped) {
		res.bindingChanged = true
		e.projectLocked()
		res.bindings = CopyBindings(e.bindings)
	}

	return res
}

// rewriteBindingPosition replaces the binding list with a copy in which
// the matching binding carries the new position. All other bindings are
// untouched. The list is rebuilt rather than written in place so copies
// handed to earlier callbacks stay stable.
func (e *Engine) rewriteBindingPosition(id string, pos Position) bool {
	changed := false
	next := make([]Binding, len(e.bindings))
	for i, b := range e.bindings {
		if b.ID == id {
			p := pos
			b.Position = &p
			changed = true
		}
		next[i] = b
	}
	if changed {
		e.bindings = next
	}
	return changed
}

// projectLocked re-runs the full projection against the current
// snapshot. Caller holds the engine mutex.
func (e *Engine) projectLocked() {
	e.projections++
	e.store.setProjected(ProjectAll(e.bindings, SnapshotLookup(e.devices)))
}

// noteOwnedMutation feeds the notifier after an item-owned mutation.
// The notifier is only armed while the owned list is authoritative.
func (e *Engine) noteOwnedMutation() {
	if e.store.mode != ModeItemOwned {
		return
	}
	e.notifier.note(e.store.owned)
}

// deliverItems is the notifier's fire callback. It re-enters the engine,
// re-checks that a notification is still warranted (the burst may have
// ended back at the last notified state, the mode may have flipped, the
// engine may have closed), and delivers a deep copy of the current list
// outside the lock.
func (e *Engine) deliverItems() {
	e.mu.Lock()
	if e.closed || e.store.mode != ModeItemOwned || e.onItemsChange == nil {
		e.mu.Unlock()
		return
	}
	if !e.notifier.changedSinceNotified(e.store.owned) {
		e.mu.Unlock()
		return
	}

	items := CopyItems(e.store.owned)
	e.notifier.recordNotified(e.store.owned)
	cb := e.onItemsChange
	e.mu.Unlock()

	cb(items)
}

// itemByID scans the authoritative list. Caller holds the engine mutex.
func (e *Engine) itemByID(id string) (Item, bool) {
	for _, it := range e.store.items() {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
