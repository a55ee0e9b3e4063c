package layer

import (
	"fmt"
	"sync"
)

// Editor is the thin host surface for authoring a layer's bindings:
// list, add, update, remove, plus the click-to-place flow. Selecting a
// binding arms positioning mode; the next placement call writes that
// binding's position through the engine's shared commit path, exactly
// as a drag release would. Compass presets are shorthand for the same
// write.
//
// All computation is delegated to the engine; the editor owns nothing
// but the armed selection.
type Editor struct {
	engine *Engine

	mu      sync.Mutex
	armedID string
}

// NewEditor creates an editor over an engine.
func NewEditor(engine *Engine) *Editor {
	return &Editor{engine: engine}
}

// Bindings returns a copy of the engine's current binding set.
func (ed *Editor) Bindings() []Binding {
	return ed.engine.Bindings()
}

// Add appends a binding to the set. A missing id is generated; a
// missing kind is rejected. The new binding is returned with its
// assigned id.
func (ed *Editor) Add(b Binding) (Binding, error) {
	if ed.engine.Closed() {
		return Binding{}, ErrEngineClosed
	}
	if !b.Kind.Valid() {
		return Binding{}, fmt.Errorf("%w: %q", ErrInvalidKind, b.Kind)
	}
	if b.ID == "" {
		b.ID = GenerateID()
	}

	bindings := ed.engine.Bindings()
	bindings = append(bindings, b.DeepCopy())
	ed.engine.SetBindings(bindings)
	return b, nil
}

// Update replaces the binding with the same id. Returns false when the
// id matches nothing.
func (ed *Editor) Update(b Binding) (bool, error) {
	if ed.engine.Closed() {
		return false, ErrEngineClosed
	}
	if !b.Kind.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidKind, b.Kind)
	}

	bindings := ed.engine.Bindings()
	found := false
	for i := range bindings {
		if bindings[i].ID == b.ID {
			bindings[i] = b.DeepCopy()
			found = true
		}
	}
	if !found {
		return false, nil
	}
	ed.engine.SetBindings(bindings)
	return true, nil
}

// Remove deletes the binding with the given id. Returns false when the
// id matches nothing. Removing the armed binding disarms placement.
func (ed *Editor) Remove(id string) bool {
	bindings := ed.engine.Bindings()
	next := bindings[:0]
	for _, b := range bindings {
		if b.ID != id {
			next = append(next, b)
		}
	}
	if len(next) == len(bindings) {
		return false
	}
	ed.engine.SetBindings(next)

	ed.mu.Lock()
	if ed.armedID == id {
		ed.armedID = ""
	}
	ed.mu.Unlock()
	return true
}

// Select arms positioning mode for a binding: the next PlaceAt call
// writes this binding's position. An empty id disarms. Returns false
// when the id matches no binding.
func (ed *Editor) Select(id string) bool {
	if id == "" {
		ed.mu.Lock()
		ed.armedID = ""
		ed.mu.Unlock()
		return true
	}

	found := false
	for _, b := range ed.engine.Bindings() {
		if b.ID == id {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	ed.mu.Lock()
	ed.armedID = id
	ed.mu.Unlock()
	return true
}

// Selected returns the armed binding id, or empty when disarmed.
func (ed *Editor) Selected() string {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.armedID
}

// PlaceAt writes the armed binding's position from normalized canvas
// coordinates, through the same commit path as a drag release (clamped,
// mirrored, bindings-changed callback fired). Returns false when
// nothing is armed or the armed binding no longer exists.
func (ed *Editor) PlaceAt(x, y float64) bool {
	ed.mu.Lock()
	id := ed.armedID
	ed.mu.Unlock()

	if id == "" {
		return false
	}
	return ed.engine.SetPosition(id, Position{X: x, Y: y})
}

// ApplyPreset writes one of the nine compass-point positions to the
// given binding through the commit path. Returns false for unknown
// presets or ids.
func (ed *Editor) ApplyPreset(id string, preset Preset) bool {
	pos, ok := PresetPosition(preset)
	if !ok {
		return false
	}
	return ed.engine.SetPosition(id, pos)
}
