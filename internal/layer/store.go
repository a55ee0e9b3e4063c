package layer

// Mode identifies which item list is authoritative.
//
// Exactly one provenance is authoritative at any time, determined solely
// by whether a non-empty binding set is present. The explicit tag (rather
// than two conditionally-read lists) makes the "which list is real"
// question answerable in one place.
type Mode string

// Mode constants.
const (
	// ModeBindingDriven means items are projected from bindings; the
	// owned list is dormant but preserved.
	ModeBindingDriven Mode = "binding_driven"

	// ModeItemOwned means the user-editable item list is authoritative.
	ModeItemOwned Mode = "item_owned"
)

// store holds both item provenances and the mode tag that says which one
// is real. It is not safe for concurrent use; the engine serializes all
// access.
type store struct {
	mode      Mode
	owned     []Item // user-editable list, authoritative in ModeItemOwned
	projected []Item // binding-derived cache, authoritative in ModeBindingDriven
}

func newStore() *store {
	return &store{mode: ModeItemOwned}
}

// applyMode evaluates the transition rule for one update cycle:
// binding-driven iff bindings are present. Entering item-owned clears
// the binding-derived cache (frees memory, prevents stale reads).
// Entering binding-driven leaves the owned list intact so removing all
// bindings later falls back to previously edited items rather than an
// empty canvas.
func (s *store) applyMode(bindingsPresent bool) Mode {
	next := ModeItemOwned
	if bindingsPresent {
		next = ModeBindingDriven
	}
	if next == s.mode {
		return s.mode
	}
	s.mode = next
	if next == ModeItemOwned {
		s.projected = nil
	}
	return next
}

// items returns the authoritative list for the current mode.
// The caller must copy before handing the result outside the engine.
func (s *store) items() []Item {
	if s.mode == ModeBindingDriven {
		return s.projected
	}
	return s.owned
}

// setProjected replaces the binding-derived cache.
func (s *store) setProjected(items []Item) {
	s.projected = items
}

// setOwned replaces the user-editable list wholesale.
func (s *store) setOwned(items []Item) {
	s.owned = items
}

// addItem appends a new user-authored item: generated id, canvas centre,
// visible, unlocked, draggable. Content fields (kind, label, value,
// icon, style) are taken from defaults; an empty kind becomes text.
func (s *store) addItem(defaults Item) Item {
	it := defaults
	it.ID = GenerateID()
	it.Position = DefaultPosition()
	visible := true
	it.Visible = &visible
	it.Locked = false
	it.Draggable = true
	if it.Kind == "" {
		it.Kind = KindText
	}

	next := make([]Item, 0, len(s.owned)+1)
	next = append(next, s.owned...)
	next = append(next, it)
	s.owned = next

	return it
}

// toggleVisibility flips an item between hidden (explicit false) and
// default-visible (field cleared). Unknown ids are a no-op.
func (s *store) toggleVisibility(id string) bool {
	return s.mutate(id, func(it Item) Item {
		if it.Visible != nil && !*it.Visible {
			it.Visible = nil
		} else {
			hidden := false
			it.Visible = &hidden
		}
		return it
	})
}

// toggleLock flips an item's locked flag. Unknown ids are a no-op.
func (s *store) toggleLock(id string) bool {
	return s.mutate(id, func(it Item) Item {
		it.Locked = !it.Locked
		return it
	})
}

// setPosition commits a clamped position onto an owned item.
// Unknown ids are a no-op.
func (s *store) setPosition(id string, pos Position) bool {
	clamped := pos.Clamp()
	return s.mutate(id, func(it Item) Item {
		it.Position = clamped
		return it
	})
}

// mutate replaces the owned list with a copy in which the matching item
// has been transformed. The whole list is rebuilt on every mutation so
// no callback ever holds a slice that is modified in place underneath
// it. Returns false when the id matched nothing.
func (s *store) mutate(id string, fn func(Item) Item) bool {
	changed := false
	next := make([]Item, len(s.owned))
	for i, it := range s.owned {
		if it.ID == id {
			next[i] = fn(it.DeepCopy())
			changed = true
		} else {
			next[i] = it
		}
	}
	if changed {
		s.owned = next
	}
	return changed
}
