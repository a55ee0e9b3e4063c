package layer

import "testing"

func TestStore_ApplyMode(t *testing.T) {
	t.Run("starts item-owned", func(t *testing.T) {
		s := newStore()
		if s.mode != ModeItemOwned {
			t.Errorf("mode = %q, want item_owned", s.mode)
		}
	})

	t.Run("bindings present switches to binding-driven", func(t *testing.T) {
		s := newStore()
		if got := s.applyMode(true); got != ModeBindingDriven {
			t.Errorf("applyMode(true) = %q, want binding_driven", got)
		}
	})

	t.Run("entering item-owned clears projected cache", func(t *testing.T) {
		s := newStore()
		s.applyMode(true)
		s.setProjected([]Item{{ID: "p1"}})

		s.applyMode(false)
		if s.projected != nil {
			t.Error("projected cache not cleared on entering item-owned")
		}
	})

	t.Run("entering binding-driven preserves owned list", func(t *testing.T) {
		s := newStore()
		s.setOwned([]Item{{ID: "mine"}})

		s.applyMode(true)
		if len(s.owned) != 1 || s.owned[0].ID != "mine" {
			t.Error("owned list was disturbed by entering binding-driven")
		}

		// Dropping all bindings falls back to the preserved items.
		s.applyMode(false)
		items := s.items()
		if len(items) != 1 || items[0].ID != "mine" {
			t.Errorf("fallback items = %v, want the preserved owned list", items)
		}
	})
}

func TestStore_Items(t *testing.T) {
	s := newStore()
	s.setOwned([]Item{{ID: "own"}})
	s.applyMode(true)
	s.setProjected([]Item{{ID: "proj"}})

	if got := s.items(); len(got) != 1 || got[0].ID != "proj" {
		t.Errorf("binding-driven items = %v, want projected list", got)
	}

	s.applyMode(false)
	if got := s.items(); len(got) != 1 || got[0].ID != "own" {
		t.Errorf("item-owned items = %v, want owned list", got)
	}
}

func TestStore_AddItem(t *testing.T) {
	s := newStore()

	it := s.addItem(Item{Label: "Boiler", Kind: KindCommand})

	if it.ID == "" {
		t.Error("ID was not generated")
	}
	if it.Position != (Position{X: 50, Y: 50}) {
		t.Errorf("Position = %v, want canvas centre", it.Position)
	}
	if it.Visible == nil || !*it.Visible {
		t.Error("new item should be explicitly visible")
	}
	if it.Locked {
		t.Error("new item should be unlocked")
	}
	if !it.Draggable {
		t.Error("new item should be draggable")
	}
	if it.Kind != KindCommand || it.Label != "Boiler" {
		t.Errorf("content = (%q, %q), want caller's kind and label", it.Kind, it.Label)
	}

	t.Run("empty kind defaults to text", func(t *testing.T) {
		it := s.addItem(Item{})
		if it.Kind != KindText {
			t.Errorf("Kind = %q, want text default", it.Kind)
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		a := s.addItem(Item{})
		b := s.addItem(Item{})
		if a.ID == b.ID {
			t.Error("generated ids collide")
		}
	})
}

func TestStore_ToggleVisibility(t *testing.T) {
	s := newStore()
	it := s.addItem(Item{})

	// Creation state is explicit true; first toggle hides.
	if !s.toggleVisibility(it.ID) {
		t.Fatal("toggleVisibility() = false for existing item")
	}
	got := s.owned[0]
	if got.Visible == nil || *got.Visible {
		t.Errorf("after first toggle Visible = %v, want explicit false", got.Visible)
	}

	// Second toggle clears the field back to default-visible.
	s.toggleVisibility(it.ID)
	got = s.owned[0]
	if got.Visible != nil {
		t.Errorf("after second toggle Visible = %v, want nil (default visible)", got.Visible)
	}
	if !got.IsVisible() {
		t.Error("default state should render as visible")
	}

	// Third toggle hides again.
	s.toggleVisibility(it.ID)
	got = s.owned[0]
	if got.Visible == nil || *got.Visible {
		t.Errorf("after third toggle Visible = %v, want explicit false", got.Visible)
	}

	t.Run("unknown id is a no-op", func(t *testing.T) {
		if s.toggleVisibility("ghost") {
			t.Error("toggleVisibility(ghost) reported a change")
		}
	})
}

func TestStore_ToggleLock(t *testing.T) {
	s := newStore()
	it := s.addItem(Item{})

	s.toggleLock(it.ID)
	if !s.owned[0].Locked {
		t.Error("first toggle should lock")
	}
	s.toggleLock(it.ID)
	if s.owned[0].Locked {
		t.Error("second toggle should unlock")
	}

	if s.toggleLock("ghost") {
		t.Error("toggleLock(ghost) reported a change")
	}
}

func TestStore_SetPosition(t *testing.T) {
	s := newStore()
	it := s.addItem(Item{})

	t.Run("commits clamped position", func(t *testing.T) {
		if !s.setPosition(it.ID, Position{X: 120, Y: -3}) {
			t.Fatal("setPosition() = false for existing item")
		}
		got := s.owned[0].Position
		if got != (Position{X: 95, Y: 0}) {
			t.Errorf("Position = %v, want clamped {95 0}", got)
		}
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		if s.setPosition("ghost", Position{X: 1, Y: 1}) {
			t.Error("setPosition(ghost) reported a change")
		}
	})
}

func TestStore_MutationReplacesList(t *testing.T) {
	s := newStore()
	it := s.addItem(Item{})

	before := s.items()
	s.setPosition(it.ID, Position{X: 10, Y: 10})

	// The previously obtained slice must not change underneath a caller:
	// mutations rebuild the list rather than writing in place.
	if before[0].Position != (Position{X: 50, Y: 50}) {
		t.Errorf("earlier snapshot mutated in place: %v", before[0].Position)
	}
	if s.items()[0].Position != (Position{X: 10, Y: 10}) {
		t.Errorf("current list missing committed position")
	}
}
