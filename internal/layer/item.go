package layer

// Status is the resolved reachability of the device behind an item.
// The zero value means no status is known (the binding references no
// device, or the device is absent from the snapshot) and the render
// surface draws no status dot.
type Status string

// Status constants.
const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// PlaceholderValue is rendered when a metric binding cannot be resolved
// against the current device snapshot.
const PlaceholderValue = "--"

// Size is an optional explicit item size in normalized units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Item is the renderable, positioned entity actually drawn on the
// canvas. Items have two provenances:
//
//   - Binding-derived: produced fresh by the projector every time the
//     bindings or the relevant device snapshot change. Ephemeral; never
//     mutated in place.
//   - Item-owned: created by direct user action inside the engine's own
//     store. Persists across update cycles until explicitly changed and
//     is authoritative whenever no bindings are supplied.
//
// Visible is a tri-state: nil means "default visible"; only an explicit
// false hides the item. This mirrors how toggling works — hiding sets
// false, unhiding clears the field rather than writing true.
type Item struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"kind"`
	Position Position `json:"position"`
	Size     *Size    `json:"size,omitempty"`

	// Content fields populated according to Kind.
	Label      string `json:"label,omitempty"`
	Value      any    `json:"value,omitempty"`
	Icon       string `json:"icon,omitempty"`
	DeviceRef  string `json:"device_ref,omitempty"`
	MetricRef  string `json:"metric_ref,omitempty"`
	Command    string `json:"command,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
	Status     Status `json:"status,omitempty"`

	Style StyleHints `json:"style,omitempty"`

	// Interaction state.
	Visible   *bool `json:"visible,omitempty"`
	Locked    bool  `json:"locked"`
	Draggable bool  `json:"draggable"`
}

// IsVisible reports whether the item should be rendered. Only an
// explicit Visible=false hides an item.
func (it *Item) IsVisible() bool {
	return it.Visible == nil || *it.Visible
}

// DeepCopy creates an independent copy of the item. Pointer and map
// fields are cloned so the engine's stores stay isolated from whatever
// the render surface does with the returned list.
func (it Item) DeepCopy() Item {
	cpy := it
	if it.Size != nil {
		size := *it.Size
		cpy.Size = &size
	}
	if it.Visible != nil {
		vis := *it.Visible
		cpy.Visible = &vis
	}
	cpy.Style = StyleHints(deepCopyMap(it.Style))
	cpy.Value = deepCopyValue(it.Value)
	return cpy
}

// CopyItems clones an item list element by element.
func CopyItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.DeepCopy()
	}
	return out
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives (string, bool, int, float64, etc.) are safe to copy by value
		return v
	}
}
