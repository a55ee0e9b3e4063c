package layer

import "github.com/google/uuid"

// Kind classifies what a binding (and the item projected from it)
// renders: live device status, a single metric value, a dispatchable
// command, or literal text/icon content.
type Kind string

// Kind constants.
const (
	KindDevice  Kind = "device"
	KindMetric  Kind = "metric"
	KindCommand Kind = "command"
	KindText    Kind = "text"
	KindIcon    Kind = "icon"
)

// AllKinds returns all valid kind values.
func AllKinds() []Kind {
	return []Kind{KindDevice, KindMetric, KindCommand, KindText, KindIcon}
}

// Valid reports whether the kind is one of the recognized values.
func (k Kind) Valid() bool {
	switch k {
	case KindDevice, KindMetric, KindCommand, KindText, KindIcon:
		return true
	default:
		return false
	}
}

// Live reports whether the kind reads from the device snapshot during
// projection. Only live kinds force a re-projection when telemetry
// values change without the device identity set changing.
func (k Kind) Live() bool {
	return k == KindMetric || k == KindDevice
}

// DataSource describes where a binding's content comes from.
// Which fields are meaningful depends on the binding kind:
//
//   - device:  DeviceID
//   - metric:  DeviceID + MetricID
//   - command: DeviceID + Command
//   - text:    Text
//   - icon:    Icon
//
// Unused fields stay empty and are omitted from JSON.
type DataSource struct {
	DeviceID string `json:"device_id,omitempty"`
	MetricID string `json:"metric_id,omitempty"`
	Command  string `json:"command,omitempty"`
	Text     string `json:"text,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// StyleHints carries free-form presentation hints (colour, font size,
// badge shape) from a binding through to its projected item. The engine
// never interprets them; they are passed to the render surface verbatim.
type StyleHints map[string]any

// Binding declaratively links a canvas position to a live data source.
//
// Bindings are owned by the dashboard configuration: the layer editor
// creates, edits, and deletes them, and the engine only ever projects
// them into items or rewrites their position on a drag commit. Identity
// is the ID; a nil Position means the binding has not been placed yet
// and projects to the canvas centre.
type Binding struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	Name       string     `json:"name,omitempty"`
	DataSource DataSource `json:"data_source"`
	Position   *Position  `json:"position,omitempty"`
	Style      StyleHints `json:"style,omitempty"`
}

// DeepCopy creates an independent copy of the binding. The position
// pointer and style map are cloned so edits to the copy never leak into
// the original list.
func (b Binding) DeepCopy() Binding {
	cpy := b
	if b.Position != nil {
		pos := *b.Position
		cpy.Position = &pos
	}
	cpy.Style = StyleHints(deepCopyMap(b.Style))
	return cpy
}

// CopyBindings clones a binding list element by element.
func CopyBindings(bindings []Binding) []Binding {
	if bindings == nil {
		return nil
	}
	out := make([]Binding, len(bindings))
	for i, b := range bindings {
		out[i] = b.DeepCopy()
	}
	return out
}

// HasLiveBindings reports whether any binding reads from the device
// snapshot. When false, wholesale snapshot replacements with an
// unchanged identity set can skip projection entirely.
func HasLiveBindings(bindings []Binding) bool {
	for _, b := range bindings {
		if b.Kind.Live() {
			return true
		}
	}
	return false
}

// GenerateID creates a new UUID for a binding or item.
func GenerateID() string {
	return uuid.New().String()
}
