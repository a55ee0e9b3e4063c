package dashboard

import (
	"time"

	"github.com/ridgelinehome/ridgeline-core/internal/layer"
)

// Dashboard is a named collection of canvas layers shown on a wall
// panel or browser. Exactly one dashboard may be flagged as the
// default; that is the one a panel opens when it connects without
// asking for anything specific.
type Dashboard struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Default flag. Maintained by Store.SetDefault, which clears the
	// flag on every other dashboard in the same transaction.
	IsDefault bool `json:"is_default"`

	// Layers are ordered as rendered, first at the back.
	Layers []Layer `json:"layers"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Layer is one canvas of a dashboard. A layer carries either bindings
// (the engine projects them into items against live telemetry) or a
// directly-edited item list; when both are present the bindings win
// and the items remain as the stored fallback.
type Layer struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Bindings []layer.Binding `json:"bindings,omitempty"`
	Items    []layer.Item    `json:"items,omitempty"`
}

// DeepCopy creates a complete independent copy of the Dashboard.
// Layer slices and their binding/item contents are cloned so
// modifications to the copy do not affect the original. This is
// essential for cache isolation.
func (d *Dashboard) DeepCopy() *Dashboard {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	if d.Layers != nil {
		cpy.Layers = make([]Layer, len(d.Layers))
		for i, l := range d.Layers {
			cpy.Layers[i] = l.DeepCopy()
		}
	}

	return &cpy
}

// DeepCopy creates an independent copy of the layer.
func (l Layer) DeepCopy() Layer {
	cpy := l
	cpy.Bindings = layer.CopyBindings(l.Bindings)
	cpy.Items = layer.CopyItems(l.Items)
	return cpy
}

// FindLayer returns the index of the layer with the given id, or -1.
func (d *Dashboard) FindLayer(layerID string) int {
	for i := range d.Layers {
		if d.Layers[i].ID == layerID {
			return i
		}
	}
	return -1
}

// Template describes a starting point for new dashboards. Templates
// are built in, not stored; instantiating one stamps fresh ids onto
// its layers.
type Template struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Icon        string  `json:"icon,omitempty"`
	Layers      []Layer `json:"layers"`
}
