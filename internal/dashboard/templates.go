package dashboard

// Built-in template ids.
const (
	TemplateOverview = "overview"
	TemplateBlank    = "blank"
)

// Templates returns the built-in dashboard templates. The slice is
// rebuilt on every call so callers may modify it freely.
func Templates() []Template {
	return []Template{
		{
			ID:          TemplateOverview,
			Name:        "Overview",
			Description: "System overview with a layer prepared for device bindings",
			Category:    "overview",
			Icon:        "layout-dashboard",
			Layers: []Layer{
				{Name: "Overview"},
			},
		},
		{
			ID:          TemplateBlank,
			Name:        "Blank Canvas",
			Description: "Start from scratch with a single empty layer",
			Category:    "custom",
			Icon:        "square",
			Layers: []Layer{
				{Name: "Canvas"},
			},
		},
	}
}

// FindTemplate returns the built-in template with the given id.
func FindTemplate(id string) (Template, bool) {
	for _, t := range Templates() {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Instantiate builds a new dashboard from a template. Layers receive
// fresh ids; the dashboard id is left empty for the store to generate.
func Instantiate(t Template, name string) *Dashboard {
	if name == "" {
		name = t.Name
	}
	d := &Dashboard{
		Name:   name,
		Layers: make([]Layer, len(t.Layers)),
	}
	for i, l := range t.Layers {
		d.Layers[i] = l.DeepCopy()
	}
	stampLayerIDs(d.Layers)
	return d
}
