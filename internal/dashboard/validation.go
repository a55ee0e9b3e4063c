package dashboard

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ridgelinehome/ridgeline-core/internal/layer"
)

// Validation constants.
const (
	maxNameLength      = 100
	maxLayers          = 20
	maxBindingsPerPage = 200
	maxItemsPerPage    = 200
)

// ValidateDashboard performs validation on a dashboard.
// Returns an error describing the first validation failure found.
func ValidateDashboard(d *Dashboard) error {
	if d == nil {
		return ErrInvalidDashboard
	}

	if err := ValidateName(d.Name); err != nil {
		return err
	}

	if len(d.Layers) > maxLayers {
		return fmt.Errorf("%w: exceeds maximum of %d layers", ErrInvalidDashboard, maxLayers)
	}

	seen := make(map[string]struct{}, len(d.Layers))
	for i := range d.Layers {
		l := &d.Layers[i]
		if err := ValidateName(l.Name); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		if l.ID != "" {
			if _, dup := seen[l.ID]; dup {
				return fmt.Errorf("%w: duplicate layer id %q", ErrInvalidDashboard, l.ID)
			}
			seen[l.ID] = struct{}{}
		}
		if err := validateLayerContent(l); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}

	return nil
}

// validateLayerContent checks binding/item counts and kinds.
func validateLayerContent(l *Layer) error {
	if len(l.Bindings) > maxBindingsPerPage {
		return fmt.Errorf("%w: exceeds maximum of %d bindings", ErrInvalidDashboard, maxBindingsPerPage)
	}
	if len(l.Items) > maxItemsPerPage {
		return fmt.Errorf("%w: exceeds maximum of %d items", ErrInvalidDashboard, maxItemsPerPage)
	}
	for _, b := range l.Bindings {
		if !b.Kind.Valid() {
			return fmt.Errorf("%w: binding %q has unknown kind %q", ErrInvalidDashboard, b.ID, b.Kind)
		}
	}
	for _, it := range l.Items {
		if !it.Kind.Valid() {
			return fmt.Errorf("%w: item %q has unknown kind %q", ErrInvalidDashboard, it.ID, it.Kind)
		}
	}
	return nil
}

// ValidateName checks if a dashboard or layer name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// GenerateID creates a new UUID for a dashboard or layer.
func GenerateID() string {
	return uuid.New().String()
}

// stampLayerIDs assigns fresh ids to any layer missing one.
func stampLayerIDs(layers []Layer) {
	for i := range layers {
		if layers[i].ID == "" {
			layers[i].ID = GenerateID()
		}
		for j := range layers[i].Bindings {
			if layers[i].Bindings[j].ID == "" {
				layers[i].Bindings[j].ID = layer.GenerateID()
			}
		}
	}
}
