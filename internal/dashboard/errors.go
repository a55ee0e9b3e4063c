package dashboard

import "errors"

// Sentinel errors for dashboard operations.
var (
	// ErrDashboardNotFound is returned when a dashboard lookup fails.
	ErrDashboardNotFound = errors.New("dashboard: not found")

	// ErrDashboardExists is returned when creating a dashboard whose ID
	// already exists.
	ErrDashboardExists = errors.New("dashboard: already exists")

	// ErrInvalidDashboard is returned for structurally invalid dashboards.
	ErrInvalidDashboard = errors.New("dashboard: invalid dashboard")

	// ErrInvalidName is returned when a dashboard or layer name fails
	// validation.
	ErrInvalidName = errors.New("dashboard: invalid name")

	// ErrLayerNotFound is returned when a layer id does not exist within
	// the dashboard.
	ErrLayerNotFound = errors.New("dashboard: layer not found")

	// ErrTemplateNotFound is returned when instantiating an unknown
	// template id.
	ErrTemplateNotFound = errors.New("dashboard: template not found")
)
