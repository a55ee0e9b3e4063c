package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ridgelinehome/ridgeline-core/internal/layer"
)

// Logger defines the logging interface used by the Store.
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

// Store provides dashboard management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-updating CRUD operations. SaveLayerItems and
// SaveLayerBindings are the persistence endpoints for the layer
// engine's change callbacks: the engine reports an edited item list or
// a repositioned binding, and the store writes it into the owning
// dashboard document.
//
// All public methods are thread-safe.
type Store struct {
	repo    Repository
	cache   map[string]*Dashboard
	cacheMu sync.RWMutex
	logger  Logger
}

// NewStore creates a new dashboard store.
// The repository is used for persistence; the store adds caching.
func NewStore(repo Repository) *Store {
	return &Store{
		repo:   repo,
		cache:  make(map[string]*Dashboard),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// RefreshCache reloads all dashboards from the repository into the cache.
// This should be called on application startup.
func (s *Store) RefreshCache(ctx context.Context) error {
	dashboards, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading dashboards: %w", err)
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cache = make(map[string]*Dashboard, len(dashboards))
	for i := range dashboards {
		d := dashboards[i]
		s.cache[d.ID] = d.DeepCopy()
	}

	s.logger.Info("dashboard cache refreshed", "count", len(dashboards))
	return nil
}

// GetDashboard retrieves a dashboard by ID.
// The returned dashboard is a deep copy; callers can safely modify it.
func (s *Store) GetDashboard(_ context.Context, id string) (*Dashboard, error) {
	s.cacheMu.RLock()
	cached, ok := s.cache[id]
	s.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrDashboardNotFound
}

// ListDashboards retrieves all dashboards from the cache.
// Returns deep copies sorted by name then ID for deterministic ordering.
func (s *Store) ListDashboards(_ context.Context) ([]Dashboard, error) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	dashboards := make([]Dashboard, 0, len(s.cache))
	for _, d := range s.cache {
		dashboards = append(dashboards, *d.DeepCopy())
	}
	sortDashboards(dashboards)
	return dashboards, nil
}

// GetDefault returns the default dashboard. When no dashboard carries
// the flag (the default was deleted, or data predates the flag) the
// first dashboard by name stands in so a connecting panel always has
// something to open.
func (s *Store) GetDefault(_ context.Context) (*Dashboard, error) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	var fallback *Dashboard
	for _, d := range s.cache {
		if d.IsDefault {
			return d.DeepCopy(), nil
		}
		if fallback == nil || d.Name < fallback.Name || (d.Name == fallback.Name && d.ID < fallback.ID) {
			fallback = d
		}
	}
	if fallback != nil {
		return fallback.DeepCopy(), nil
	}
	return nil, ErrDashboardNotFound
}

// sortDashboards sorts by name then ID, matching the DB query ordering.
func sortDashboards(dashboards []Dashboard) {
	sort.Slice(dashboards, func(i, j int) bool {
		if dashboards[i].Name != dashboards[j].Name {
			return dashboards[i].Name < dashboards[j].Name
		}
		return dashboards[i].ID < dashboards[j].ID
	})
}

// CreateDashboard validates, persists, and caches a new dashboard.
// A missing ID is generated; layers missing ids are stamped.
func (s *Store) CreateDashboard(ctx context.Context, d *Dashboard) error {
	if d == nil {
		return ErrInvalidDashboard
	}
	if d.ID == "" {
		d.ID = GenerateID()
	}
	stampLayerIDs(d.Layers)

	if err := ValidateDashboard(d); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return err
	}

	s.cacheMu.Lock()
	s.cache[d.ID] = d.DeepCopy()
	s.cacheMu.Unlock()

	s.logger.Info("dashboard created", "id", d.ID, "name", d.Name)
	return nil
}

// CreateFromTemplate instantiates a built-in template as a new
// dashboard. An empty name keeps the template's.
func (s *Store) CreateFromTemplate(ctx context.Context, templateID, name string) (*Dashboard, error) {
	t, ok := FindTemplate(templateID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, templateID)
	}

	d := Instantiate(t, name)
	if err := s.CreateDashboard(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDashboard validates, persists, and updates the cached dashboard.
func (s *Store) UpdateDashboard(ctx context.Context, d *Dashboard) error {
	if d == nil {
		return ErrInvalidDashboard
	}
	stampLayerIDs(d.Layers)

	if err := ValidateDashboard(d); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, d); err != nil {
		return err
	}

	s.cacheMu.Lock()
	s.cache[d.ID] = d.DeepCopy()
	s.cacheMu.Unlock()

	s.logger.Info("dashboard updated", "id", d.ID, "name", d.Name)
	return nil
}

// DeleteDashboard removes a dashboard from persistence and cache.
func (s *Store) DeleteDashboard(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.cacheMu.Lock()
	delete(s.cache, id)
	s.cacheMu.Unlock()

	s.logger.Info("dashboard deleted", "id", id)
	return nil
}

// SetDefault flags a dashboard as the panel default. The repository
// clears the flag on all others transactionally; the cache mirrors
// that.
func (s *Store) SetDefault(ctx context.Context, id string) error {
	if err := s.repo.SetDefault(ctx, id); err != nil {
		return err
	}

	s.cacheMu.Lock()
	for did, d := range s.cache {
		d.IsDefault = did == id
	}
	s.cacheMu.Unlock()

	s.logger.Info("default dashboard set", "id", id)
	return nil
}

// GetLayer returns a deep copy of one layer of a dashboard.
func (s *Store) GetLayer(ctx context.Context, dashboardID, layerID string) (Layer, error) {
	d, err := s.GetDashboard(ctx, dashboardID)
	if err != nil {
		return Layer{}, err
	}
	idx := d.FindLayer(layerID)
	if idx < 0 {
		return Layer{}, fmt.Errorf("%w: %q", ErrLayerNotFound, layerID)
	}
	return d.Layers[idx], nil
}

// SaveLayerItems replaces one layer's item list and persists the
// dashboard. This is the debounced item-change callback target of the
// layer engine: it receives the engine's latest item-owned list after
// edits settle.
func (s *Store) SaveLayerItems(ctx context.Context, dashboardID, layerID string, items []layer.Item) error {
	return s.mutateLayer(ctx, dashboardID, layerID, func(l *Layer) {
		l.Items = layer.CopyItems(items)
	})
}

// SaveLayerBindings replaces one layer's binding list and persists the
// dashboard. This is the synchronous binding-change callback target of
// the layer engine, fired when a drag commit or placement rewrites a
// binding position.
func (s *Store) SaveLayerBindings(ctx context.Context, dashboardID, layerID string, bindings []layer.Binding) error {
	return s.mutateLayer(ctx, dashboardID, layerID, func(l *Layer) {
		l.Bindings = layer.CopyBindings(bindings)
	})
}

// mutateLayer applies fn to one layer of a cached dashboard, persists
// the whole document, and refreshes the cache entry.
func (s *Store) mutateLayer(ctx context.Context, dashboardID, layerID string, fn func(*Layer)) error {
	d, err := s.GetDashboard(ctx, dashboardID)
	if err != nil {
		return err
	}
	idx := d.FindLayer(layerID)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrLayerNotFound, layerID)
	}

	fn(&d.Layers[idx])

	if err := s.repo.Update(ctx, d); err != nil {
		return err
	}

	s.cacheMu.Lock()
	s.cache[d.ID] = d.DeepCopy()
	s.cacheMu.Unlock()

	s.logger.Debug("layer saved", "dashboard_id", dashboardID, "layer_id", layerID)
	return nil
}

// EnsureDefault guarantees a connecting panel finds a dashboard: an
// empty store is seeded from the overview template, and a store with
// dashboards but no flagged default has its first dashboard promoted.
// Called once at startup.
func (s *Store) EnsureDefault(ctx context.Context) error {
	if s.Count() == 0 {
		d, err := s.CreateFromTemplate(ctx, TemplateOverview, "")
		if err != nil {
			return fmt.Errorf("seeding overview dashboard: %w", err)
		}
		return s.SetDefault(ctx, d.ID)
	}

	s.cacheMu.RLock()
	hasDefault := false
	for _, d := range s.cache {
		if d.IsDefault {
			hasDefault = true
			break
		}
	}
	s.cacheMu.RUnlock()

	if hasDefault {
		return nil
	}

	d, err := s.GetDefault(ctx) // falls back to first by name
	if err != nil {
		return err
	}
	return s.SetDefault(ctx, d.ID)
}

// Count returns the number of cached dashboards.
func (s *Store) Count() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return len(s.cache)
}
