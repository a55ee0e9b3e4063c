package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
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

// DefaultSnapshotInterval is the minimum spacing between snapshot
// fan-outs to watchers. Telemetry bursts inside the interval coalesce
// into a single trailing send.
const DefaultSnapshotInterval = 100 * time.Millisecond

// Registry provides device management with caching, thread safety, and
// snapshot fan-out. It wraps a Repository and adds an in-memory cache
// for fast lookups.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-updating CRUD operations.
//
// Watchers registered via Watch receive the complete device snapshot
// after every change, rate-limited to one send per snapshot interval.
// Each watcher channel holds at most one pending snapshot: if a watcher
// is slow, the stale snapshot is replaced by the latest.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device // Cached devices by ID
	cacheMu sync.RWMutex       // Protects cache
	logger  Logger

	watchMu     sync.Mutex
	watchers    map[uint64]chan []Snapshot
	nextWatchID uint64
	minInterval time.Duration
	lastFanout  time.Time
	fanoutTimer *time.Timer
	closed      bool
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:        repo,
		cache:       make(map[string]*Device),
		logger:      noopLogger{},
		watchers:    make(map[uint64]chan []Snapshot),
		minInterval: DefaultSnapshotInterval,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetSnapshotInterval sets the minimum spacing between watcher
// fan-outs. Zero or negative disables rate limiting.
func (r *Registry) SetSnapshotInterval(d time.Duration) {
	r.watchMu.Lock()
	r.minInterval = d
	r.watchMu.Unlock()
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		r.cache[d.ID] = d.DeepCopy()
	}
	r.cacheMu.Unlock()

	r.logger.Info("device cache refreshed", "count", len(devices))
	r.notifyWatchers()
	return nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a new device not yet cached)
	device, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[id] = device.DeepCopy()
	r.cacheMu.Unlock()

	return device, nil
}

// GetDeviceBySlug retrieves a device by its URL-safe slug.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDeviceBySlug(ctx context.Context, slug string) (*Device, error) {
	r.cacheMu.RLock()
	for _, d := range r.cache {
		if d.Slug == slug {
			cpy := d.DeepCopy()
			r.cacheMu.RUnlock()
			return cpy, nil
		}
	}
	r.cacheMu.RUnlock()

	return r.repo.GetBySlug(ctx, slug)
}

// ListDevices retrieves all devices.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		devices := make([]Device, 0, len(r.cache))
		for _, d := range r.cache {
			devices = append(devices, *d.DeepCopy())
		}
		sort.Slice(devices, func(i, j int) bool {
			if devices[i].Name != devices[j].Name {
				return devices[i].Name < devices[j].Name
			}
			return devices[i].ID < devices[j].ID
		})
		return devices, nil
	}

	return r.repo.List(ctx)
}

// GetDevicesByProtocol retrieves all devices using a specific protocol.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) GetDevicesByProtocol(ctx context.Context, protocol Protocol) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		var devices []Device
		for _, d := range r.cache {
			if d.Protocol == protocol {
				devices = append(devices, *d.DeepCopy())
			}
		}
		return devices, nil
	}

	return r.repo.ListByProtocol(ctx, protocol)
}

// GetDevicesByType retrieves all devices of a specific type.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) GetDevicesByType(ctx context.Context, deviceType DeviceType) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		var devices []Device
		for _, d := range r.cache {
			if d.Type == deviceType {
				devices = append(devices, *d.DeepCopy())
			}
		}
		return devices, nil
	}

	return r.repo.ListByType(ctx, deviceType)
}

// CreateDevice creates a new device.
// It validates the device, generates ID and slug if needed, and persists it.
func (r *Registry) CreateDevice(ctx context.Context, device *Device) error {
	if device.ID == "" {
		device.ID = GenerateID()
	}
	if device.Slug == "" {
		device.Slug = GenerateSlug(device.Name)
	}

	if err := ValidateDevice(device); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, device); err != nil {
		return err
	}

	// Store a deep copy to prevent external modification
	r.cacheMu.Lock()
	r.cache[device.ID] = device.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device created", "id", device.ID, "name", device.Name)
	r.notifyWatchers()
	return nil
}

// UpdateDevice updates an existing device.
// It validates the device and persists the changes.
func (r *Registry) UpdateDevice(ctx context.Context, device *Device) error {
	// Regenerate slug if name changed and slug wasn't explicitly set
	existing, err := r.GetDevice(ctx, device.ID)
	if err != nil {
		return err
	}
	if device.Name != existing.Name && device.Slug == existing.Slug {
		device.Slug = GenerateSlug(device.Name)
	}

	if err := ValidateDevice(device); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, device); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[device.ID] = device.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device updated", "id", device.ID, "name", device.Name)
	r.notifyWatchers()
	return nil
}

// DeleteDevice removes a device.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "id", id)
	r.notifyWatchers()
	return nil
}

// SetValues merges telemetry readings into a device's current values.
// This is optimised for frequent updates from the ingest path. The
// cache and the repository apply the same per-key merge, so partial
// reports never clobber unrelated readings.
func (r *Registry) SetValues(ctx context.Context, id string, values Values) error {
	if err := ValidateValues(values); err != nil {
		return err
	}
	if err := r.repo.UpdateValues(ctx, id, values); err != nil {
		return err
	}

	now := time.Now().UTC()
	r.cacheMu.Lock()
	if cached, ok := r.cache[id]; ok {
		// Atomic replacement: copy, merge, swap
		updated := cached.DeepCopy()
		if updated.Values == nil {
			updated.Values = make(Values, len(values))
		}
		for k, v := range values {
			updated.Values[k] = deepCopyValue(v)
		}
		updated.LastSeen = &now
		r.cache[id] = updated
	}
	r.cacheMu.Unlock()

	r.logger.Debug("device values updated", "id", id, "metrics", len(values))
	r.notifyWatchers()
	return nil
}

// SetOnline updates the liveness flag of a device.
func (r *Registry) SetOnline(ctx context.Context, id string, online bool) error {
	now := time.Now().UTC()
	if err := r.repo.UpdateOnline(ctx, id, online, now); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if cached, ok := r.cache[id]; ok {
		updated := cached.DeepCopy()
		updated.Online = online
		updated.LastSeen = &now
		r.cache[id] = updated
	}
	r.cacheMu.Unlock()

	r.logger.Debug("device online state updated", "id", id, "online", online)
	r.notifyWatchers()
	return nil
}

// Online reports the cached liveness of a device without copying it.
// The second return is false when the device is not cached.
func (r *Registry) Online(id string) (bool, bool) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	d, ok := r.cache[id]
	if !ok {
		return false, false
	}
	return d.Online, true
}

// Snapshot exports the current device set as lightweight read models,
// ordered by name with ID as tie-break so consumers see a stable order.
func (r *Registry) Snapshot() []Snapshot {
	r.cacheMu.RLock()
	snapshots := make([]Snapshot, 0, len(r.cache))
	for _, d := range r.cache {
		snapshots = append(snapshots, Snapshot{
			ID:     d.ID,
			Name:   d.Name,
			Online: d.Online,
			Values: deepCopyMap(d.Values),
		})
	}
	r.cacheMu.RUnlock()

	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].Name != snapshots[j].Name {
			return snapshots[i].Name < snapshots[j].Name
		}
		return snapshots[i].ID < snapshots[j].ID
	})
	return snapshots
}

// Watch registers a snapshot watcher. The returned channel is primed
// with the current snapshot and receives a replacement after every
// device change, rate-limited to the snapshot interval. Slow watchers
// never block the registry: a pending snapshot is replaced by the
// latest rather than queued.
//
// Callers must Unwatch with the returned id when done.
func (r *Registry) Watch() (uint64, <-chan []Snapshot) {
	ch := make(chan []Snapshot, 1)

	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	if r.closed {
		close(ch)
		return 0, ch
	}
	r.nextWatchID++
	id := r.nextWatchID
	r.watchers[id] = ch

	// Prime under the lock: all sends to this channel happen here, so
	// the fresh buffer cannot be full.
	ch <- r.Snapshot()
	return id, ch
}

// Unwatch removes a watcher and closes its channel.
func (r *Registry) Unwatch(id uint64) {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	if ch, ok := r.watchers[id]; ok {
		delete(r.watchers, id)
		close(ch)
	}
}

// Close stops the fan-out timer and closes all watcher channels.
// Further Watch calls return a closed channel.
func (r *Registry) Close() {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.fanoutTimer != nil {
		r.fanoutTimer.Stop()
		r.fanoutTimer = nil
	}
	for id, ch := range r.watchers {
		delete(r.watchers, id)
		close(ch)
	}
}

// notifyWatchers fans the current snapshot out to all watchers,
// coalescing bursts into one trailing send per interval.
func (r *Registry) notifyWatchers() {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	if r.closed || len(r.watchers) == 0 {
		return
	}

	if r.minInterval > 0 {
		if elapsed := time.Since(r.lastFanout); elapsed < r.minInterval {
			// Inside the rate window: arm one trailing send and absorb
			// everything else until it fires.
			if r.fanoutTimer == nil {
				r.fanoutTimer = time.AfterFunc(r.minInterval-elapsed, r.flushWatchers)
			}
			return
		}
	}

	r.lastFanout = time.Now()
	r.sendSnapshotLocked()
}

// flushWatchers is the trailing-edge timer callback.
func (r *Registry) flushWatchers() {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	r.fanoutTimer = nil
	if r.closed || len(r.watchers) == 0 {
		return
	}
	r.lastFanout = time.Now()
	r.sendSnapshotLocked()
}

// sendSnapshotLocked delivers the current snapshot to every watcher.
// Caller must hold watchMu.
func (r *Registry) sendSnapshotLocked() {
	snap := r.Snapshot()
	for _, ch := range r.watchers {
		select {
		case ch <- snap:
		default:
			// Latest wins: drop the stale pending snapshot
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Count returns the number of cached devices.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	TotalDevices int
	Online       int
	ByProtocol   map[Protocol]int
	ByType       map[DeviceType]int
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	stats := Stats{
		TotalDevices: len(r.cache),
		ByProtocol:   make(map[Protocol]int),
		ByType:       make(map[DeviceType]int),
	}

	for _, d := range r.cache {
		if d.Online {
			stats.Online++
		}
		stats.ByProtocol[d.Protocol]++
		stats.ByType[d.Type]++
	}

	return stats
}
