package layer

// DeviceState is the engine's read-only view of one device in the
// externally supplied snapshot: identity, display name, reachability,
// and the latest telemetry values keyed by metric name.
//
// The snapshot is owned by whoever supplies it (the device registry).
// The engine never mutates it; it reads the ordered id list to decide
// whether re-projection is necessary and reads Name/Online/Values while
// projecting.
type DeviceState struct {
	ID     string         `json:"id"`
	Name   string         `json:"name,omitempty"`
	Online bool           `json:"online"`
	Values map[string]any `json:"values,omitempty"`
}

// DeviceLookup resolves a device id against the current snapshot.
// A miss returns ok=false; the projector degrades to placeholders
// rather than failing.
type DeviceLookup func(id string) (DeviceState, bool)

// SnapshotLookup builds a map-backed DeviceLookup over a snapshot.
// Later duplicates win, matching how a keyed replacement would behave.
func SnapshotLookup(devices []DeviceState) DeviceLookup {
	byID := make(map[string]DeviceState, len(devices))
	for _, d := range devices {
		byID[d.ID] = d
	}
	return func(id string) (DeviceState, bool) {
		d, ok := byID[id]
		return d, ok
	}
}

// SnapshotIDs extracts the ordered id list of a snapshot — the cheap
// identity fingerprint used to gate projection.
func SnapshotIDs(devices []DeviceState) []string {
	if len(devices) == 0 {
		return nil
	}
	ids := make([]string, len(devices))
	for i, d := range devices {
		ids[i] = d.ID
	}
	return ids
}

// IdentityChanged reports whether two snapshot fingerprints differ.
// Length is compared first, then per-index id equality, so the common
// "same devices, fresh values" tick costs one comparison per device at
// most and usually exits on the first index.
//
// Deep equality is deliberately not used: snapshots are replaced
// wholesale on every telemetry tick, and only the existence and order
// of ids — combined with the selective field reads done during
// projection — determine the projection outcome.
func IdentityChanged(prev, cur []string) bool {
	if len(prev) != len(cur) {
		return true
	}
	for i := range cur {
		if prev[i] != cur[i] {
			return true
		}
	}
	return false
}
