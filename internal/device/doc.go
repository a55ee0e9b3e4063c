// Package device provides the device inventory and live telemetry
// plane: persistence, cached lookups, snapshot fan-out to rendering
// surfaces, and command routing back to protocol bridges.
//
// # Architecture
//
//	   ridgeline/telemetry/+             ridgeline/command/{protocol}/{id}
//	           │                                        ▲
//	           ▼                                        │
//	     ┌──────────┐                             ┌───────────┐
//	     │ Ingestor │                             │ Commander │
//	     └────┬─────┘                             └─────▲─────┘
//	          │ SetValues / SetOnline                   │ GetDevice
//	          ▼                                         │
//	     ┌──────────────────────────────────────────────┴────┐
//	     │                     Registry                      │
//	     │    cache (RWMutex) · validation · slug/id gen     │
//	     └───┬──────────────────────────────┬────────────────┘
//	         │ Repository                   │ Watch()
//	         ▼                              ▼
//	  ┌─────────────┐              ┌──────────────────┐
//	  │   SQLite    │              │ []Snapshot fan-  │
//	  │ (readings   │              │ out, coalesced   │
//	  │  as JSON)   │              │ per interval     │
//	  └─────────────┘              └──────────────────┘
//
// # Key Types
//
//   - Device: the full inventory record, with JSON maps for values and config
//   - Snapshot: the lightweight read model watchers receive — identity,
//     liveness, and current values only
//   - Registry: cached CRUD, telemetry writes, and snapshot fan-out
//   - Ingestor: MQTT telemetry consumer with optional metrics mirroring
//   - Commander: publishes CommandEnvelope to the owning protocol bridge
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	// Load devices into cache on startup
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	// Consume telemetry from the bus
//	ingest := device.NewIngestor(registry, bus)
//	ingest.SetMetricsWriter(influx)
//	if err := ingest.Start(ctx); err != nil {
//	    return err
//	}
//
//	// Feed a rendering surface with live snapshots
//	id, updates := registry.Watch()
//	defer registry.Unwatch(id)
//	for snap := range updates {
//	    session.SetDevices(snap)
//	}
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. Devices returned
// from the registry are deep copies; mutating them never affects the
// cache. Watcher channels are never blocked on — a slow watcher's
// pending snapshot is replaced by the latest instead of queued.
package device
