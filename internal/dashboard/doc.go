// Package dashboard stores the panel-facing dashboard configuration:
// named dashboards, their canvas layers, and the bindings or items each
// layer carries. It is the owner the layer engine reports edits back
// to — the engine renders and reconciles, this package persists.
//
// # Architecture
//
//	  layer.Engine callbacks                REST handlers
//	  (OnItemsChange debounced,             (CRUD, set-default,
//	   OnBindingsChange synchronous)         templates)
//	           │                                   │
//	           ▼                                   ▼
//	  ┌────────────────────────────────────────────────────┐
//	  │                       Store                        │
//	  │   cache (RWMutex) · validation · layer mutation    │
//	  └──────────────────────────┬─────────────────────────┘
//	                             │ Repository
//	                             ▼
//	                   ┌───────────────────┐
//	                   │ SQLite dashboards │
//	                   │ (layers as JSON)  │
//	                   └───────────────────┘
//
// A Layer holds either bindings (binding-driven: the engine projects
// them against live telemetry) or a direct item list (item-owned).
// SaveLayerBindings and SaveLayerItems are the two persistence
// endpoints matching the engine's two change callbacks.
//
// # Usage
//
//	repo := dashboard.NewSQLiteRepository(db)
//	store := dashboard.NewStore(repo)
//	store.SetLogger(log)
//
//	if err := store.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	// Seed the overview dashboard on first boot
//	if err := store.EnsureDefault(ctx); err != nil {
//	    return err
//	}
//
//	// Persist what a layer session edited
//	store.SaveLayerBindings(ctx, dashID, layerID, engineBindings)
//
// # Thread Safety
//
// All Store methods are safe for concurrent use. Dashboards returned
// from the store are deep copies; mutating them never affects the
// cache.
package dashboard
