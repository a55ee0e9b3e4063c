// Package panel serves the wall panel web UI as an embedded asset.
//
// The compiled panel build is embedded into the Go binary using the
// go:embed directive, eliminating any runtime dependency on external files.
// The Handler function returns an http.Handler that serves these assets
// with SPA (Single Page Application) fallback routing: if a requested
// file does not exist, index.html is served so that client-side routing
// works correctly.
//
// Cache-control headers are set to no-cache for mutable assets (index.html,
// JS bootstrap). The panel build content-hashes its chunk files, which
// handles cache-busting for immutable assets.
//
// The checked-in web/ directory holds a placeholder page; the real panel
// build replaces it during packaging.
package panel
