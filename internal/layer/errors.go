package layer

import "errors"

// Domain errors for the layer package.
//
// The reconciliation engine itself has no fatal error class: resolution
// misses degrade to placeholders, unknown ids are no-ops, and dispatch
// failures are logged. These sentinels cover the editing surface, where
// a caller supplied something structurally wrong.
var (
	// ErrInvalidKind is returned when a binding kind is not recognised.
	ErrInvalidKind = errors.New("layer: invalid binding kind")

	// ErrEngineClosed is returned when an operation reaches a closed engine.
	ErrEngineClosed = errors.New("layer: engine closed")
)
