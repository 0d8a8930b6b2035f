package cloth

import "errors"

// Configuration errors. These are returned before any topology is built.
var (
	ErrInvalidDimensions = errors.New("cloth: grid must be at least 2x2 particles")
	ErrInvalidSpacing    = errors.New("cloth: rest spacing must be positive and finite")
	ErrInvalidMass       = errors.New("cloth: particle mass must be positive and finite")
	ErrInvalidIterations = errors.New("cloth: constraint iterations must not be negative")
	ErrInvalidWorkers    = errors.New("cloth: worker count must not be negative")
	ErrInvalidMode       = errors.New("cloth: unknown constraint mode")
	ErrInvalidStep       = errors.New("cloth: time step must be positive and finite")
	ErrInvalidParameter  = errors.New("cloth: parameter must be finite")
)

// ErrTopologyMismatch means the builder emitted a different number of
// springs or indices than the closed-form counts. It is a programming error
// and callers should treat it as fatal.
var ErrTopologyMismatch = errors.New("cloth: topology does not match expected element counts")
