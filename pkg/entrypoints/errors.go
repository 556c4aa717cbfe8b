package entrypoints

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this package wraps exactly one
// of these so callers can classify failures with errors.Is.
var (
	// ErrConfiguration reports malformed entrypoint declarations.
	ErrConfiguration = errors.New("configuration error")

	// ErrResolution reports a declared entrypoint without a matching output.
	ErrResolution = errors.New("resolution error")

	// ErrImportResolution reports a static import edge to an unknown output.
	ErrImportResolution = errors.New("import resolution error")

	// ErrIO reports a manifest that could not be read or written.
	ErrIO = errors.New("io error")
)

// Session lifecycle errors.
var (
	ErrDuplicateOutput = errors.New("output recorded twice in the same pass")
	ErrNotReady        = errors.New("build passes still pending")
	ErrAlreadyEmitted  = errors.New("manifest already emitted")
	ErrPassOverflow    = errors.New("more passes than configured outputs")
	ErrAborted         = errors.New("session aborted by a previous error")
)

// ImportError is returned when a static import cannot be found in the
// store and is not declared external.
type ImportError struct {
	Importer string // output path of the importing unit
	Import   string // output path that could not be found
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s: unable to find %s imported by %s", ErrImportResolution, e.Import, e.Importer)
}

func (e *ImportError) Unwrap() error {
	return ErrImportResolution
}
