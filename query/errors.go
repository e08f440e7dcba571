package query

import "errors"

// Pipeline errors.
var (
	// ErrUntranslatable indicates a call reached rendering without any
	// translator producing a replacement for it.
	ErrUntranslatable = errors.New("query: no translator for call")

	// ErrMissingTypeMapping indicates a type required by a translator has no
	// registered mapping. This is a configuration fault of the mapping source.
	ErrMissingTypeMapping = errors.New("query: missing type mapping")

	// ErrInvalidStatement indicates a statement is structurally incomplete.
	ErrInvalidStatement = errors.New("query: invalid statement")
)
