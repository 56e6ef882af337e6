package schema

import "errors"

// Sentinel errors for the schema service layer.
var (
	ErrNotFound      = errors.New("schema not found")
	ErrDuplicateName = errors.New("schema name already in use")
	ErrNoFields      = errors.New("schema has no fields")
	ErrInUse         = errors.New("schema is referenced by existing batches")
)
