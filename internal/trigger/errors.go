package trigger

import "errors"

// Sentinel errors for automation actions.
var (
	ErrMissingConfig = errors.New("action configuration is incomplete")
	ErrSchemaGone    = errors.New("schema no longer exists")
)
