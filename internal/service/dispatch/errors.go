package dispatch

import "errors"

// Sentinel errors for the dispatch service layer.
var (
	ErrNotFound        = errors.New("dispatch log not found")
	ErrMissingEndpoint = errors.New("target URL is required")
	ErrMissingList     = errors.New("list name is required")
)
