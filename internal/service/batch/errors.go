package batch

import "errors"

// Sentinel errors for the batch service layer.
var (
	ErrNotFound         = errors.New("batch not found")
	ErrDuplicatePending = errors.New("a pending batch already exists for this destination")
	ErrNotReprocessable = errors.New("only UPLOADED or FAILED batches can be reprocessed")
	ErrMissingTarget    = errors.New("destination target is required")
	ErrMissingSchema    = errors.New("schema id is required")
	ErrMissingContact   = errors.New("contact id is required")
)
