package dispatch

import (
	"context"
	"time"

	"github.com/ignite/aspect-export/internal/domain"
)

// Repository defines the data access contract for dispatch logs.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single log entry. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.DispatchLog, error)

	// List returns log entries matching the filter, ordered by created_at DESC.
	List(ctx context.Context, filter ListFilter) ([]domain.DispatchLog, int, error)

	// Create inserts a new log entry and returns its ID.
	Create(ctx context.Context, l *domain.DispatchLog) (string, error)

	// Delete removes a single log entry.
	Delete(ctx context.Context, id string) error

	// DeleteOlderThan removes entries created before the cutoff and returns
	// how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ListFilter controls pagination and filtering for dispatch log lists.
type ListFilter struct {
	Status     string
	SchemaID   string
	CampaignID string
	ContactID  string
	Limit      int
	Offset     int
}
