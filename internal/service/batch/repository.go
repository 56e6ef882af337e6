package batch

import (
	"context"

	"github.com/ignite/aspect-export/internal/domain"
)

// Repository defines the data access contract for batches and their records.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single batch. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Batch, error)

	// List returns batches matching the filter, ordered by created_at DESC.
	List(ctx context.Context, filter ListFilter) ([]domain.Batch, int, error)

	// FindPending returns the open PENDING batch for the given grouping key.
	// Returns ErrNotFound when no open batch exists.
	FindPending(ctx context.Context, campaignID, eventID, schemaID, target string) (*domain.Batch, error)

	// Create inserts a new batch. Returns ErrDuplicatePending when a PENDING
	// batch for the same grouping key was inserted concurrently; callers
	// retry the find once in that case.
	Create(ctx context.Context, b *domain.Batch) (string, error)

	// Update replaces the mutable columns of a batch.
	Update(ctx context.Context, b *domain.Batch) error

	// Delete removes a batch and cascades to its records.
	Delete(ctx context.Context, id string) error

	// ListOldestPending returns up to limit PENDING batches, oldest first.
	ListOldestPending(ctx context.Context, limit int) ([]domain.Batch, error)

	// CountPending returns the number of PENDING batches.
	CountPending(ctx context.Context) (int, error)

	// AddRecord inserts a pending record and increments the batch's
	// RecordCount in the same transaction.
	AddRecord(ctx context.Context, r *domain.BatchRecord) error

	// PendingRecords returns up to limit PENDING records of a batch,
	// insertion order.
	PendingRecords(ctx context.Context, batchID string, limit int) ([]domain.BatchRecord, error)

	// SetRecordStatus updates the status of the given record IDs.
	SetRecordStatus(ctx context.Context, ids []string, status domain.RecordStatus) error

	// ResetGeneratedRecords returns a batch's GENERATED records to PENDING.
	// Used by failure recovery so the next tick regenerates them.
	ResetGeneratedRecords(ctx context.Context, batchID string) error

	// ResetAllRecords returns every record of a batch to PENDING.
	// Used by manual reprocessing.
	ResetAllRecords(ctx context.Context, batchID string) error
}

// ListFilter controls pagination and filtering for batch lists.
type ListFilter struct {
	Status     string
	SchemaID   string
	CampaignID string
	Limit      int
	Offset     int
}
