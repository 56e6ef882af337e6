package schema

import (
	"context"

	"github.com/ignite/aspect-export/internal/domain"
)

// Repository defines the data access contract for record layouts.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single schema. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Schema, error)

	// GetByName returns the schema with the given unique name.
	// Returns ErrNotFound if it doesn't exist.
	GetByName(ctx context.Context, name string) (*domain.Schema, error)

	// List returns schemas matching the filter, ordered by name ASC.
	List(ctx context.Context, filter ListFilter) ([]domain.Schema, int, error)

	// Create inserts a new schema and returns its ID. Returns
	// ErrDuplicateName when the name is already taken.
	Create(ctx context.Context, s *domain.Schema) (string, error)

	// Update replaces the mutable columns of a schema, fields included.
	Update(ctx context.Context, s *domain.Schema) error

	// Delete removes a schema. Returns ErrInUse when batches still
	// reference it.
	Delete(ctx context.Context, id string) error
}

// ListFilter controls pagination and filtering for schema lists.
type ListFilter struct {
	PublishedOnly bool
	Search        string
	Limit         int
	Offset        int
}
