package trigger

import (
	"context"
	"fmt"

	"github.com/ignite/aspect-export/internal/domain"
	"github.com/ignite/aspect-export/internal/pkg/logger"
	"github.com/ignite/aspect-export/internal/service/batch"
)

// Enqueuer queues one contact into a batch. *batch.Service satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, input batch.EnqueueInput) (*batch.EnqueueResult, error)
}

// BatchActionConfig is the automation action configuration for queueing
// contacts into an export batch.
type BatchActionConfig struct {
	SchemaID          string
	DestinationKind   domain.DestinationKind
	Bucket            string // S3 destinations
	Path              string // network share destinations
	FileNameTemplate  string
	CampaignID        string
	EventID           string
}

func (c BatchActionConfig) validate() error {
	if c.SchemaID == "" {
		return fmt.Errorf("%w: schema id", ErrMissingConfig)
	}
	switch c.DestinationKind {
	case domain.DestObjectStore, "":
		if c.Bucket == "" {
			return fmt.Errorf("%w: bucket", ErrMissingConfig)
		}
	case domain.DestNetworkShare:
		if c.Path == "" {
			return fmt.Errorf("%w: network path", ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown destination kind %q", ErrMissingConfig, c.DestinationKind)
	}
	return nil
}

func (c BatchActionConfig) target() string {
	if c.DestinationKind == domain.DestNetworkShare {
		return c.Path
	}
	return c.Bucket
}

// BatchAction queues contact groups for batched file export.
type BatchAction struct {
	enqueuer Enqueuer
	schemas  SchemaSource
	log      *logger.Logger
}

// NewBatchAction creates a batch automation action.
func NewBatchAction(enqueuer Enqueuer, schemas SchemaSource, log *logger.Logger) *BatchAction {
	return &BatchAction{enqueuer: enqueuer, schemas: schemas, log: log}
}

// Execute queues each contact of the group. A missing configuration fails the
// whole group; a deleted schema passes the group with an error; everything
// else is decided per contact.
func (a *BatchAction) Execute(ctx context.Context, contactIDs []string, cfg BatchActionConfig) (*GroupResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if _, err := a.schemas.Get(ctx, cfg.SchemaID); err != nil {
		a.log.Warn("trigger: schema gone, passing group with error",
			"schema_id", cfg.SchemaID,
			"contacts", len(contactIDs),
		)
		return passGroupWithError(contactIDs, ErrSchemaGone.Error()), nil
	}

	kind := cfg.DestinationKind
	if kind == "" {
		kind = domain.DestObjectStore
	}

	res := &GroupResult{}
	for _, contactID := range contactIDs {
		_, err := a.enqueuer.Enqueue(ctx, batch.EnqueueInput{
			ContactID:         contactID,
			CampaignID:        cfg.CampaignID,
			EventID:           cfg.EventID,
			SchemaID:          cfg.SchemaID,
			DestinationKind:   kind,
			DestinationTarget: cfg.target(),
			FileNameTemplate:  cfg.FileNameTemplate,
		})
		cr := ContactResult{ContactID: contactID, Passed: err == nil}
		if err != nil {
			cr.Error = err.Error()
		}
		res.Contacts = append(res.Contacts, cr)
	}
	return res, nil
}
