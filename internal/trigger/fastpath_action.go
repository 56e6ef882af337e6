package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/aspect-export/internal/pkg/logger"
	"github.com/ignite/aspect-export/internal/service/dispatch"
)

// Sender performs one synchronous record dispatch. *dispatch.Service
// satisfies it.
type Sender interface {
	Send(ctx context.Context, contactID, schemaID string, cfg dispatch.SendConfig) (*dispatch.SendResult, error)
}

// FastPathActionConfig is the automation action configuration for sending
// each contact as one record over SOAP.
type FastPathActionConfig struct {
	SchemaID     string
	TargetURL    string
	ListName     string
	FunctionType int
	ResponseURI  string
	CustomField1 string
	CustomField2 string
	CustomField3 string
	CampaignID   string
	EventID      string
	Timeout      time.Duration
}

func (c FastPathActionConfig) validate() error {
	if c.SchemaID == "" {
		return fmt.Errorf("%w: schema id", ErrMissingConfig)
	}
	if c.TargetURL == "" {
		return fmt.Errorf("%w: target URL", ErrMissingConfig)
	}
	if c.ListName == "" {
		return fmt.Errorf("%w: list name", ErrMissingConfig)
	}
	return nil
}

// FastPathAction dispatches each contact of a group synchronously.
type FastPathAction struct {
	sender  Sender
	schemas SchemaSource
	log     *logger.Logger
}

// NewFastPathAction creates a per-record dispatch automation action.
func NewFastPathAction(sender Sender, schemas SchemaSource, log *logger.Logger) *FastPathAction {
	return &FastPathAction{sender: sender, schemas: schemas, log: log}
}

// Execute sends one record per contact. Failure semantics match BatchAction:
// broken config fails the group, a deleted schema passes it with an error,
// send failures are per contact.
func (a *FastPathAction) Execute(ctx context.Context, contactIDs []string, cfg FastPathActionConfig) (*GroupResult, error) {
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

	sendCfg := dispatch.SendConfig{
		TargetURL:    cfg.TargetURL,
		ListName:     cfg.ListName,
		FunctionType: cfg.FunctionType,
		ResponseURI:  cfg.ResponseURI,
		CustomField1: cfg.CustomField1,
		CustomField2: cfg.CustomField2,
		CustomField3: cfg.CustomField3,
		CampaignID:   cfg.CampaignID,
		EventID:      cfg.EventID,
		Timeout:      cfg.Timeout,
	}

	res := &GroupResult{}
	for _, contactID := range contactIDs {
		_, err := a.sender.Send(ctx, contactID, cfg.SchemaID, sendCfg)
		cr := ContactResult{ContactID: contactID, Passed: err == nil}
		if err != nil {
			cr.Error = err.Error()
		}
		res.Contacts = append(res.Contacts, cr)
	}
	return res, nil
}
