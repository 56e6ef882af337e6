package trigger

import (
	"context"

	"github.com/ignite/aspect-export/internal/domain"
)

// SchemaSource resolves schemas for action pre-checks.
type SchemaSource interface {
	Get(ctx context.Context, id string) (*domain.Schema, error)
}

// ContactResult is the per-contact outcome of a group action.
type ContactResult struct {
	ContactID string `json:"contact_id"`
	Passed    bool   `json:"passed"`
	Error     string `json:"error,omitempty"`
}

// GroupResult is the outcome of one action run over a contact group.
// PassedWithError marks the group as completed despite a non-retryable
// problem, so the automation engine moves on instead of retrying.
type GroupResult struct {
	Contacts        []ContactResult `json:"contacts"`
	PassedWithError bool            `json:"passed_with_error,omitempty"`
	Reason          string          `json:"reason,omitempty"`
}

// passGroupWithError completes every contact as passed and records why.
func passGroupWithError(contactIDs []string, reason string) *GroupResult {
	res := &GroupResult{PassedWithError: true, Reason: reason}
	for _, id := range contactIDs {
		res.Contacts = append(res.Contacts, ContactResult{ContactID: id, Passed: true, Error: reason})
	}
	return res
}
