package trigger_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/ignite/aspect-export/internal/domain"
	"github.com/ignite/aspect-export/internal/pkg/logger"
	"github.com/ignite/aspect-export/internal/service/batch"
	"github.com/ignite/aspect-export/internal/service/dispatch"
	"github.com/ignite/aspect-export/internal/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.ERROR)
}

type schemaStore struct{ schemas map[string]*domain.Schema }

func (s *schemaStore) Get(_ context.Context, id string) (*domain.Schema, error) {
	sc, ok := s.schemas[id]
	if !ok {
		return nil, fmt.Errorf("schema %s not found", id)
	}
	return sc, nil
}

func knownSchemas() *schemaStore {
	return &schemaStore{schemas: map[string]*domain.Schema{
		"sch-1": {ID: "sch-1", Name: "leads"},
	}}
}

// fakeEnqueuer records enqueued contacts; failFor contacts return an error.
type fakeEnqueuer struct {
	inputs  []batch.EnqueueInput
	failFor map[string]bool
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, input batch.EnqueueInput) (*batch.EnqueueResult, error) {
	if f.failFor[input.ContactID] {
		return nil, errors.New("enqueue refused")
	}
	f.inputs = append(f.inputs, input)
	return &batch.EnqueueResult{BatchID: "b-1"}, nil
}

func TestBatchActionMissingConfigFailsGroup(t *testing.T) {
	action := trigger.NewBatchAction(&fakeEnqueuer{}, knownSchemas(), testLogger())
	ctx := context.Background()

	_, err := action.Execute(ctx, []string{"c1"}, trigger.BatchActionConfig{
		DestinationKind: domain.DestObjectStore, Bucket: "exports",
	})
	assert.ErrorIs(t, err, trigger.ErrMissingConfig)

	_, err = action.Execute(ctx, []string{"c1"}, trigger.BatchActionConfig{
		SchemaID: "sch-1", DestinationKind: domain.DestObjectStore,
	})
	assert.ErrorIs(t, err, trigger.ErrMissingConfig)

	_, err = action.Execute(ctx, []string{"c1"}, trigger.BatchActionConfig{
		SchemaID: "sch-1", DestinationKind: domain.DestNetworkShare,
	})
	assert.ErrorIs(t, err, trigger.ErrMissingConfig)
}

func TestBatchActionSchemaGonePassesGroupWithError(t *testing.T) {
	enq := &fakeEnqueuer{}
	action := trigger.NewBatchAction(enq, knownSchemas(), testLogger())

	res, err := action.Execute(context.Background(), []string{"c1", "c2"}, trigger.BatchActionConfig{
		SchemaID: "deleted", DestinationKind: domain.DestObjectStore, Bucket: "exports",
	})
	require.NoError(t, err)

	assert.True(t, res.PassedWithError)
	require.Len(t, res.Contacts, 2)
	for _, cr := range res.Contacts {
		assert.True(t, cr.Passed)
		assert.Equal(t, trigger.ErrSchemaGone.Error(), cr.Error)
	}
	assert.Empty(t, enq.inputs)
}

func TestBatchActionPerContactResults(t *testing.T) {
	enq := &fakeEnqueuer{failFor: map[string]bool{"c2": true}}
	action := trigger.NewBatchAction(enq, knownSchemas(), testLogger())

	res, err := action.Execute(context.Background(), []string{"c1", "c2", "c3"}, trigger.BatchActionConfig{
		SchemaID:        "sch-1",
		DestinationKind: domain.DestNetworkShare,
		Path:            "/exports",
		CampaignID:      "camp-7",
	})
	require.NoError(t, err)
	require.Len(t, res.Contacts, 3)

	assert.True(t, res.Contacts[0].Passed)
	assert.False(t, res.Contacts[1].Passed)
	assert.Contains(t, res.Contacts[1].Error, "enqueue refused")
	assert.True(t, res.Contacts[2].Passed)

	require.Len(t, enq.inputs, 2)
	assert.Equal(t, "/exports", enq.inputs[0].DestinationTarget)
	assert.Equal(t, domain.DestNetworkShare, enq.inputs[0].DestinationKind)
	assert.Equal(t, "camp-7", enq.inputs[0].CampaignID)
}

func TestBatchActionDefaultsToObjectStore(t *testing.T) {
	enq := &fakeEnqueuer{}
	action := trigger.NewBatchAction(enq, knownSchemas(), testLogger())

	_, err := action.Execute(context.Background(), []string{"c1"}, trigger.BatchActionConfig{
		SchemaID: "sch-1", Bucket: "exports",
	})
	require.NoError(t, err)
	require.Len(t, enq.inputs, 1)
	assert.Equal(t, domain.DestObjectStore, enq.inputs[0].DestinationKind)
	assert.Equal(t, "exports", enq.inputs[0].DestinationTarget)
}

// fakeSender records dispatched contacts; failFor contacts return an error.
type fakeSender struct {
	sent    []string
	cfgs    []dispatch.SendConfig
	failFor map[string]bool
}

func (f *fakeSender) Send(_ context.Context, contactID, schemaID string, cfg dispatch.SendConfig) (*dispatch.SendResult, error) {
	if f.failFor[contactID] {
		return &dispatch.SendResult{Status: domain.DispatchFailed}, errors.New("send refused")
	}
	f.sent = append(f.sent, contactID)
	f.cfgs = append(f.cfgs, cfg)
	return &dispatch.SendResult{Status: domain.DispatchSuccess}, nil
}

func TestFastPathActionMissingConfigFailsGroup(t *testing.T) {
	action := trigger.NewFastPathAction(&fakeSender{}, knownSchemas(), testLogger())
	ctx := context.Background()

	cases := []trigger.FastPathActionConfig{
		{TargetURL: "https://x", ListName: "L"},
		{SchemaID: "sch-1", ListName: "L"},
		{SchemaID: "sch-1", TargetURL: "https://x"},
	}
	for _, cfg := range cases {
		_, err := action.Execute(ctx, []string{"c1"}, cfg)
		assert.ErrorIs(t, err, trigger.ErrMissingConfig)
	}
}

func TestFastPathActionSchemaGonePassesGroupWithError(t *testing.T) {
	sender := &fakeSender{}
	action := trigger.NewFastPathAction(sender, knownSchemas(), testLogger())

	res, err := action.Execute(context.Background(), []string{"c1"}, trigger.FastPathActionConfig{
		SchemaID: "deleted", TargetURL: "https://x", ListName: "L",
	})
	require.NoError(t, err)
	assert.True(t, res.PassedWithError)
	assert.Empty(t, sender.sent)
}

func TestFastPathActionPerContactResults(t *testing.T) {
	sender := &fakeSender{failFor: map[string]bool{"c1": true}}
	action := trigger.NewFastPathAction(sender, knownSchemas(), testLogger())

	res, err := action.Execute(context.Background(), []string{"c1", "c2"}, trigger.FastPathActionConfig{
		SchemaID:     "sch-1",
		TargetURL:    "https://fastpath.example.com/ws",
		ListName:     "LEADS",
		CustomField1: "camp-7",
	})
	require.NoError(t, err)
	require.Len(t, res.Contacts, 2)

	assert.False(t, res.Contacts[0].Passed)
	assert.Contains(t, res.Contacts[0].Error, "send refused")
	assert.True(t, res.Contacts[1].Passed)

	require.Len(t, sender.cfgs, 1)
	assert.Equal(t, "LEADS", sender.cfgs[0].ListName)
	assert.Equal(t, "camp-7", sender.cfgs[0].CustomField1)
}
