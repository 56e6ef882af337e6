package batch_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ignite/aspect-export/internal/domain"
	"github.com/ignite/aspect-export/internal/encoder"
	"github.com/ignite/aspect-export/internal/pkg/logger"
	"github.com/ignite/aspect-export/internal/service/batch"
	"github.com/ignite/aspect-export/internal/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory batch repository for unit testing.
type memRepo struct {
	mu          sync.Mutex
	batches     map[string]*domain.Batch
	batchOrder  []string
	records     map[string]*domain.BatchRecord
	recordOrder []string
	flushes     int // SetRecordStatus calls
}

func newMemRepo() *memRepo {
	return &memRepo{
		batches: make(map[string]*domain.Batch),
		records: make(map[string]*domain.BatchRecord),
	}
}

func (m *memRepo) Get(_ context.Context, id string) (*domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, batch.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, f batch.ListFilter) ([]domain.Batch, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Batch
	for _, id := range m.batchOrder {
		b := m.batches[id]
		if f.Status != "" && string(b.Status) != f.Status {
			continue
		}
		out = append(out, *b)
	}
	return out, len(out), nil
}

func (m *memRepo) FindPending(_ context.Context, campaignID, eventID, schemaID, target string) (*domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.batchOrder {
		b := m.batches[id]
		if b.Status == domain.BatchPending && b.CampaignID == campaignID &&
			b.EventID == eventID && b.SchemaID == schemaID && b.DestinationTarget == target {
			cp := *b
			return &cp, nil
		}
	}
	return nil, batch.ErrNotFound
}

func (m *memRepo) Create(_ context.Context, b *domain.Batch) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.batches {
		if existing.Status == domain.BatchPending && existing.CampaignID == b.CampaignID &&
			existing.EventID == b.EventID && existing.SchemaID == b.SchemaID &&
			existing.DestinationTarget == b.DestinationTarget {
			return "", batch.ErrDuplicatePending
		}
	}
	cp := *b
	cp.CreatedAt = time.Now()
	m.batches[cp.ID] = &cp
	m.batchOrder = append(m.batchOrder, cp.ID)
	return cp.ID, nil
}

func (m *memRepo) Update(_ context.Context, b *domain.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[b.ID]; !ok {
		return batch.ErrNotFound
	}
	cp := *b
	m.batches[cp.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[id]; !ok {
		return batch.ErrNotFound
	}
	delete(m.batches, id)
	for rid, r := range m.records {
		if r.BatchID == id {
			delete(m.records, rid)
		}
	}
	return nil
}

func (m *memRepo) ListOldestPending(_ context.Context, limit int) ([]domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Batch
	for _, id := range m.batchOrder {
		b := m.batches[id]
		if b.Status != domain.BatchPending {
			continue
		}
		out = append(out, *b)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memRepo) CountPending(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		if b.Status == domain.BatchPending {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) AddRecord(_ context.Context, r *domain.BatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[r.BatchID]
	if !ok {
		return batch.ErrNotFound
	}
	cp := *r
	m.records[cp.ID] = &cp
	m.recordOrder = append(m.recordOrder, cp.ID)
	b.RecordCount++
	return nil
}

func (m *memRepo) PendingRecords(_ context.Context, batchID string, limit int) ([]domain.BatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BatchRecord
	for _, id := range m.recordOrder {
		r := m.records[id]
		if r.BatchID != batchID || r.Status != domain.RecordPending {
			continue
		}
		out = append(out, *r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memRepo) SetRecordStatus(_ context.Context, ids []string, status domain.RecordStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	for _, id := range ids {
		if r, ok := m.records[id]; ok {
			r.Status = status
		}
	}
	return nil
}

func (m *memRepo) ResetGeneratedRecords(_ context.Context, batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.BatchID == batchID && r.Status == domain.RecordGenerated {
			r.Status = domain.RecordPending
		}
	}
	return nil
}

func (m *memRepo) ResetAllRecords(_ context.Context, batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.BatchID == batchID {
			r.Status = domain.RecordPending
		}
	}
	return nil
}

func (m *memRepo) recordStatuses(batchID string) map[domain.RecordStatus]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.RecordStatus]int{}
	for _, r := range m.records {
		if r.BatchID == batchID {
			out[r.Status]++
		}
	}
	return out
}

// fakeBackend captures uploaded file content in memory.
type fakeBackend struct {
	mu       sync.Mutex
	err      error
	target   string
	fileName string
	content  string
	uploads  int
}

func (f *fakeBackend) Upload(_ context.Context, localPath, target, fileName string) (*uploader.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}
	f.target = target
	f.fileName = fileName
	f.content = string(data)
	f.uploads++
	return &uploader.Result{Path: target + "/" + fileName}, nil
}

type fakeSelector struct{ backend *fakeBackend }

func (f *fakeSelector) For(domain.DestinationKind) (uploader.Backend, error) {
	return f.backend, nil
}

// contactStore serves contacts by ID; missing IDs return an error.
type contactStore struct {
	contacts map[string]*domain.Contact
}

func (c *contactStore) Get(_ context.Context, id string) (*domain.Contact, error) {
	contact, ok := c.contacts[id]
	if !ok {
		return nil, fmt.Errorf("contact %s not found", id)
	}
	return contact, nil
}

type schemaStore struct {
	schemas map[string]*domain.Schema
}

func (s *schemaStore) Get(_ context.Context, id string) (*domain.Schema, error) {
	sc, ok := s.schemas[id]
	if !ok {
		return nil, fmt.Errorf("schema %s not found", id)
	}
	return sc, nil
}

func testSchema() *domain.Schema {
	sc := &domain.Schema{ID: "sch-1", Name: "leads", FileExtension: "txt"}
	sc.SetFields([]domain.FieldSpec{
		{SequenceNumber: 1, Name: "Lead ID", StartPosition: 1, Length: 5,
			DataType: domain.DataTypeNumber, PaddingSide: domain.PadLeft, SourceField: "id"},
		{SequenceNumber: 2, Name: "First Name", StartPosition: 6, Length: 10,
			DataType: domain.DataTypeString, PaddingSide: domain.PadRight, SourceField: "firstname"},
	})
	return sc
}

type fixture struct {
	repo     *memRepo
	backend  *fakeBackend
	contacts *contactStore
	svc      *batch.Service
}

func newFixture(t *testing.T, cfg batch.Config) *fixture {
	t.Helper()
	log := logger.New(io.Discard, logger.ERROR)
	repo := newMemRepo()
	backend := &fakeBackend{}
	contacts := &contactStore{contacts: map[string]*domain.Contact{}}
	schemas := &schemaStore{schemas: map[string]*domain.Schema{"sch-1": testSchema()}}
	svc := batch.NewService(repo, schemas, contacts,
		encoder.New(log), encoder.NewMapper(), &fakeSelector{backend: backend},
		nil, log, cfg)
	return &fixture{repo: repo, backend: backend, contacts: contacts, svc: svc}
}

func (f *fixture) addContact(id, firstName string) {
	f.contacts.contacts[id] = &domain.Contact{ID: id, FirstName: firstName}
}

func (f *fixture) enqueue(t *testing.T, contactID string) string {
	t.Helper()
	res, err := f.svc.Enqueue(context.Background(), batch.EnqueueInput{
		ContactID:         contactID,
		CampaignID:        "camp-1",
		EventID:           "evt-1",
		SchemaID:          "sch-1",
		DestinationKind:   domain.DestNetworkShare,
		DestinationTarget: "/exports",
	})
	require.NoError(t, err)
	return res.BatchID
}

func TestEnqueueGroupsIntoOpenBatch(t *testing.T) {
	f := newFixture(t, batch.Config{})

	first := f.enqueue(t, "c1")
	second := f.enqueue(t, "c2")
	assert.Equal(t, first, second)

	b, err := f.svc.Get(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, 2, b.RecordCount)
	assert.Equal(t, domain.BatchPending, b.Status)

	// A different target opens a separate batch.
	other, err := f.svc.Enqueue(context.Background(), batch.EnqueueInput{
		ContactID: "c3", CampaignID: "camp-1", EventID: "evt-1", SchemaID: "sch-1",
		DestinationKind: domain.DestNetworkShare, DestinationTarget: "/other",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first, other.BatchID)
	assert.True(t, other.Created)
}

func TestEnqueueValidation(t *testing.T) {
	f := newFixture(t, batch.Config{})
	ctx := context.Background()

	_, err := f.svc.Enqueue(ctx, batch.EnqueueInput{SchemaID: "sch-1", DestinationTarget: "/exports"})
	assert.ErrorIs(t, err, batch.ErrMissingContact)

	_, err = f.svc.Enqueue(ctx, batch.EnqueueInput{ContactID: "c1", DestinationTarget: "/exports"})
	assert.ErrorIs(t, err, batch.ErrMissingSchema)

	_, err = f.svc.Enqueue(ctx, batch.EnqueueInput{ContactID: "c1", SchemaID: "sch-1"})
	assert.ErrorIs(t, err, batch.ErrMissingTarget)
}

// raceRepo simulates a concurrent enqueue: the first FindPending misses even
// though a pending batch exists, so Create hits the unique constraint.
type raceRepo struct {
	*memRepo
	missedOnce bool
}

func (r *raceRepo) FindPending(ctx context.Context, campaignID, eventID, schemaID, target string) (*domain.Batch, error) {
	if !r.missedOnce {
		r.missedOnce = true
		return nil, batch.ErrNotFound
	}
	return r.memRepo.FindPending(ctx, campaignID, eventID, schemaID, target)
}

func TestEnqueueRetriesFindOnDuplicatePending(t *testing.T) {
	log := logger.New(io.Discard, logger.ERROR)
	repo := &raceRepo{memRepo: newMemRepo()}
	existing := &domain.Batch{
		ID: "b-existing", CampaignID: "camp-1", EventID: "evt-1", SchemaID: "sch-1",
		DestinationTarget: "/exports", Status: domain.BatchPending,
	}
	_, err := repo.memRepo.Create(context.Background(), existing)
	require.NoError(t, err)

	svc := batch.NewService(repo, &schemaStore{}, &contactStore{},
		encoder.New(log), encoder.NewMapper(), &fakeSelector{backend: &fakeBackend{}},
		nil, log, batch.Config{})

	res, err := svc.Enqueue(context.Background(), batch.EnqueueInput{
		ContactID: "c1", CampaignID: "camp-1", EventID: "evt-1", SchemaID: "sch-1",
		DestinationKind: domain.DestNetworkShare, DestinationTarget: "/exports",
	})
	require.NoError(t, err)
	assert.Equal(t, "b-existing", res.BatchID)
	assert.False(t, res.Created)
}

func TestProcessPendingGeneratesAndUploads(t *testing.T) {
	f := newFixture(t, batch.Config{ChunkSize: 50})
	for i := 0; i < 120; i++ {
		id := fmt.Sprintf("c%d", i)
		f.addContact(id, "Ann")
		f.enqueue(t, id)
	}
	flushesBefore := f.repo.flushes

	res, err := f.svc.ProcessPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, &batch.ProcessResult{Processed: 1, Succeeded: 1}, res)

	batches, _, err := f.svc.List(context.Background(), batch.ListFilter{})
	require.NoError(t, err)
	require.Len(t, batches, 1)
	b := batches[0]

	assert.Equal(t, domain.BatchUploaded, b.Status)
	assert.NotNil(t, b.GeneratedAt)
	assert.NotNil(t, b.UploadedAt)
	assert.Equal(t, "/exports/"+b.FileName, b.FilePath)
	assert.True(t, strings.HasPrefix(b.FileName, "aspect_leads_"))
	assert.True(t, strings.HasSuffix(b.FileName, ".txt"))
	assert.Positive(t, b.FileSizeBytes)

	lines := strings.Split(strings.TrimRight(f.backend.content, "\n"), "\n")
	assert.Len(t, lines, 120)
	for _, line := range lines {
		assert.Len(t, []rune(line), 15)
	}

	// 120 records at chunk size 50 means three status flushes.
	assert.Equal(t, 3, f.repo.flushes-flushesBefore)
	assert.Equal(t, map[domain.RecordStatus]int{domain.RecordGenerated: 120}, f.repo.recordStatuses(b.ID))

	// Nothing is pending anymore.
	n, err := f.svc.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUploadFailureRevertsToPending(t *testing.T) {
	f := newFixture(t, batch.Config{})
	f.addContact("c1", "Ann")
	id := f.enqueue(t, "c1")

	f.backend.err = errors.New("bucket unreachable")
	res, err := f.svc.ProcessPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, &batch.ProcessResult{Processed: 1, Failed: 1}, res)

	b, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchPending, b.Status)
	assert.Contains(t, b.ErrorMessage, "bucket unreachable")
	assert.Equal(t, map[domain.RecordStatus]int{domain.RecordPending: 1}, f.repo.recordStatuses(id))

	// The next tick retries and succeeds.
	f.backend.err = nil
	res, err = f.svc.ProcessPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, &batch.ProcessResult{Processed: 1, Succeeded: 1}, res)

	b, err = f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchUploaded, b.Status)
	assert.Empty(t, b.ErrorMessage)
}

func TestBatchWithNoRecordsFails(t *testing.T) {
	f := newFixture(t, batch.Config{})
	b := &domain.Batch{
		ID: "b-empty", SchemaID: "sch-1", CampaignID: "camp-1",
		DestinationTarget: "/exports", Status: domain.BatchPending,
	}
	_, err := f.repo.Create(context.Background(), b)
	require.NoError(t, err)

	res, err := f.svc.ProcessPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, &batch.ProcessResult{Processed: 1, Failed: 1}, res)

	got, err := f.svc.Get(context.Background(), "b-empty")
	require.NoError(t, err)
	assert.Equal(t, domain.BatchFailed, got.Status)
	assert.Equal(t, "no pending records", got.ErrorMessage)
}

func TestVanishedContactIsSkipped(t *testing.T) {
	f := newFixture(t, batch.Config{})
	f.addContact("c1", "Ann")
	id := f.enqueue(t, "c1")
	f.enqueue(t, "ghost")

	res, err := f.svc.ProcessPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, &batch.ProcessResult{Processed: 1, Succeeded: 1}, res)

	lines := strings.Split(strings.TrimRight(f.backend.content, "\n"), "\n")
	assert.Len(t, lines, 1)
	assert.Equal(t, map[domain.RecordStatus]int{
		domain.RecordGenerated: 1,
		domain.RecordFailed:    1,
	}, f.repo.recordStatuses(id))
}

func TestProcessBatchIsIdempotentOnTerminal(t *testing.T) {
	f := newFixture(t, batch.Config{})
	f.addContact("c1", "Ann")
	id := f.enqueue(t, "c1")

	_, err := f.svc.ProcessPending(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, f.backend.uploads)

	b, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, f.svc.ProcessBatch(context.Background(), b))
	assert.Equal(t, 1, f.backend.uploads)
}

func TestReprocess(t *testing.T) {
	f := newFixture(t, batch.Config{})
	f.addContact("c1", "Ann")
	id := f.enqueue(t, "c1")

	// Not terminal yet.
	assert.ErrorIs(t, f.svc.Reprocess(context.Background(), id), batch.ErrNotReprocessable)

	_, err := f.svc.ProcessPending(context.Background(), 10)
	require.NoError(t, err)

	require.NoError(t, f.svc.Reprocess(context.Background(), id))
	b, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchPending, b.Status)
	assert.Nil(t, b.UploadedAt)
	assert.Equal(t, map[domain.RecordStatus]int{domain.RecordPending: 1}, f.repo.recordStatuses(id))

	_, err = f.svc.ProcessPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, f.backend.uploads)
}

func TestRenderFileNameDefault(t *testing.T) {
	sc := &domain.Schema{Name: "leads", FileExtension: "txt"}
	b := &domain.Batch{ID: "b-1"}
	now := time.Date(2026, 8, 31, 12, 30, 45, 0, time.UTC)

	assert.Equal(t, "aspect_leads_20260831_123045_b-1.txt", batch.RenderFileName(b, sc, now))
}

func TestRenderFileNameTemplate(t *testing.T) {
	sc := &domain.Schema{Name: "leads", FileExtension: "txt"}
	b := &domain.Batch{
		ID:               "b-1",
		CampaignID:       "camp-7",
		FileNameTemplate: "{schema_name}/{year}-{month}-{day}/export_{campaign_id}_{datetime}.dat",
	}
	now := time.Date(2026, 8, 31, 12, 30, 45, 0, time.UTC)

	assert.Equal(t, "leads/2026-08-31/export_camp-7_20260831_123045.dat",
		batch.RenderFileName(b, sc, now))
}

func TestRenderFileNameNormalizesSchemaName(t *testing.T) {
	sc := &domain.Schema{Name: "Aspect Leads", FileExtension: "txt"}
	now := time.Date(2026, 8, 31, 12, 30, 45, 0, time.UTC)

	b := &domain.Batch{ID: "b-1"}
	assert.Equal(t, "aspect_aspect_leads_20260831_123045_b-1.txt",
		batch.RenderFileName(b, sc, now))

	b.FileNameTemplate = "{schema_name}.dat"
	assert.Equal(t, "aspect_leads.dat", batch.RenderFileName(b, sc, now))
}
