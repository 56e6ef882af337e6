package schema_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/ignite/aspect-export/internal/domain"
	"github.com/ignite/aspect-export/internal/pkg/logger"
	"github.com/ignite/aspect-export/internal/service/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory schema repository for unit testing.
type memRepo struct {
	mu      sync.Mutex
	schemas map[string]*domain.Schema // keyed by id
}

func newMemRepo() *memRepo {
	return &memRepo{schemas: make(map[string]*domain.Schema)}
}

func (m *memRepo) Get(_ context.Context, id string) (*domain.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schemas[id]
	if !ok {
		return nil, schema.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) GetByName(_ context.Context, name string) (*domain.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.schemas {
		if s.Name == name {
			cp := *s
			return &cp, nil
		}
	}
	return nil, schema.ErrNotFound
}

func (m *memRepo) List(_ context.Context, f schema.ListFilter) ([]domain.Schema, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Schema
	for _, s := range m.schemas {
		if f.PublishedOnly && !s.IsPublished {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *memRepo) Create(_ context.Context, s *domain.Schema) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.schemas {
		if existing.Name == s.Name {
			return "", schema.ErrDuplicateName
		}
	}
	cp := *s
	m.schemas[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memRepo) Update(_ context.Context, s *domain.Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schemas[s.ID]; !ok {
		return schema.ErrNotFound
	}
	cp := *s
	m.schemas[cp.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schemas[id]; !ok {
		return schema.ErrNotFound
	}
	delete(m.schemas, id)
	return nil
}

func newService(repo schema.Repository) *schema.Service {
	return schema.NewService(repo, logger.New(io.Discard, logger.ERROR))
}

func sampleFields() []domain.FieldSpec {
	return []domain.FieldSpec{
		{SequenceNumber: 1, Name: "Lead ID", StartPosition: 1, Length: 5,
			DataType: domain.DataTypeNumber, PaddingSide: domain.PadLeft, SourceField: "id"},
		{SequenceNumber: 2, Name: "First Name", StartPosition: 6, Length: 10,
			DataType: domain.DataTypeString, PaddingSide: domain.PadRight, SourceField: "firstname"},
	}
}

func TestCreateComputesLineLength(t *testing.T) {
	svc := newService(newMemRepo())

	sc, err := svc.Create(context.Background(), schema.CreateInput{
		Name:   "leads",
		Fields: sampleFields(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, sc.ID)
	assert.Equal(t, 15, sc.LineLength)
	assert.Equal(t, "txt", sc.FileExtension)
	assert.False(t, sc.IsPublished)
}

func TestCreateRequiresFields(t *testing.T) {
	svc := newService(newMemRepo())

	_, err := svc.Create(context.Background(), schema.CreateInput{Name: "empty"})
	assert.ErrorIs(t, err, schema.ErrNoFields)
}

func TestCreateRejectsInvalidField(t *testing.T) {
	svc := newService(newMemRepo())

	_, err := svc.Create(context.Background(), schema.CreateInput{
		Name: "bad",
		Fields: []domain.FieldSpec{
			{SequenceNumber: 1, Name: "broken", StartPosition: 0, Length: 3},
		},
	})
	assert.Error(t, err)
}

func TestUpdateFieldsRecomputesLineLength(t *testing.T) {
	svc := newService(newMemRepo())
	sc, err := svc.Create(context.Background(), schema.CreateInput{Name: "leads", Fields: sampleFields()})
	require.NoError(t, err)

	wider := append(sampleFields(), domain.FieldSpec{
		SequenceNumber: 3, Name: "Email", StartPosition: 16, Length: 40,
		DataType: domain.DataTypeString, PaddingSide: domain.PadRight, SourceField: "email",
	})
	updated, err := svc.Update(context.Background(), sc.ID, schema.UpdateInput{Fields: wider})
	require.NoError(t, err)

	assert.Equal(t, 55, updated.LineLength)
	assert.Len(t, updated.Fields, 3)
}

func TestFieldsJSONRoundTrip(t *testing.T) {
	svc := newService(newMemRepo())
	src, err := svc.Create(context.Background(), schema.CreateInput{Name: "source", Fields: sampleFields()})
	require.NoError(t, err)
	dst, err := svc.Create(context.Background(), schema.CreateInput{
		Name: "target",
		Fields: []domain.FieldSpec{
			{SequenceNumber: 1, Name: "placeholder", StartPosition: 1, Length: 1, SourceField: "id"},
		},
	})
	require.NoError(t, err)

	exported, err := svc.ExportFields(context.Background(), src.ID)
	require.NoError(t, err)

	imported, err := svc.ImportFields(context.Background(), dst.ID, exported)
	require.NoError(t, err)

	assert.Equal(t, src.Fields, imported.Fields)
	assert.Equal(t, src.LineLength, imported.LineLength)
}

func TestSetPublished(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo)
	sc, err := svc.Create(context.Background(), schema.CreateInput{Name: "leads", Fields: sampleFields()})
	require.NoError(t, err)

	require.NoError(t, svc.SetPublished(context.Background(), sc.ID, true))

	published, err := svc.ListPublished(context.Background())
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, sc.ID, published[0].ID)
}

const layoutSheet = `Aspect FastPath layout,,,,,,
Exported 2026-08-31,,,,,,
No,Field Name,Start,Length,Data Type,Padding,Source Field
1,Lead ID,1,5,Number,,id
2,First Name,6,10,Text,,firstname
3,Broken Row,0,4,Text,,nope
4,Signup Date,16,8,Date,,date_added
,,,,,,
99,After Blank,30,4,Text,,ignored
`

func TestImportLayoutCSV(t *testing.T) {
	svc := newService(newMemRepo())
	sc, err := svc.Create(context.Background(), schema.CreateInput{
		Name: "leads",
		Fields: []domain.FieldSpec{
			{SequenceNumber: 1, Name: "placeholder", StartPosition: 1, Length: 1, SourceField: "id"},
		},
	})
	require.NoError(t, err)

	report, err := svc.ImportLayoutCSV(context.Background(), sc.ID, strings.NewReader(layoutSheet))
	require.NoError(t, err)

	// The row with start position 0 is skipped, the blank row stops the import.
	assert.Equal(t, 3, report.Imported)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "start_position")

	imported, err := svc.Get(context.Background(), sc.ID)
	require.NoError(t, err)
	require.Len(t, imported.Fields, 3)

	leadID := imported.Fields[0]
	assert.Equal(t, domain.DataTypeNumber, leadID.DataType)
	assert.Equal(t, domain.PadLeft, leadID.PaddingSide)
	assert.Equal(t, "id", leadID.SourceField)

	signup := imported.Fields[2]
	assert.Equal(t, domain.DataTypeDate, signup.DataType)
	assert.Equal(t, 3, signup.SequenceNumber)
	assert.Equal(t, 23, imported.LineLength)
}

func TestImportLayoutCSVNoHeader(t *testing.T) {
	svc := newService(newMemRepo())
	sc, err := svc.Create(context.Background(), schema.CreateInput{
		Name: "leads",
		Fields: []domain.FieldSpec{
			{SequenceNumber: 1, Name: "placeholder", StartPosition: 1, Length: 1, SourceField: "id"},
		},
	})
	require.NoError(t, err)

	_, err = svc.ImportLayoutCSV(context.Background(), sc.ID, strings.NewReader("just,some,cells\n1,2,3\n"))
	assert.Error(t, err)
}

func TestDefaultSourceFieldFromName(t *testing.T) {
	svc := newService(newMemRepo())
	sc, err := svc.Create(context.Background(), schema.CreateInput{
		Name: "leads",
		Fields: []domain.FieldSpec{
			{SequenceNumber: 1, Name: "placeholder", StartPosition: 1, Length: 1, SourceField: "id"},
		},
	})
	require.NoError(t, err)

	sheet := "No,Field Name,Start,Length,Data Type\n1,Postal Code,1,8,Text\n"
	_, err = svc.ImportLayoutCSV(context.Background(), sc.ID, strings.NewReader(sheet))
	require.NoError(t, err)

	imported, err := svc.Get(context.Background(), sc.ID)
	require.NoError(t, err)
	require.Len(t, imported.Fields, 1)
	assert.Equal(t, "postal_code", imported.Fields[0].SourceField)
}
