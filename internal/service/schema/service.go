package schema

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ignite/aspect-export/internal/domain"
	"github.com/ignite/aspect-export/internal/pkg/logger"
)

// headerScanLimit bounds how many leading rows of a layout sheet are
// inspected while looking for the column header row. Sheets exported from
// spreadsheets usually carry a title block above the real header.
const headerScanLimit = 10

// Service implements record layout business logic. All public methods are
// safe for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo Repository
	log  *logger.Logger
}

// NewService creates a schema service backed by the given repository.
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Get returns a single schema.
func (s *Service) Get(ctx context.Context, id string) (*domain.Schema, error) {
	return s.repo.Get(ctx, id)
}

// GetByName returns the schema with the given unique name.
func (s *Service) GetByName(ctx context.Context, name string) (*domain.Schema, error) {
	return s.repo.GetByName(ctx, name)
}

// List returns schemas matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Schema, int, error) {
	return s.repo.List(ctx, f)
}

// ListPublished returns only schemas available for batch generation.
func (s *Service) ListPublished(ctx context.Context) ([]domain.Schema, error) {
	items, _, err := s.repo.List(ctx, ListFilter{PublishedOnly: true})
	return items, err
}

// CreateInput holds the fields accepted when creating a schema.
type CreateInput struct {
	Name          string
	Description   string
	FileExtension string
	Fields        []domain.FieldSpec
	IsPublished   bool
}

// Create validates and persists a new schema. The line length is always
// recomputed from the field layout; callers cannot set it directly.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Schema, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if err := validateFields(input.Fields); err != nil {
		return nil, err
	}

	sc := &domain.Schema{
		ID:            uuid.New().String(),
		Name:          input.Name,
		Description:   input.Description,
		FileExtension: input.FileExtension,
		IsPublished:   input.IsPublished,
	}
	if sc.FileExtension == "" {
		sc.FileExtension = "txt"
	}
	sc.SetFields(input.Fields)
	s.warnOverlaps(sc)

	id, err := s.repo.Create(ctx, sc)
	if err != nil {
		return nil, err
	}
	sc.ID = id
	return sc, nil
}

// UpdateInput holds the mutable fields of a schema. Nil pointers leave the
// current value untouched; a non-nil Fields slice replaces the whole layout.
type UpdateInput struct {
	Name          *string
	Description   *string
	FileExtension *string
	Fields        []domain.FieldSpec
	IsPublished   *bool
}

// Update applies a partial update and recomputes the line length whenever
// the field layout changes.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*domain.Schema, error) {
	sc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, fmt.Errorf("name cannot be empty")
		}
		sc.Name = *input.Name
	}
	if input.Description != nil {
		sc.Description = *input.Description
	}
	if input.FileExtension != nil && *input.FileExtension != "" {
		sc.FileExtension = *input.FileExtension
	}
	if input.IsPublished != nil {
		sc.IsPublished = *input.IsPublished
	}
	if input.Fields != nil {
		if err := validateFields(input.Fields); err != nil {
			return nil, err
		}
		sc.SetFields(input.Fields)
		s.warnOverlaps(sc)
	}

	if err := s.repo.Update(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// Delete removes a schema that no batch references.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// SetPublished toggles whether a schema is offered for new batches.
func (s *Service) SetPublished(ctx context.Context, id string, published bool) error {
	sc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	sc.IsPublished = published
	return s.repo.Update(ctx, sc)
}

// ExportFields returns the schema's field layout in the JSON interchange
// format, suitable for re-import on another environment.
func (s *Service) ExportFields(ctx context.Context, id string) ([]byte, error) {
	sc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sc.MarshalFields()
}

// ImportFields replaces a schema's layout from the JSON interchange format.
func (s *Service) ImportFields(ctx context.Context, id string, data []byte) (*domain.Schema, error) {
	sc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sc.UnmarshalFields(data); err != nil {
		return nil, err
	}
	if err := validateFields(sc.Fields); err != nil {
		return nil, err
	}
	s.warnOverlaps(sc)
	if err := s.repo.Update(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// ImportReport summarizes a layout sheet import. Warnings carry one entry
// per skipped row so operators can fix the sheet and retry.
type ImportReport struct {
	Imported int      `json:"imported"`
	Warnings []string `json:"warnings,omitempty"`
}

// ImportLayoutCSV replaces a schema's layout from a layout sheet exported as
// CSV. The header row is located within the first rows of the sheet, rows
// with an empty sequence number and name end the import, and rows failing
// validation are skipped with a warning instead of aborting the whole sheet.
func (s *Service) ImportLayoutCSV(ctx context.Context, id string, r io.Reader) (*ImportReport, error) {
	sc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields, report, err := parseLayoutSheet(r)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	sc.SetFields(fields)
	s.warnOverlaps(sc)
	if err := s.repo.Update(ctx, sc); err != nil {
		return nil, err
	}

	s.log.Info("schema: layout sheet imported",
		"schema", sc.Name,
		"fields", report.Imported,
		"skipped", len(report.Warnings),
		"line_length", sc.LineLength,
	)
	return report, nil
}

func validateFields(fields []domain.FieldSpec) error {
	if len(fields) == 0 {
		return ErrNoFields
	}
	for _, f := range fields {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// warnOverlaps logs overlapping field ranges. Overlaps are permitted; later
// fields simply overwrite the shared positions at encode time.
func (s *Service) warnOverlaps(sc *domain.Schema) {
	sorted := make([]domain.FieldSpec, len(sc.Fields))
	copy(sorted, sc.Fields)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartPosition < sorted[j].StartPosition
	})
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.StartPosition < prev.End() {
			s.log.Warn("schema: overlapping fields, later field wins on shared positions",
				"schema", sc.Name,
				"field", cur.Name,
				"overlaps", prev.Name,
			)
		}
	}
}

// layoutColumns maps normalized header cell text to field attributes.
var layoutColumns = map[string]string{
	"no":             "no",
	"#":              "no",
	"seq":            "no",
	"name":           "name",
	"field":          "name",
	"field name":     "name",
	"start":          "start",
	"start position": "start",
	"offset":         "start",
	"position":       "start",
	"length":         "length",
	"len":            "length",
	"size":           "length",
	"type":           "type",
	"data type":      "type",
	"format":         "format",
	"date format":    "format",
	"padding":        "padding",
	"padding side":   "padding",
	"pad":            "padding",
	"pad char":       "padchar",
	"padding char":   "padchar",
	"zero fill":      "zerofill",
	"zerofill":       "zerofill",
	"source":         "source",
	"source field":   "source",
	"contact field":  "source",
}

func parseLayoutSheet(r io.Reader) ([]domain.FieldSpec, *ImportReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read layout sheet: %w", err)
	}

	headerIdx, columns := findLayoutHeader(rows)
	if columns == nil {
		return nil, nil, fmt.Errorf("no header row found in the first %d rows (need at least No and Length columns)", headerScanLimit)
	}

	report := &ImportReport{}
	var fields []domain.FieldSpec
	seq := 0
	for rowNum, row := range rows[headerIdx+1:] {
		no := cellAt(row, columns, "no")
		name := cellAt(row, columns, "name")
		if no == "" && name == "" {
			break
		}

		seq++
		f := domain.FieldSpec{
			SequenceNumber: seq,
			Name:           name,
			SourceField:    cellAt(row, columns, "source"),
			DateFormat:     cellAt(row, columns, "format"),
			PaddingChar:    cellAt(row, columns, "padchar"),
		}
		f.StartPosition, _ = strconv.Atoi(cellAt(row, columns, "start"))
		f.Length, _ = strconv.Atoi(cellAt(row, columns, "length"))
		f.DataType = parseDataType(cellAt(row, columns, "type"))
		f.ZeroFill = parseBoolCell(cellAt(row, columns, "zerofill"))
		f.PaddingSide = parsePadding(cellAt(row, columns, "padding"), f.DataType)
		if f.SourceField == "" {
			f.SourceField = defaultSourceField(name)
		}

		if err := f.Validate(); err != nil {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("row %d skipped: %v", headerIdx+rowNum+2, err))
			seq--
			continue
		}
		fields = append(fields, f)
		report.Imported++
	}

	return fields, report, nil
}

// findLayoutHeader scans the leading rows for a row that names both a
// sequence and a length column. Returns the row index and the column map,
// or a nil map if none is found.
func findLayoutHeader(rows [][]string) (int, map[string]int) {
	limit := headerScanLimit
	if len(rows) < limit {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		columns := map[string]int{}
		for col, cell := range rows[i] {
			key := strings.ToLower(strings.TrimSpace(cell))
			if attr, ok := layoutColumns[key]; ok {
				if _, seen := columns[attr]; !seen {
					columns[attr] = col
				}
			}
		}
		if _, hasNo := columns["no"]; hasNo {
			if _, hasLen := columns["length"]; hasLen {
				return i, columns
			}
		}
	}
	return 0, nil
}

func cellAt(row []string, columns map[string]int, attr string) string {
	col, ok := columns[attr]
	if !ok || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func parseDataType(raw string) domain.DataType {
	switch strings.ToLower(raw) {
	case "date", "datetime", "timestamp":
		return domain.DataTypeDate
	case "number", "numeric", "int", "integer", "decimal":
		return domain.DataTypeNumber
	default:
		return domain.DataTypeString
	}
}

func parsePadding(raw string, dt domain.DataType) domain.PaddingSide {
	switch strings.ToLower(raw) {
	case "left", "l":
		return domain.PadLeft
	case "right", "r":
		return domain.PadRight
	}
	// Numbers are right-aligned by convention, text is left-aligned.
	if dt == domain.DataTypeNumber {
		return domain.PadLeft
	}
	return domain.PadRight
}

func parseBoolCell(raw string) bool {
	switch strings.ToLower(raw) {
	case "y", "yes", "true", "1", "x":
		return true
	}
	return false
}

func defaultSourceField(name string) string {
	cleaned := strings.ToLower(strings.TrimSpace(name))
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	cleaned = strings.ReplaceAll(cleaned, "-", "_")
	return cleaned
}
