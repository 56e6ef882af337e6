package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/aspect-export/internal/domain"
	"github.com/ignite/aspect-export/internal/service/schema"
)

// uniqueViolation is the Postgres error code raised by unique indexes.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// SchemaRepo implements schema.Repository against PostgreSQL. Field layouts
// are stored as a JSONB document in the fields column.
type SchemaRepo struct{ db *sql.DB }

// NewSchemaRepo creates a Postgres-backed schema repository.
func NewSchemaRepo(db *sql.DB) *SchemaRepo { return &SchemaRepo{db: db} }

const schemaColumns = `id, name, COALESCE(description,''), file_extension, fields, line_length, is_published, created_at`

func scanSchema(row interface{ Scan(...interface{}) error }) (*domain.Schema, error) {
	s := &domain.Schema{}
	var fields []byte
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.FileExtension,
		&fields, &s.LineLength, &s.IsPublished, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := s.UnmarshalFields(fields); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SchemaRepo) Get(ctx context.Context, id string) (*domain.Schema, error) {
	s, err := scanSchema(r.db.QueryRowContext(ctx, `
		SELECT `+schemaColumns+`
		FROM aspect_schemas
		WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, schema.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schema: %w", err)
	}
	return s, nil
}

func (r *SchemaRepo) GetByName(ctx context.Context, name string) (*domain.Schema, error) {
	s, err := scanSchema(r.db.QueryRowContext(ctx, `
		SELECT `+schemaColumns+`
		FROM aspect_schemas
		WHERE name = $1
	`, name))
	if err == sql.ErrNoRows {
		return nil, schema.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schema by name: %w", err)
	}
	return s, nil
}

func (r *SchemaRepo) List(ctx context.Context, f schema.ListFilter) ([]domain.Schema, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := " WHERE 1=1"
	args := []interface{}{}
	idx := 1
	if f.PublishedOnly {
		where += " AND is_published = TRUE"
	}
	if f.Search != "" {
		where += fmt.Sprintf(" AND name ILIKE $%d", idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM aspect_schemas`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count schemas: %w", err)
	}

	q := `SELECT ` + schemaColumns + ` FROM aspect_schemas` + where +
		fmt.Sprintf(" ORDER BY name ASC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	var out []domain.Schema
	for rows.Next() {
		s, err := scanSchema(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan schema: %w", err)
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

func (r *SchemaRepo) Create(ctx context.Context, s *domain.Schema) (string, error) {
	fields, err := s.MarshalFields()
	if err != nil {
		return "", fmt.Errorf("marshal schema fields: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO aspect_schemas (id, name, description, file_extension, fields, line_length, is_published, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, s.ID, s.Name, s.Description, s.FileExtension, fields, s.LineLength, s.IsPublished)
	if isUniqueViolation(err) {
		return "", schema.ErrDuplicateName
	}
	if err != nil {
		return "", fmt.Errorf("create schema: %w", err)
	}
	return s.ID, nil
}

func (r *SchemaRepo) Update(ctx context.Context, s *domain.Schema) error {
	fields, err := s.MarshalFields()
	if err != nil {
		return fmt.Errorf("marshal schema fields: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE aspect_schemas
		SET name = $2, description = $3, file_extension = $4, fields = $5,
		    line_length = $6, is_published = $7
		WHERE id = $1
	`, s.ID, s.Name, s.Description, s.FileExtension, fields, s.LineLength, s.IsPublished)
	if isUniqueViolation(err) {
		return schema.ErrDuplicateName
	}
	if err != nil {
		return fmt.Errorf("update schema: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schema.ErrNotFound
	}
	return nil
}

func (r *SchemaRepo) Delete(ctx context.Context, id string) error {
	var inUse bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM aspect_batches WHERE schema_id = $1)`, id).Scan(&inUse)
	if err != nil {
		return fmt.Errorf("check schema references: %w", err)
	}
	if inUse {
		return schema.ErrInUse
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM aspect_schemas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schema: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schema.ErrNotFound
	}
	return nil
}
