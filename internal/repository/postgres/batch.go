package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/aspect-export/internal/domain"
	"github.com/ignite/aspect-export/internal/service/batch"
)

// BatchRepo implements batch.Repository against PostgreSQL. A partial unique
// index on the grouping key of PENDING batches backs the find-or-create in
// the service layer.
type BatchRepo struct{ db *sql.DB }

// NewBatchRepo creates a Postgres-backed batch repository.
func NewBatchRepo(db *sql.DB) *BatchRepo { return &BatchRepo{db: db} }

const batchColumns = `id, schema_id, campaign_id, event_id, destination_kind, destination_target,
	COALESCE(file_name_template,''), status, record_count, COALESCE(file_name,''),
	COALESCE(file_path,''), file_size_bytes, generated_at, uploaded_at,
	COALESCE(error_message,''), created_at`

func scanBatch(row interface{ Scan(...interface{}) error }) (*domain.Batch, error) {
	b := &domain.Batch{}
	err := row.Scan(&b.ID, &b.SchemaID, &b.CampaignID, &b.EventID,
		&b.DestinationKind, &b.DestinationTarget, &b.FileNameTemplate,
		&b.Status, &b.RecordCount, &b.FileName, &b.FilePath, &b.FileSizeBytes,
		&b.GeneratedAt, &b.UploadedAt, &b.ErrorMessage, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BatchRepo) Get(ctx context.Context, id string) (*domain.Batch, error) {
	b, err := scanBatch(r.db.QueryRowContext(ctx, `
		SELECT `+batchColumns+`
		FROM aspect_batches
		WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, batch.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

func (r *BatchRepo) List(ctx context.Context, f batch.ListFilter) ([]domain.Batch, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := " WHERE 1=1"
	args := []interface{}{}
	idx := 1
	if f.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if f.SchemaID != "" {
		where += fmt.Sprintf(" AND schema_id = $%d", idx)
		args = append(args, f.SchemaID)
		idx++
	}
	if f.CampaignID != "" {
		where += fmt.Sprintf(" AND campaign_id = $%d", idx)
		args = append(args, f.CampaignID)
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM aspect_batches`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	q := `SELECT ` + batchColumns + ` FROM aspect_batches` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []domain.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, *b)
	}
	return out, total, rows.Err()
}

func (r *BatchRepo) FindPending(ctx context.Context, campaignID, eventID, schemaID, target string) (*domain.Batch, error) {
	b, err := scanBatch(r.db.QueryRowContext(ctx, `
		SELECT `+batchColumns+`
		FROM aspect_batches
		WHERE status = 'PENDING'
		  AND campaign_id = $1 AND event_id = $2 AND schema_id = $3 AND destination_target = $4
		ORDER BY created_at ASC
		LIMIT 1
	`, campaignID, eventID, schemaID, target))
	if err == sql.ErrNoRows {
		return nil, batch.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find pending batch: %w", err)
	}
	return b, nil
}

func (r *BatchRepo) Create(ctx context.Context, b *domain.Batch) (string, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO aspect_batches (id, schema_id, campaign_id, event_id, destination_kind,
			destination_target, file_name_template, status, record_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, NOW())
	`, b.ID, b.SchemaID, b.CampaignID, b.EventID, b.DestinationKind,
		b.DestinationTarget, b.FileNameTemplate, b.Status)
	if isUniqueViolation(err) {
		return "", batch.ErrDuplicatePending
	}
	if err != nil {
		return "", fmt.Errorf("create batch: %w", err)
	}
	return b.ID, nil
}

func (r *BatchRepo) Update(ctx context.Context, b *domain.Batch) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE aspect_batches
		SET status = $2, record_count = $3, file_name = $4, file_path = $5,
		    file_size_bytes = $6, generated_at = $7, uploaded_at = $8, error_message = $9
		WHERE id = $1
	`, b.ID, b.Status, b.RecordCount, b.FileName, b.FilePath,
		b.FileSizeBytes, b.GeneratedAt, b.UploadedAt, b.ErrorMessage)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return batch.ErrNotFound
	}
	return nil
}

func (r *BatchRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM aspect_batches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return batch.ErrNotFound
	}
	return nil
}

func (r *BatchRepo) ListOldestPending(ctx context.Context, limit int) ([]domain.Batch, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+batchColumns+`
		FROM aspect_batches
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending batches: %w", err)
	}
	defer rows.Close()

	var out []domain.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *BatchRepo) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM aspect_batches WHERE status = 'PENDING'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending batches: %w", err)
	}
	return n, nil
}

func (r *BatchRepo) AddRecord(ctx context.Context, rec *domain.BatchRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add record: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO aspect_batch_records (id, batch_id, contact_id, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, rec.ID, rec.BatchID, rec.ContactID, rec.Status); err != nil {
		return fmt.Errorf("insert batch record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE aspect_batches SET record_count = record_count + 1 WHERE id = $1
	`, rec.BatchID); err != nil {
		return fmt.Errorf("bump record count: %w", err)
	}

	return tx.Commit()
}

func (r *BatchRepo) PendingRecords(ctx context.Context, batchID string, limit int) ([]domain.BatchRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, batch_id, contact_id, status, created_at
		FROM aspect_batch_records
		WHERE batch_id = $1 AND status = 'PENDING'
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`, batchID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending records: %w", err)
	}
	defer rows.Close()

	var out []domain.BatchRecord
	for rows.Next() {
		var rec domain.BatchRecord
		if err := rows.Scan(&rec.ID, &rec.BatchID, &rec.ContactID, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan batch record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *BatchRepo) SetRecordStatus(ctx context.Context, ids []string, status domain.RecordStatus) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE aspect_batch_records SET status = $1 WHERE id = ANY($2)
	`, status, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("set record status: %w", err)
	}
	return nil
}

func (r *BatchRepo) ResetGeneratedRecords(ctx context.Context, batchID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE aspect_batch_records SET status = 'PENDING'
		WHERE batch_id = $1 AND status = 'GENERATED'
	`, batchID)
	if err != nil {
		return fmt.Errorf("reset generated records: %w", err)
	}
	return nil
}

func (r *BatchRepo) ResetAllRecords(ctx context.Context, batchID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE aspect_batch_records SET status = 'PENDING' WHERE batch_id = $1
	`, batchID)
	if err != nil {
		return fmt.Errorf("reset records: %w", err)
	}
	return nil
}
