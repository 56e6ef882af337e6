package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ignite/aspect-export/internal/domain"
	"github.com/ignite/aspect-export/internal/service/dispatch"
)

// DispatchLogRepo implements dispatch.Repository against PostgreSQL. Entries
// are append-only; only deletes mutate the table.
type DispatchLogRepo struct{ db *sql.DB }

// NewDispatchLogRepo creates a Postgres-backed dispatch log repository.
func NewDispatchLogRepo(db *sql.DB) *DispatchLogRepo { return &DispatchLogRepo{db: db} }

const dispatchColumns = `id, contact_id, COALESCE(contact_email,''), schema_id, COALESCE(schema_name,''),
	COALESCE(campaign_id,''), COALESCE(event_id,''), target_url, list_name, function_type,
	message_id, status, COALESCE(request_payload,''), COALESCE(response_payload,''),
	COALESCE(record_line,''), custom_fields, COALESCE(error_message,''),
	COALESCE(fault_code,''), duration_ms, created_at`

func scanDispatchLog(row interface{ Scan(...interface{}) error }) (*domain.DispatchLog, error) {
	l := &domain.DispatchLog{}
	var custom []byte
	err := row.Scan(&l.ID, &l.ContactID, &l.ContactEmail, &l.SchemaID, &l.SchemaName,
		&l.CampaignID, &l.EventID, &l.TargetURL, &l.ListName, &l.FunctionType,
		&l.MessageID, &l.Status, &l.RequestPayload, &l.ResponsePayload,
		&l.RecordLine, &custom, &l.ErrorMessage, &l.FaultCode, &l.DurationMs, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(custom) > 0 {
		if err := json.Unmarshal(custom, &l.CustomFields); err != nil {
			return nil, fmt.Errorf("parse custom fields: %w", err)
		}
	}
	return l, nil
}

func (r *DispatchLogRepo) Get(ctx context.Context, id string) (*domain.DispatchLog, error) {
	l, err := scanDispatchLog(r.db.QueryRowContext(ctx, `
		SELECT `+dispatchColumns+`
		FROM aspect_dispatch_logs
		WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, dispatch.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dispatch log: %w", err)
	}
	return l, nil
}

func (r *DispatchLogRepo) List(ctx context.Context, f dispatch.ListFilter) ([]domain.DispatchLog, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
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
	if f.ContactID != "" {
		where += fmt.Sprintf(" AND contact_id = $%d", idx)
		args = append(args, f.ContactID)
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM aspect_dispatch_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count dispatch logs: %w", err)
	}

	q := `SELECT ` + dispatchColumns + ` FROM aspect_dispatch_logs` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list dispatch logs: %w", err)
	}
	defer rows.Close()

	var out []domain.DispatchLog
	for rows.Next() {
		l, err := scanDispatchLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan dispatch log: %w", err)
		}
		out = append(out, *l)
	}
	return out, total, rows.Err()
}

func (r *DispatchLogRepo) Create(ctx context.Context, l *domain.DispatchLog) (string, error) {
	var custom interface{}
	if len(l.CustomFields) > 0 {
		data, err := json.Marshal(l.CustomFields)
		if err != nil {
			return "", fmt.Errorf("marshal custom fields: %w", err)
		}
		custom = data
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO aspect_dispatch_logs (id, contact_id, contact_email, schema_id, schema_name,
			campaign_id, event_id, target_url, list_name, function_type, message_id, status,
			request_payload, response_payload, record_line, custom_fields, error_message,
			fault_code, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`, l.ID, l.ContactID, l.ContactEmail, l.SchemaID, l.SchemaName,
		l.CampaignID, l.EventID, l.TargetURL, l.ListName, l.FunctionType,
		l.MessageID, l.Status, l.RequestPayload, l.ResponsePayload, l.RecordLine,
		custom, l.ErrorMessage, l.FaultCode, l.DurationMs, l.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("create dispatch log: %w", err)
	}
	return l.ID, nil
}

func (r *DispatchLogRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM aspect_dispatch_logs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dispatch log: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dispatch.ErrNotFound
	}
	return nil
}

func (r *DispatchLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM aspect_dispatch_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clear dispatch logs: %w", err)
	}
	return res.RowsAffected()
}
