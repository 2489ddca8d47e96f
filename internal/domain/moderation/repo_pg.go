package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aesthetiq/aesthetiq/internal/platform/apperr"
	"github.com/aesthetiq/aesthetiq/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type reportRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &reportRepoPG{pool: pool}
}

func (r *reportRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const reportCols = `id, reporter_id, reported_user_id, report_type, description,
	status, admin_notes, action_taken, reviewed_by, resolved_at, created_at, updated_at`

func scanReport(row pgx.Row) (*ContentReport, error) {
	var cr ContentReport
	err := row.Scan(&cr.ID, &cr.ReporterID, &cr.ReportedUserID, &cr.ReportType, &cr.Description,
		&cr.Status, &cr.AdminNotes, &cr.ActionTaken, &cr.ReviewedBy, &cr.ResolvedAt, &cr.CreatedAt, &cr.UpdatedAt)
	return &cr, err
}

func (r *reportRepoPG) Create(ctx context.Context, cr *ContentReport) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO content_reports (id, reporter_id, reported_user_id, report_type, description, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		cr.ID, cr.ReporterID, cr.ReportedUserID, cr.ReportType, cr.Description, cr.Status, cr.CreatedAt, cr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (r *reportRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ContentReport, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+` FROM content_reports WHERE id = $1`, id)
	cr, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("content_report", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return cr, nil
}

func (r *reportRepoPG) Update(ctx context.Context, cr *ContentReport) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE content_reports
		SET status = $1, admin_notes = $2, action_taken = $3, reviewed_by = $4, resolved_at = $5, updated_at = $6
		WHERE id = $7`,
		cr.Status, cr.AdminNotes, cr.ActionTaken, cr.ReviewedBy, cr.ResolvedAt, cr.UpdatedAt, cr.ID)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("content_report", cr.ID.String())
	}
	return nil
}

func (r *reportRepoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*ContentReport, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM content_reports WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+reportCols+` FROM content_reports
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []*ContentReport
	for rows.Next() {
		cr, err := scanReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, cr)
	}
	return out, total, rows.Err()
}
