package verification

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

type queueRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &queueRepoPG{pool: pool}
}

func (r *queueRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const itemCols = `id, practitioner_id, status, submitted_at, reviewed_at, reviewed_by, admin_notes, version`

func scanItem(row pgx.Row) (*QueueItem, error) {
	var it QueueItem
	err := row.Scan(&it.ID, &it.PractitionerID, &it.Status, &it.SubmittedAt,
		&it.ReviewedAt, &it.ReviewedBy, &it.AdminNotes, &it.Version)
	return &it, err
}

func (r *queueRepoPG) Create(ctx context.Context, item *QueueItem) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO verification_queue (id, practitioner_id, status, submitted_at, version)
		VALUES ($1, $2, $3, $4, $5)`,
		item.ID, item.PractitionerID, item.Status, item.SubmittedAt, item.Version)
	if err != nil {
		return fmt.Errorf("create verification item: %w", err)
	}
	return nil
}

func (r *queueRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*QueueItem, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+itemCols+` FROM verification_queue WHERE id = $1`, id)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("verification_item", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get verification item: %w", err)
	}
	return it, nil
}

func (r *queueRepoPG) GetOpenByPractitioner(ctx context.Context, practitionerID uuid.UUID) (*QueueItem, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT `+itemCols+` FROM verification_queue
		WHERE practitioner_id = $1 AND status IN ('pending', 'needs_review')
		ORDER BY submitted_at DESC
		LIMIT 1`, practitionerID)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("verification_item", practitionerID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get open verification item: %w", err)
	}
	return it, nil
}

// Update writes the item only when the stored version matches; the write
// bumps version so a concurrent admin's read goes stale.
func (r *queueRepoPG) Update(ctx context.Context, item *QueueItem, expectedVersion int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE verification_queue
		SET status = $1, reviewed_at = $2, reviewed_by = $3, admin_notes = $4, version = version + 1
		WHERE id = $5 AND version = $6`,
		item.Status, item.ReviewedAt, item.ReviewedBy, item.AdminNotes, item.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update verification item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.InvalidState("verification_item", "modified concurrently", "update")
	}
	item.Version = expectedVersion + 1
	return nil
}

func (r *queueRepoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*QueueItem, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM verification_queue WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count verification queue: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+itemCols+` FROM verification_queue
		WHERE status = $1
		ORDER BY submitted_at ASC
		LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list verification queue: %w", err)
	}
	defer rows.Close()

	var out []*QueueItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan verification item: %w", err)
		}
		out = append(out, it)
	}
	return out, total, rows.Err()
}

type auditRepoPG struct{ pool *pgxpool.Pool }

func NewAuditRepoPG(pool *pgxpool.Pool) AuditRepository {
	return &auditRepoPG{pool: pool}
}

func (r *auditRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *auditRepoPG) Append(ctx context.Context, e *AuditEntry) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO verification_audit_log (id, queue_item_id, practitioner_id,
			previous_status, new_status, actor, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.QueueItemID, e.PractitionerID, e.PreviousStatus, e.NewStatus, e.Actor, e.Notes, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append verification audit: %w", err)
	}
	return nil
}

func (r *auditRepoPG) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM verification_audit_log WHERE practitioner_id = $1`, practitionerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count verification audit: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, queue_item_id, practitioner_id, previous_status, new_status, actor, notes, created_at
		FROM verification_audit_log
		WHERE practitioner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, practitionerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list verification audit: %w", err)
	}
	defer rows.Close()

	var out []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.QueueItemID, &e.PractitionerID,
			&e.PreviousStatus, &e.NewStatus, &e.Actor, &e.Notes, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan verification audit: %w", err)
		}
		out = append(out, &e)
	}
	return out, total, rows.Err()
}
