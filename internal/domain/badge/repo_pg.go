package badge

import (
	"context"
	"encoding/json"
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

type badgeRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &badgeRepoPG{pool: pool}
}

func (r *badgeRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const badgeCols = `id, practitioner_id, badge_type, is_active, earned_at, revoked_at, last_computed_at, computation_metadata`

func scanBadge(row pgx.Row) (*Badge, error) {
	var b Badge
	var meta []byte
	if err := row.Scan(&b.ID, &b.PractitionerID, &b.BadgeType, &b.IsActive,
		&b.EarnedAt, &b.RevokedAt, &b.LastComputedAt, &meta); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &b.Metadata); err != nil {
			return nil, fmt.Errorf("decode computation_metadata: %w", err)
		}
	}
	return &b, nil
}

func (r *badgeRepoPG) Get(ctx context.Context, practitionerID uuid.UUID, t BadgeType) (*Badge, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+badgeCols+` FROM trust_badges WHERE practitioner_id = $1 AND badge_type = $2`,
		practitionerID, t)
	b, err := scanBadge(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("badge", string(t))
	}
	if err != nil {
		return nil, fmt.Errorf("get badge: %w", err)
	}
	return b, nil
}

func (r *badgeRepoPG) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, activeOnly bool) ([]*Badge, error) {
	q := `SELECT ` + badgeCols + ` FROM trust_badges WHERE practitioner_id = $1`
	if activeOnly {
		q += ` AND is_active`
	}
	q += ` ORDER BY earned_at DESC`
	rows, err := r.conn(ctx).Query(ctx, q, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	var out []*Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *badgeRepoPG) Upsert(ctx context.Context, b *Badge) error {
	meta, err := json.Marshal(b.Metadata)
	if err != nil {
		return fmt.Errorf("encode computation_metadata: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO trust_badges (id, practitioner_id, badge_type, is_active, earned_at, revoked_at, last_computed_at, computation_metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (practitioner_id, badge_type) DO UPDATE SET
			is_active = EXCLUDED.is_active,
			earned_at = EXCLUDED.earned_at,
			revoked_at = EXCLUDED.revoked_at,
			last_computed_at = EXCLUDED.last_computed_at,
			computation_metadata = EXCLUDED.computation_metadata`,
		b.ID, b.PractitionerID, b.BadgeType, b.IsActive, b.EarnedAt, b.RevokedAt, b.LastComputedAt, meta)
	if err != nil {
		return fmt.Errorf("upsert badge: %w", err)
	}
	return nil
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
		INSERT INTO badge_audit_log (id, practitioner_id, badge_type, action, automated,
			admin_user_id, reason, previous_active, new_active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.PractitionerID, e.BadgeType, e.Action, e.Automated,
		e.AdminUserID, e.Reason, e.PreviousActive, e.NewActive, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append badge audit: %w", err)
	}
	return nil
}

func (r *auditRepoPG) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*AuditEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM badge_audit_log WHERE practitioner_id = $1`, practitionerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count badge audit: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, practitioner_id, badge_type, action, automated, admin_user_id, reason,
			previous_active, new_active, created_at
		FROM badge_audit_log
		WHERE practitioner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, practitionerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list badge audit: %w", err)
	}
	defer rows.Close()

	var out []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.PractitionerID, &e.BadgeType, &e.Action, &e.Automated,
			&e.AdminUserID, &e.Reason, &e.PreviousActive, &e.NewActive, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan badge audit: %w", err)
		}
		out = append(out, &e)
	}
	return out, total, rows.Err()
}
