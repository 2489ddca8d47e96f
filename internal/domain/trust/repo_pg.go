package trust

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aesthetiq/aesthetiq/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type eventRepoPG struct{ pool *pgxpool.Pool }

func NewEventRepoPG(pool *pgxpool.Pool) EventRepository {
	return &eventRepoPG{pool: pool}
}

func (r *eventRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *eventRepoPG) Append(ctx context.Context, e *TrustEvent) error {
	e.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO trust_events (id, event_type, practitioner_id, patient_id_hash, event_weight, metadata)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, e.EventType, e.PractitionerID, e.PatientIDHash, e.EventWeight, e.Metadata)
	return err
}

func (r *eventRepoPG) SumWeights(ctx context.Context, practitionerID uuid.UUID) (int, error) {
	var sum int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(event_weight), 0) FROM trust_events WHERE practitioner_id = $1`,
		practitionerID).Scan(&sum)
	return sum, err
}

func (r *eventRepoPG) CountByTypes(ctx context.Context, practitionerID uuid.UUID, types []string, since time.Time) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM trust_events
		WHERE practitioner_id = $1 AND event_type = ANY($2) AND created_at >= $3`,
		practitionerID, types, since).Scan(&count)
	return count, err
}

func (r *eventRepoPG) CountAll(ctx context.Context, practitionerID uuid.UUID) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM trust_events WHERE practitioner_id = $1`,
		practitionerID).Scan(&count)
	return count, err
}

func (r *eventRepoPG) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*TrustEvent, int, error) {
	total, err := r.CountAll(ctx, practitionerID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, event_type, practitioner_id, patient_id_hash, event_weight, metadata, created_at
		FROM trust_events WHERE practitioner_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, practitionerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*TrustEvent
	for rows.Next() {
		var e TrustEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.PractitionerID, &e.PatientIDHash,
			&e.EventWeight, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &e)
	}
	return items, total, rows.Err()
}
