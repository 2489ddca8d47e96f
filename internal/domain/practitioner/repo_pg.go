package practitioner

import (
	"context"
	"errors"
	"time"

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

type practitionerRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &practitionerRepoPG{pool: pool}
}

func (r *practitionerRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const practitionerCols = `id, display_name, professional_title, professional_type,
	years_experience, bio, practice_address,
	verification_status, verified_at, trust_score, is_active,
	created_at, updated_at`

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	err := row.Scan(&p.ID, &p.DisplayName, &p.ProfessionalTitle, &p.ProfessionalType,
		&p.YearsExperience, &p.Bio, &p.PracticeAddress,
		&p.VerificationStatus, &p.VerifiedAt, &p.TrustScore, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *practitionerRepoPG) Create(ctx context.Context, p *Practitioner) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO practitioners (id, display_name, professional_title, professional_type,
			years_experience, bio, practice_address, verification_status, trust_score, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.DisplayName, p.ProfessionalTitle, p.ProfessionalType,
		p.YearsExperience, p.Bio, p.PracticeAddress, p.VerificationStatus, p.TrustScore, p.IsActive)
	return err
}

func (r *practitionerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	p, err := scanPractitioner(r.conn(ctx).QueryRow(ctx,
		`SELECT `+practitionerCols+` FROM practitioners WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("practitioner", id.String())
	}
	return p, err
}

func (r *practitionerRepoPG) UpdateProfile(ctx context.Context, p *Practitioner) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE practitioners SET display_name=$2, professional_title=$3, professional_type=$4,
			years_experience=$5, bio=$6, practice_address=$7, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.DisplayName, p.ProfessionalTitle, p.ProfessionalType,
		p.YearsExperience, p.Bio, p.PracticeAddress)
	return err
}

func (r *practitionerRepoPG) SetVerificationStatus(ctx context.Context, id uuid.UUID, status string, verifiedAt *time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE practitioners SET verification_status=$2,
			verified_at=COALESCE($3, verified_at), updated_at=NOW()
		WHERE id = $1`, id, status, verifiedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("practitioner", id.String())
	}
	return nil
}

func (r *practitionerRepoPG) SetTrustScore(ctx context.Context, id uuid.UUID, score int) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE practitioners SET trust_score=$2, updated_at=NOW() WHERE id = $1`, id, score)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("practitioner", id.String())
	}
	return nil
}

func (r *practitionerRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE practitioners SET is_active=false, updated_at=NOW() WHERE id = $1`, id)
	return err
}

func (r *practitionerRepoPG) List(ctx context.Context, limit, offset int) ([]*Practitioner, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM practitioners WHERE is_active = true`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+practitionerCols+`
		FROM practitioners WHERE is_active = true
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Practitioner
	for rows.Next() {
		p, err := scanPractitioner(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

type licenseRepoPG struct{ pool *pgxpool.Pool }

func NewLicenseRepoPG(pool *pgxpool.Pool) LicenseRepository {
	return &licenseRepoPG{pool: pool}
}

func (r *licenseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *licenseRepoPG) Create(ctx context.Context, l *License) error {
	l.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO licenses (id, practitioner_id, license_number, issuing_authority, region, expires_at, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		l.ID, l.PractitionerID, l.LicenseNumber, l.IssuingAuthority, l.Region, l.ExpiresAt, l.IsActive)
	return err
}

func (r *licenseRepoPG) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]*License, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, practitioner_id, license_number, issuing_authority, region, expires_at, is_active, created_at
		FROM licenses WHERE practitioner_id = $1 ORDER BY created_at`, practitionerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*License
	for rows.Next() {
		var l License
		if err := rows.Scan(&l.ID, &l.PractitionerID, &l.LicenseNumber, &l.IssuingAuthority,
			&l.Region, &l.ExpiresAt, &l.IsActive, &l.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &l)
	}
	return items, rows.Err()
}

type subscriptionRepoPG struct{ pool *pgxpool.Pool }

func NewSubscriptionRepoPG(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepoPG{pool: pool}
}

func (r *subscriptionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *subscriptionRepoPG) GetActive(ctx context.Context, practitionerID uuid.UUID) (*Subscription, error) {
	var s Subscription
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, practitioner_id, plan, is_active, created_at, updated_at
		FROM subscriptions WHERE practitioner_id = $1 AND is_active = true`,
		practitionerID).Scan(&s.ID, &s.PractitionerID, &s.Plan, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("subscription", practitionerID.String())
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subscriptionRepoPG) Upsert(ctx context.Context, s *Subscription) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO subscriptions (id, practitioner_id, plan, is_active)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (practitioner_id)
		DO UPDATE SET plan = EXCLUDED.plan, is_active = EXCLUDED.is_active, updated_at = NOW()`,
		s.ID, s.PractitionerID, s.Plan, s.IsActive)
	return err
}
