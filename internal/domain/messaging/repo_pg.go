package messaging

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

type threadRepoPG struct{ pool *pgxpool.Pool }

func NewThreadRepoPG(pool *pgxpool.Pool) ThreadRepository {
	return &threadRepoPG{pool: pool}
}

const threadCols = `id, thread_type, patient_id, practitioner_id, status, message_count_by_patient, created_at, updated_at`

func scanThread(row pgx.Row) (*Thread, error) {
	var t Thread
	err := row.Scan(&t.ID, &t.ThreadType, &t.PatientID, &t.PractitionerID,
		&t.Status, &t.MessageCountByPatient, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *threadRepoPG) Create(ctx context.Context, t *Thread) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO threads (id, thread_type, patient_id, practitioner_id, status, message_count_by_patient, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.ThreadType, t.PatientID, t.PractitionerID, t.Status, t.MessageCountByPatient, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	return nil
}

func (r *threadRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Thread, error) {
	row := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+threadCols+` FROM threads WHERE id = $1`, id)
	t, err := scanThread(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("thread", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return t, nil
}

// GetForUpdate locks the thread row for the remainder of the surrounding
// transaction. Callers outside a transaction get plain read semantics.
func (r *threadRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Thread, error) {
	row := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+threadCols+` FROM threads WHERE id = $1 FOR UPDATE`, id)
	t, err := scanThread(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("thread", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("lock thread: %w", err)
	}
	return t, nil
}

func (r *threadRepoPG) GetActiveDirect(ctx context.Context, patientID, practitionerID uuid.UUID) (*Thread, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+threadCols+` FROM threads
		WHERE thread_type = 'direct' AND status = 'active'
			AND patient_id = $1 AND practitioner_id = $2`,
		patientID, practitionerID)
	t, err := scanThread(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("thread", "active direct")
	}
	if err != nil {
		return nil, fmt.Errorf("get direct thread: %w", err)
	}
	return t, nil
}

func (r *threadRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE threads SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("set thread status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("thread", id.String())
	}
	return nil
}

func (r *threadRepoPG) IncrementPatientCount(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE threads
		SET message_count_by_patient = message_count_by_patient + 1, updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("bump patient count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("thread", id.String())
	}
	return nil
}

func (r *threadRepoPG) ListForUser(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]*Thread, int, error) {
	col := "patient_id"
	if role == SenderPractitioner {
		col = "practitioner_id"
	}
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM threads WHERE `+col+` = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count threads: %w", err)
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+threadCols+` FROM threads
		WHERE `+col+` = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var out []*Thread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan thread: %w", err)
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

type messageRepoPG struct{ pool *pgxpool.Pool }

func NewMessageRepoPG(pool *pgxpool.Pool) MessageRepository {
	return &messageRepoPG{pool: pool}
}

func (r *messageRepoPG) Insert(ctx context.Context, m *Message) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO messages (id, thread_id, sender_id, sender_type, content, is_read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.ThreadID, m.SenderID, m.SenderType, m.Content, m.IsRead, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *messageRepoPG) ListByThread(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE thread_id = $1`, threadID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, thread_id, sender_id, sender_type, content, is_read, created_at
		FROM messages
		WHERE thread_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`, threadID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.SenderType, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, &m)
	}
	return out, total, rows.Err()
}

func (r *messageRepoPG) CountBySender(ctx context.Context, threadID uuid.UUID, senderType string) (int, error) {
	var n int
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE thread_id = $1 AND sender_type = $2`,
		threadID, senderType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages by sender: %w", err)
	}
	return n, nil
}

// MarkRead flips the counterparty's unread messages.
func (r *messageRepoPG) MarkRead(ctx context.Context, threadID uuid.UUID, readerType string) (int, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE messages SET is_read = TRUE
		WHERE thread_id = $1 AND sender_type <> $2 AND NOT is_read`,
		threadID, readerType)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

type consultRepoPG struct{ pool *pgxpool.Pool }

func NewConsultRepoPG(pool *pgxpool.Pool) ConsultRepository {
	return &consultRepoPG{pool: pool}
}

const consultCols = `id, patient_id, practitioner_id, status, message, response_message, thread_id, created_at, updated_at`

func scanConsult(row pgx.Row) (*ConsultRequest, error) {
	var cr ConsultRequest
	err := row.Scan(&cr.ID, &cr.PatientID, &cr.PractitionerID, &cr.Status,
		&cr.Message, &cr.ResponseMessage, &cr.ThreadID, &cr.CreatedAt, &cr.UpdatedAt)
	return &cr, err
}

func (r *consultRepoPG) Create(ctx context.Context, cr *ConsultRequest) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO consult_requests (id, patient_id, practitioner_id, status, message, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		cr.ID, cr.PatientID, cr.PractitionerID, cr.Status, cr.Message, cr.CreatedAt, cr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create consult request: %w", err)
	}
	return nil
}

func (r *consultRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ConsultRequest, error) {
	row := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+consultCols+` FROM consult_requests WHERE id = $1`, id)
	cr, err := scanConsult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("consult_request", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get consult request: %w", err)
	}
	return cr, nil
}

func (r *consultRepoPG) Update(ctx context.Context, cr *ConsultRequest) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE consult_requests
		SET status = $1, response_message = $2, thread_id = $3, updated_at = $4
		WHERE id = $5`,
		cr.Status, cr.ResponseMessage, cr.ThreadID, cr.UpdatedAt, cr.ID)
	if err != nil {
		return fmt.Errorf("update consult request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("consult_request", cr.ID.String())
	}
	return nil
}

func (r *consultRepoPG) ListForUser(ctx context.Context, userID uuid.UUID, role string, limit, offset int) ([]*ConsultRequest, int, error) {
	col := "patient_id"
	if role == SenderPractitioner {
		col = "practitioner_id"
	}
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM consult_requests WHERE `+col+` = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count consult requests: %w", err)
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+consultCols+` FROM consult_requests
		WHERE `+col+` = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list consult requests: %w", err)
	}
	defer rows.Close()

	var out []*ConsultRequest
	for rows.Next() {
		cr, err := scanConsult(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan consult request: %w", err)
		}
		out = append(out, cr)
	}
	return out, total, rows.Err()
}
