package handover

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const handoverCols = `id, ward, outgoing_nurse, incoming_nurse, shift_start, shift_end, status,
	submitted_at, acknowledged_by, acknowledged_at, acknowledgment_notes, created_at, updated_at`

func scanHandover(row pgx.Row) (*Handover, error) {
	var h Handover
	err := row.Scan(&h.ID, &h.Ward, &h.OutgoingNurse, &h.IncomingNurse, &h.ShiftStart, &h.ShiftEnd, &h.Status,
		&h.SubmittedAt, &h.AcknowledgedBy, &h.AcknowledgedAt, &h.AcknowledgmentNotes, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &h, err
}

func (r *repoPG) Create(ctx context.Context, h *Handover, reviews []*PatientReview) error {
	h.ID = uuid.New()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO handover (id, ward, outgoing_nurse, incoming_nurse, shift_start, shift_end, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		h.ID, h.Ward, h.OutgoingNurse, h.IncomingNurse, h.ShiftStart, h.ShiftEnd, h.Status)
	if err != nil {
		return err
	}
	for _, rev := range reviews {
		rev.ID = uuid.New()
		rev.HandoverID = h.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO handover_patient (id, handover_id, patient_id, summary)
			VALUES ($1,$2,$3,$4)`,
			rev.ID, rev.HandoverID, rev.PatientID, rev.Summary)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Handover, error) {
	return scanHandover(r.conn(ctx).QueryRow(ctx, `SELECT `+handoverCols+` FROM handover WHERE id = $1`, id))
}

func (r *repoPG) ListByWard(ctx context.Context, ward string, limit, offset int) ([]*Handover, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM handover WHERE ward = $1`, ward).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+handoverCols+` FROM handover
		WHERE ward = $1 ORDER BY shift_end DESC LIMIT $2 OFFSET $3`, ward, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Handover
	for rows.Next() {
		h, err := scanHandover(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListReviews(ctx context.Context, handoverID uuid.UUID) ([]*PatientReview, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, handover_id, patient_id, summary, reviewed, reviewed_by, reviewed_at
		FROM handover_patient WHERE handover_id = $1 ORDER BY patient_id`, handoverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PatientReview
	for rows.Next() {
		var rev PatientReview
		if err := rows.Scan(&rev.ID, &rev.HandoverID, &rev.PatientID, &rev.Summary,
			&rev.Reviewed, &rev.ReviewedBy, &rev.ReviewedAt); err != nil {
			return nil, err
		}
		items = append(items, &rev)
	}
	return items, rows.Err()
}

func (r *repoPG) SetReviewed(ctx context.Context, handoverID, patientID uuid.UUID, by string, reviewed bool, at time.Time) (bool, error) {
	var tag pgconn.CommandTag
	var err error
	if reviewed {
		tag, err = r.conn(ctx).Exec(ctx, `
			UPDATE handover_patient
			SET reviewed = TRUE, reviewed_by = $3, reviewed_at = $4
			WHERE handover_id = $1 AND patient_id = $2 AND NOT reviewed`,
			handoverID, patientID, by, at)
	} else {
		tag, err = r.conn(ctx).Exec(ctx, `
			UPDATE handover_patient
			SET reviewed = FALSE, reviewed_by = '', reviewed_at = NULL
			WHERE handover_id = $1 AND patient_id = $2 AND reviewed`,
			handoverID, patientID)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) ReviewProgress(ctx context.Context, handoverID uuid.UUID) (Progress, error) {
	var p Progress
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE reviewed), COUNT(*)
		FROM handover_patient WHERE handover_id = $1`, handoverID).Scan(&p.Reviewed, &p.Total)
	return p, err
}

func (r *repoPG) Submit(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE handover
		SET status = 'submitted', submitted_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'draft'`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) Acknowledge(ctx context.Context, id uuid.UUID, by, notes string, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE handover
		SET status = 'acknowledged', acknowledged_by = $2, acknowledgment_notes = $3,
			acknowledged_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'submitted'
		AND NOT EXISTS (
			SELECT 1 FROM handover_patient WHERE handover_id = $1 AND NOT reviewed
		)`, id, by, notes, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) AddClarification(ctx context.Context, c *Clarification) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO handover_clarification (id, handover_id, patient_id, question, asked_by, asked_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.HandoverID, c.PatientID, c.Question, c.AskedBy, c.AskedAt)
	return err
}

func (r *repoPG) ListClarifications(ctx context.Context, handoverID uuid.UUID) ([]*Clarification, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, handover_id, patient_id, question, asked_by, asked_at, answer, answered_by, answered_at
		FROM handover_clarification WHERE handover_id = $1 ORDER BY asked_at ASC`, handoverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Clarification
	for rows.Next() {
		var c Clarification
		if err := rows.Scan(&c.ID, &c.HandoverID, &c.PatientID, &c.Question, &c.AskedBy, &c.AskedAt,
			&c.Answer, &c.AnsweredBy, &c.AnsweredAt); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}

func (r *repoPG) GetClarification(ctx context.Context, id uuid.UUID) (*Clarification, error) {
	var c Clarification
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, handover_id, patient_id, question, asked_by, asked_at, answer, answered_by, answered_at
		FROM handover_clarification WHERE id = $1`, id).
		Scan(&c.ID, &c.HandoverID, &c.PatientID, &c.Question, &c.AskedBy, &c.AskedAt,
			&c.Answer, &c.AnsweredBy, &c.AnsweredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *repoPG) AnswerClarification(ctx context.Context, id uuid.UUID, answer, by string, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE handover_clarification
		SET answer = $2, answered_by = $3, answered_at = $4
		WHERE id = $1 AND answered_at IS NULL`, id, answer, by, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
