package mar

import (
	"context"
	"errors"
	"fmt"
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

const doseCols = `id, mar_number, patient_id, admission_id, order_id, dispense_id,
	medication_id, medication_name, medication_class, controlled,
	dose, route, is_prn, prn_reason, batch_number, batch_expiry,
	scheduled_time, window_early, window_late, status,
	administered_time, administered_by, witnessed_by, site, notes, vitals_at_admin,
	verified_rights, safety_warnings, safety_override,
	hold_reason, hold_details, refusal_reason, finalized_by, supersedes_id,
	created_at, updated_at`

func (r *repoPG) scanDose(row pgx.Row) (*DoseSchedule, error) {
	var d DoseSchedule
	err := row.Scan(&d.ID, &d.MARNumber, &d.PatientID, &d.AdmissionID, &d.OrderID, &d.DispenseID,
		&d.MedicationID, &d.MedicationName, &d.MedicationClass, &d.Controlled,
		&d.Dose, &d.Route, &d.IsPRN, &d.PRNReason, &d.BatchNumber, &d.BatchExpiry,
		&d.ScheduledTime, &d.WindowEarly, &d.WindowLate, &d.Status,
		&d.AdministeredTime, &d.AdministeredBy, &d.WitnessedBy, &d.Site, &d.Notes, &d.VitalsAtAdmin,
		&d.VerifiedRights, &d.SafetyWarnings, &d.SafetyOverride,
		&d.HoldReason, &d.HoldDetails, &d.RefusalReason, &d.FinalizedBy, &d.SupersedesID,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *DoseSchedule) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dose_schedule (id, mar_number, patient_id, admission_id, order_id, dispense_id,
			medication_id, medication_name, medication_class, controlled,
			dose, route, is_prn, prn_reason, batch_number, batch_expiry,
			scheduled_time, window_early, window_late, status, supersedes_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		d.ID, d.MARNumber, d.PatientID, d.AdmissionID, d.OrderID, d.DispenseID,
		d.MedicationID, d.MedicationName, d.MedicationClass, d.Controlled,
		d.Dose, d.Route, d.IsPRN, d.PRNReason, d.BatchNumber, d.BatchExpiry,
		d.ScheduledTime, d.WindowEarly, d.WindowLate, d.Status, d.SupersedesID)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*DoseSchedule, error) {
	return r.scanDose(r.conn(ctx).QueryRow(ctx, `SELECT `+doseCols+` FROM dose_schedule WHERE id = $1`, id))
}

func (r *repoPG) ListByAdmission(ctx context.Context, admissionID uuid.UUID, filter ScheduleFilter, limit, offset int) ([]*DoseSchedule, int, error) {
	query := `SELECT ` + doseCols + ` FROM dose_schedule WHERE admission_id = $1`
	countQuery := `SELECT COUNT(*) FROM dose_schedule WHERE admission_id = $1`
	args := []interface{}{admissionID}
	idx := 2

	if filter.Date != nil {
		dayStart := filter.Date.UTC().Truncate(24 * time.Hour)
		cond := fmt.Sprintf(` AND scheduled_time >= $%d AND scheduled_time < $%d`, idx, idx+1)
		query += cond
		countQuery += cond
		args = append(args, dayStart, dayStart.Add(24*time.Hour))
		idx += 2
	}
	if filter.Status != "" {
		cond := fmt.Sprintf(` AND status = $%d`, idx)
		query += cond
		countQuery += cond
		args = append(args, filter.Status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY scheduled_time ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*DoseSchedule
	for rows.Next() {
		d, err := r.scanDose(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}

func (r *repoPG) ListOverdue(ctx context.Context, admissionID uuid.UUID, now time.Time) ([]*DoseSchedule, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+doseCols+` FROM dose_schedule
		WHERE admission_id = $1 AND status = 'scheduled' AND NOT is_prn AND window_late < $2
		ORDER BY scheduled_time ASC`, admissionID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DoseSchedule
	for rows.Next() {
		d, err := r.scanDose(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *repoPG) ListSweepCandidates(ctx context.Context, now time.Time, limit int) ([]*DoseSchedule, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+doseCols+` FROM dose_schedule
		WHERE status = 'scheduled' AND NOT is_prn AND window_late < $1
		ORDER BY window_late ASC LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DoseSchedule
	for rows.Next() {
		d, err := r.scanDose(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *repoPG) NextMARSequence(ctx context.Context) (int64, error) {
	var seq int64
	err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('mar_number_seq')`).Scan(&seq)
	return seq, err
}

// MarkGiven finalizes the dose as given. The status predicate makes the
// update a single-statement compare-and-set; zero rows affected means another
// writer finalized the dose first.
func (r *repoPG) MarkGiven(ctx context.Context, d *DoseSchedule) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE dose_schedule
		SET status='given', administered_time=$2, administered_by=$3, witnessed_by=$4,
			site=$5, notes=$6, vitals_at_admin=$7,
			verified_rights=$8, safety_warnings=$9, safety_override=$10,
			finalized_by=$3, updated_at=NOW()
		WHERE id = $1 AND status = 'scheduled'`,
		d.ID, d.AdministeredTime, d.AdministeredBy, d.WitnessedBy,
		d.Site, d.Notes, d.VitalsAtAdmin,
		d.VerifiedRights, d.SafetyWarnings, d.SafetyOverride)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) MarkHeld(ctx context.Context, id uuid.UUID, reason, details, by string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE dose_schedule
		SET status='held', hold_reason=$2, hold_details=$3, finalized_by=$4, updated_at=NOW()
		WHERE id = $1 AND status = 'scheduled'`, id, reason, details, by)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) MarkRefused(ctx context.Context, id uuid.UUID, reason, by string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE dose_schedule
		SET status='refused', refusal_reason=$2, finalized_by=$3, updated_at=NOW()
		WHERE id = $1 AND status = 'scheduled'`, id, reason, by)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) MarkMissed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE dose_schedule
		SET status='missed', updated_at=NOW()
		WHERE id = $1 AND status = 'scheduled'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
