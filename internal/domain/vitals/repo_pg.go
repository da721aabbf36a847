package vitals

import (
	"context"

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

const readingCols = `id, patient_id, admission_id, recorded_by, recorded_at,
	systolic_bp, diastolic_bp, pulse, temperature, oxygen_saturation, respiratory_rate,
	note, is_abnormal, is_critical, flagged_params, created_at`

func (r *repoPG) scanReading(row pgx.Row) (*VitalReading, error) {
	var v VitalReading
	err := row.Scan(&v.ID, &v.PatientID, &v.AdmissionID, &v.RecordedBy, &v.RecordedAt,
		&v.SystolicBP, &v.DiastolicBP, &v.Pulse, &v.Temperature, &v.OxygenSaturation, &v.RespiratoryRate,
		&v.Note, &v.IsAbnormal, &v.IsCritical, &v.FlaggedParams, &v.CreatedAt)
	return &v, err
}

func (r *repoPG) Create(ctx context.Context, v *VitalReading) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vital_reading (id, patient_id, admission_id, recorded_by, recorded_at,
			systolic_bp, diastolic_bp, pulse, temperature, oxygen_saturation, respiratory_rate,
			note, is_abnormal, is_critical, flagged_params)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		v.ID, v.PatientID, v.AdmissionID, v.RecordedBy, v.RecordedAt,
		v.SystolicBP, v.DiastolicBP, v.Pulse, v.Temperature, v.OxygenSaturation, v.RespiratoryRate,
		v.Note, v.IsAbnormal, v.IsCritical, v.FlaggedParams)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*VitalReading, error) {
	return r.scanReading(r.conn(ctx).QueryRow(ctx, `SELECT `+readingCols+` FROM vital_reading WHERE id = $1`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalReading, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM vital_reading WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+readingCols+` FROM vital_reading WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*VitalReading
	for rows.Next() {
		v, err := r.scanReading(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, nil
}

func (r *repoPG) ListByAdmission(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*VitalReading, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM vital_reading WHERE admission_id = $1`, admissionID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+readingCols+` FROM vital_reading WHERE admission_id = $1 ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`, admissionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*VitalReading
	for rows.Next() {
		v, err := r.scanReading(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, nil
}
