package safety

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
)

// ContextProvider assembles the patient snapshot the verifier reads. Verdicts
// are never cached, so every Verify call goes through here.
type ContextProvider interface {
	PatientContext(ctx context.Context, patientID uuid.UUID) (*PatientContext, error)
}

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// administrationLookback bounds the history read for interval and duplicate
// therapy checks.
const administrationLookback = 24 * time.Hour

type providerPG struct{ pool *pgxpool.Pool }

func NewProviderPG(pool *pgxpool.Pool) ContextProvider { return &providerPG{pool: pool} }

func (p *providerPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return p.pool
}

func (p *providerPG) PatientContext(ctx context.Context, patientID uuid.UUID) (*PatientContext, error) {
	pctx := &PatientContext{PatientID: patientID}

	rows, err := p.conn(ctx).Query(ctx, `
		SELECT substance, COALESCE(class, '')
		FROM patient_allergy
		WHERE patient_id = $1 AND active`, patientID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var a Allergy
		if err := rows.Scan(&a.Substance, &a.Class); err != nil {
			rows.Close()
			return nil, err
		}
		pctx.Allergies = append(pctx.Allergies, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = p.conn(ctx).Query(ctx, `
		SELECT order_id, reason, placed_by, placed_at
		FROM doctor_hold
		WHERE patient_id = $1 AND released_at IS NULL`, patientID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var h DoctorHold
		if err := rows.Scan(&h.OrderID, &h.Reason, &h.PlacedBy, &h.PlacedAt); err != nil {
			rows.Close()
			return nil, err
		}
		pctx.Holds = append(pctx.Holds, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = p.conn(ctx).Query(ctx, `
		SELECT medication_id, COALESCE(medication_class, ''), administered_time
		FROM dose_schedule
		WHERE patient_id = $1 AND status = 'given' AND administered_time > $2`,
		patientID, time.Now().UTC().Add(-administrationLookback))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var adm Administration
		if err := rows.Scan(&adm.MedicationID, &adm.MedicationClass, &adm.AdministeredAt); err != nil {
			return nil, err
		}
		pctx.RecentAdministrations = append(pctx.RecentAdministrations, adm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pctx, nil
}
