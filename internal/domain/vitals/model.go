package vitals

import (
	"time"

	"github.com/google/uuid"
)

// Level classifies a vital sign value against the threshold bands.
type Level string

const (
	LevelNormal   Level = "normal"
	LevelAbnormal Level = "abnormal"
	LevelCritical Level = "critical"
)

// Parameter names as they appear in threshold tables, flags, and the API.
const (
	ParamSystolicBP       = "systolic_bp"
	ParamDiastolicBP      = "diastolic_bp"
	ParamPulse            = "pulse"
	ParamTemperature      = "temperature"
	ParamOxygenSaturation = "oxygen_saturation"
	ParamRespiratoryRate  = "respiratory_rate"
)

// VitalReading is one set of vital signs taken at the bedside. Parameters not
// measured are left nil. The classification fields are stamped at save time
// with the same evaluator used for ad-hoc evaluation.
type VitalReading struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	AdmissionID *uuid.UUID `db:"admission_id" json:"admission_id,omitempty"`
	RecordedBy  string     `db:"recorded_by" json:"recorded_by"`
	RecordedAt  time.Time  `db:"recorded_at" json:"recorded_at"`

	SystolicBP       *float64 `db:"systolic_bp" json:"systolic_bp,omitempty"`
	DiastolicBP      *float64 `db:"diastolic_bp" json:"diastolic_bp,omitempty"`
	Pulse            *float64 `db:"pulse" json:"pulse,omitempty"`
	Temperature      *float64 `db:"temperature" json:"temperature,omitempty"`
	OxygenSaturation *float64 `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	RespiratoryRate  *float64 `db:"respiratory_rate" json:"respiratory_rate,omitempty"`

	Note string `db:"note" json:"note,omitempty"`

	IsAbnormal    bool     `db:"is_abnormal" json:"is_abnormal"`
	IsCritical    bool     `db:"is_critical" json:"is_critical"`
	FlaggedParams []string `db:"flagged_params" json:"flagged_params,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Flag marks a single out-of-range parameter.
type Flag struct {
	Parameter string  `json:"parameter"`
	Level     Level   `json:"level"`
	Value     float64 `json:"value"`
}

// Classification is the evaluator's verdict for one reading. Level is the
// worst level across all measured parameters.
type Classification struct {
	Level Level  `json:"level"`
	Flags []Flag `json:"flags,omitempty"`
}

// IsCritical reports whether any parameter fell in the critical range.
func (c Classification) IsCritical() bool { return c.Level == LevelCritical }

// IsAbnormal reports whether any parameter fell outside the normal range.
func (c Classification) IsAbnormal() bool { return c.Level != LevelNormal }

// measured returns the parameter name/value pairs present on the reading, in
// fixed order so classifications are deterministic.
func (r *VitalReading) measured() []struct {
	name  string
	value *float64
} {
	return []struct {
		name  string
		value *float64
	}{
		{ParamSystolicBP, r.SystolicBP},
		{ParamDiastolicBP, r.DiastolicBP},
		{ParamPulse, r.Pulse},
		{ParamTemperature, r.Temperature},
		{ParamOxygenSaturation, r.OxygenSaturation},
		{ParamRespiratoryRate, r.RespiratoryRate},
	}
}

// HasMeasurement reports whether at least one parameter was recorded.
func (r *VitalReading) HasMeasurement() bool {
	for _, m := range r.measured() {
		if m.value != nil {
			return true
		}
	}
	return false
}
