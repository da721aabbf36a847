package vitals

import (
	"fmt"

	"github.com/spf13/viper"
)

// Band holds the normal and critical bounds for one parameter. A nil bound
// means that side is unbounded, e.g. oxygen saturation has no upper limit.
// Values outside [AbnormalLow, AbnormalHigh] are abnormal; values outside
// [CriticalLow, CriticalHigh] are critical.
type Band struct {
	AbnormalLow  *float64 `mapstructure:"abnormal_low"`
	AbnormalHigh *float64 `mapstructure:"abnormal_high"`
	CriticalLow  *float64 `mapstructure:"critical_low"`
	CriticalHigh *float64 `mapstructure:"critical_high"`
}

// Thresholds maps parameter names to their bands.
type Thresholds map[string]Band

func f(v float64) *float64 { return &v }

// DefaultThresholds returns the built-in adult bands. Institutions override
// them through VITALS_THRESHOLDS_FILE.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ParamSystolicBP:       {AbnormalLow: f(90), AbnormalHigh: f(140), CriticalLow: f(70), CriticalHigh: f(180)},
		ParamDiastolicBP:      {AbnormalLow: f(60), AbnormalHigh: f(90), CriticalLow: f(40), CriticalHigh: f(120)},
		ParamPulse:            {AbnormalLow: f(60), AbnormalHigh: f(100), CriticalLow: f(40), CriticalHigh: f(150)},
		ParamTemperature:      {AbnormalLow: f(36.0), AbnormalHigh: f(37.5), CriticalLow: f(35.0), CriticalHigh: f(39.5)},
		ParamOxygenSaturation: {AbnormalLow: f(95), CriticalLow: f(90)},
		ParamRespiratoryRate:  {AbnormalLow: f(12), AbnormalHigh: f(20), CriticalLow: f(8), CriticalHigh: f(30)},
	}
}

// LoadThresholds reads band overrides from a YAML file and merges them over
// the defaults. Parameters absent from the file keep their built-in bands.
func LoadThresholds(file string) (Thresholds, error) {
	t := DefaultThresholds()
	if file == "" {
		return t, nil
	}

	v := viper.New()
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read thresholds file %s: %w", file, err)
	}

	overrides := make(map[string]Band)
	if err := v.Unmarshal(&overrides); err != nil {
		return nil, fmt.Errorf("unmarshal thresholds file %s: %w", file, err)
	}

	for param, band := range overrides {
		if _, known := t[param]; !known {
			return nil, fmt.Errorf("unknown vital parameter %q in %s", param, file)
		}
		t[param] = band
	}
	return t, nil
}

// classify places a single value on one band.
func (b Band) classify(v float64) Level {
	if (b.CriticalLow != nil && v < *b.CriticalLow) || (b.CriticalHigh != nil && v > *b.CriticalHigh) {
		return LevelCritical
	}
	if (b.AbnormalLow != nil && v < *b.AbnormalLow) || (b.AbnormalHigh != nil && v > *b.AbnormalHigh) {
		return LevelAbnormal
	}
	return LevelNormal
}

// Evaluate classifies every measured parameter on the reading and returns the
// worst overall level. It is a pure function of the reading and the bands:
// no clock, no persistence, no side effects.
func (t Thresholds) Evaluate(r *VitalReading) Classification {
	out := Classification{Level: LevelNormal}
	for _, m := range r.measured() {
		if m.value == nil {
			continue
		}
		band, ok := t[m.name]
		if !ok {
			continue
		}
		level := band.classify(*m.value)
		if level == LevelNormal {
			continue
		}
		out.Flags = append(out.Flags, Flag{Parameter: m.name, Level: level, Value: *m.value})
		if level == LevelCritical {
			out.Level = LevelCritical
		} else if out.Level == LevelNormal {
			out.Level = LevelAbnormal
		}
	}
	return out
}
