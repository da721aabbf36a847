package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	AuthMode    string `mapstructure:"AUTH_MODE"`
	AuthSecret  string `mapstructure:"AUTH_SECRET"`
	AuthIssuer  string `mapstructure:"AUTH_ISSUER"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	// Dose window and sweep tuning. Grace periods are minutes either side of
	// the scheduled time; institutions override them per policy.
	MARGraceBeforeMin   int `mapstructure:"MAR_GRACE_BEFORE_MIN"`
	MARGraceAfterMin    int `mapstructure:"MAR_GRACE_AFTER_MIN"`
	MARSweepIntervalSec int `mapstructure:"MAR_SWEEP_INTERVAL_SEC"`

	// Minimum minutes between administrations of the same medication before
	// the verifier raises a warning.
	SafetyMinDoseIntervalMin int `mapstructure:"SAFETY_MIN_DOSE_INTERVAL_MIN"`

	// Optional YAML file overriding the built-in vital sign threshold bands.
	VitalsThresholdsFile string `mapstructure:"VITALS_THRESHOLDS_FILE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // auto-detect: "" -> inferred from ENV
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MAR_GRACE_BEFORE_MIN", 30)
	v.SetDefault("MAR_GRACE_AFTER_MIN", 30)
	v.SetDefault("MAR_SWEEP_INTERVAL_SEC", 60)
	v.SetDefault("SAFETY_MIN_DOSE_INTERVAL_MIN", 240)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("AUTH_MODE")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("MAR_GRACE_BEFORE_MIN")
	v.BindEnv("MAR_GRACE_AFTER_MIN")
	v.BindEnv("MAR_SWEEP_INTERVAL_SEC")
	v.BindEnv("SAFETY_MIN_DOSE_INTERVAL_MIN")
	v.BindEnv("VITALS_THRESHOLDS_FILE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active; all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure AUTH_SECRET for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns the effective auth mode. If AUTH_MODE is explicitly
// set, it is returned. Otherwise, the mode is inferred:
//   - ENV=development → "development" (no auth, all requests get admin)
//   - Otherwise       → "jwt" (HMAC bearer tokens signed with AUTH_SECRET)
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return "development"
	}
	return "jwt"
}

// Validate checks that the configuration is safe to run. In non-development
// modes AUTH_SECRET must be set so that real JWT authentication is enforced.
func (c *Config) Validate() error {
	mode := c.ResolvedAuthMode()
	if mode != "development" && mode != "jwt" {
		return fmt.Errorf("AUTH_MODE must be \"development\" or \"jwt\", got %q", mode)
	}
	if mode == "jwt" && c.AuthSecret == "" {
		return fmt.Errorf(
			"AUTH_SECRET must be set when AUTH_MODE is \"jwt\" (current ENV=%q). "+
				"Refusing to start without authentication configuration", c.Env)
	}

	if c.MARGraceBeforeMin < 0 || c.MARGraceAfterMin < 0 {
		return fmt.Errorf("MAR grace periods must not be negative")
	}
	if c.MARSweepIntervalSec < 1 {
		return fmt.Errorf("MAR_SWEEP_INTERVAL_SEC must be at least 1, got %d", c.MARSweepIntervalSec)
	}
	if c.SafetyMinDoseIntervalMin < 0 {
		return fmt.Errorf("SAFETY_MIN_DOSE_INTERVAL_MIN must not be negative")
	}

	return nil
}
